package bot

import (
	"fmt"
	"strings"

	"watchman/events"
	"watchman/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

type Bot struct {
	config             Config
	session            *discordgo.Session
	watchService       service.WatchService
	voteService        service.VoteService
	leaderboardService service.LeaderboardService
	settingsService    service.GuildSettingsService
	eventBus           *events.Bus
}

func New(config Config, watchService service.WatchService, voteService service.VoteService, leaderboardService service.LeaderboardService, settingsService service.GuildSettingsService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	bot := &Bot{
		config:             config,
		session:            dg,
		watchService:       watchService,
		voteService:        voteService,
		leaderboardService: leaderboardService,
		settingsService:    settingsService,
		eventBus:           eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component interaction handlers
	dg.AddHandler(bot.handleVoteInteraction)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Announcements are driven off committed engine events, never from
	// inside a transaction
	bot.subscribeAnnouncer()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "watch":
		b.handleWatchCommand(s, i)
	case "leaderboard":
		b.handleLeaderboardCommand(s, i)
	case "watchsettings":
		b.handleSettingsCommand(s, i)
	}
}

// handleVoteInteraction routes vote button presses
func (b *Bot) handleVoteInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID
	if strings.HasPrefix(customID, "watch_vote_") {
		b.handleVoteButton(s, i, customID)
	}
}
