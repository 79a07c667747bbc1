package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const leaderboardLimit = 10

func (b *Bot) handleLeaderboardCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	settings, err := b.settingsService.GetOrCreateSettings(ctx, guildID)
	if err != nil {
		log.Printf("Error getting settings for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to load leaderboard. Please try again.")
		return
	}
	if !settings.PublicLeaderboardEnabled {
		b.respondEphemeral(s, i, "The leaderboard is disabled on this server.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	switch options[0].Name {
	case "accused":
		b.showAccusedLeaderboard(ctx, s, i, guildID)
	case "accusers":
		b.showAccuserLeaderboard(ctx, s, i, guildID)
	case "user":
		b.showUserStats(ctx, s, i, guildID, options[0].Options)
	}
}

func (b *Bot) showAccusedLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	entries, err := b.leaderboardService.GetAccusedLeaderboard(ctx, guildID, leaderboardLimit)
	if err != nil {
		log.Printf("Error getting accused leaderboard for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to load leaderboard. Please try again.")
		return
	}
	if len(entries) == 0 {
		b.respondEphemeral(s, i, "No finished watches yet.")
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "**%d.** <@%d> — %d guilty / %d watches (%.0f%% guilty rate)\n",
			e.Rank, e.UserID, e.GuiltyCount, e.TotalWatches, e.GuiltyRate*100)
	}

	b.respondWithEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🔨 Most Guilty",
		Description: sb.String(),
		Color:       colorGuilty,
	})
}

func (b *Bot) showAccuserLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	entries, err := b.leaderboardService.GetAccuserLeaderboard(ctx, guildID, leaderboardLimit)
	if err != nil {
		log.Printf("Error getting accuser leaderboard for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to load leaderboard. Please try again.")
		return
	}
	if len(entries) == 0 {
		b.respondEphemeral(s, i, "No finished watches yet.")
		return
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "**%d.** <@%d> — %d accusations, %d confirmed (%.0f%% conviction rate)\n",
			e.Rank, e.UserID, e.AccusationsMade, e.GuiltyVerdicts, e.ConvictionRate*100)
	}

	b.respondWithEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "👁️ Top Accusers",
		Description: sb.String(),
		Color:       colorPending,
	})
}

func (b *Bot) showUserStats(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID := i.Member.User.ID
	for _, opt := range options {
		if opt.Name == "user" {
			if user := opt.UserValue(s); user != nil {
				targetID = user.ID
			}
		}
	}

	userID, err := parseSnowflake(targetID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	stats, err := b.leaderboardService.GetUserStats(ctx, guildID, userID)
	if err != nil {
		log.Printf("Error getting stats for user %d in guild %d: %v", userID, guildID, err)
		b.respondWithError(s, i, "Unable to load statistics. Please try again.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Watch Record",
		Description: fmt.Sprintf("<@%d> over %d finished watches", userID, stats.TotalWatches),
		Color: colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guilty", Value: fmt.Sprintf("%d", stats.GuiltyCount), Inline: true},
			{Name: "Not guilty", Value: fmt.Sprintf("%d", stats.NotGuiltyCount), Inline: true},
			{Name: "Cleared early", Value: fmt.Sprintf("%d", stats.ClearedEarlyCount), Inline: true},
			{Name: "Expired", Value: fmt.Sprintf("%d", stats.ExpiredCount), Inline: true},
			{Name: "Cancelled", Value: fmt.Sprintf("%d", stats.CancelledCount), Inline: true},
			{Name: "Guilty rate", Value: fmt.Sprintf("%.0f%%", stats.GuiltyRate*100), Inline: true},
		},
	}

	b.respondWithEmbed(s, i, embed)
}

func (b *Bot) respondWithEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.Printf("Error responding with embed: %v", err)
	}
}
