package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleSettingsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "show":
		b.showSettings(ctx, s, i, guildID)
		return
	case "timezone":
		zone := sub.Options[0].StringValue()
		err = b.settingsService.UpdateTimezone(ctx, guildID, zone)
		if err == nil {
			b.respondEphemeral(s, i, fmt.Sprintf("Timezone set to **%s**.", zone))
			return
		}
	case "votingduration":
		minutes := int(sub.Options[0].IntValue())
		err = b.settingsService.UpdateVotingDuration(ctx, guildID, minutes)
		if err == nil {
			b.respondEphemeral(s, i, fmt.Sprintf("Voting duration set to **%d minutes**.", minutes))
			return
		}
	case "maxadvance":
		hours := int(sub.Options[0].IntValue())
		err = b.settingsService.UpdateMaxAdvanceHours(ctx, guildID, hours)
		if err == nil {
			b.respondEphemeral(s, i, fmt.Sprintf("Watches can now be scheduled up to **%d hours** ahead.", hours))
			return
		}
	case "enabled":
		enabled := sub.Options[0].BoolValue()
		err = b.settingsService.SetEnabled(ctx, guildID, enabled)
		if err == nil {
			if enabled {
				b.respondEphemeral(s, i, "Watches are now **enabled**.")
			} else {
				b.respondEphemeral(s, i, "Watches are now **disabled**.")
			}
			return
		}
	case "leaderboard":
		enabled := sub.Options[0].BoolValue()
		err = b.settingsService.SetPublicLeaderboard(ctx, guildID, enabled)
		if err == nil {
			if enabled {
				b.respondEphemeral(s, i, "The leaderboard is now **public**.")
			} else {
				b.respondEphemeral(s, i, "The leaderboard is now **hidden**.")
			}
			return
		}
	default:
		return
	}

	b.respondWithError(s, i, userFacingError(err))
}

func (b *Bot) showSettings(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64) {
	settings, err := b.settingsService.GetOrCreateSettings(ctx, guildID)
	if err != nil {
		log.Printf("Error getting settings for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to load settings. Please try again.")
		return
	}

	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Watch Settings",
		Color: colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Timezone", Value: settings.Timezone, Inline: true},
			{Name: "Voting duration", Value: fmt.Sprintf("%d minutes", settings.VotingDurationMinutes), Inline: true},
			{Name: "Max advance", Value: fmt.Sprintf("%d hours", settings.MaxAdvanceHours), Inline: true},
			{Name: "Watches", Value: onOff(settings.IsEnabled), Inline: true},
			{Name: "Public leaderboard", Value: onOff(settings.PublicLeaderboardEnabled), Inline: true},
		},
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error responding to settings command: %v", err)
	}
}
