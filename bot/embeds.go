package bot

import (
	"fmt"
	"strconv"
	"time"

	"watchman/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPending   = 0x3498DB // blue
	colorVoting    = 0xF1C40F // yellow
	colorGuilty    = 0xE74C3C // red
	colorNotGuilty = 0x2ECC71 // green
	colorNeutral   = 0x95A5A6 // grey
)

func statusColor(status models.WatchStatus) int {
	switch status {
	case models.WatchStatusPending:
		return colorPending
	case models.WatchStatusVoting:
		return colorVoting
	case models.WatchStatusGuilty:
		return colorGuilty
	case models.WatchStatusNotGuilty:
		return colorNotGuilty
	}
	return colorNeutral
}

func statusLabel(status models.WatchStatus) string {
	switch status {
	case models.WatchStatusPending:
		return "pending"
	case models.WatchStatusVoting:
		return "voting open"
	case models.WatchStatusGuilty:
		return "found guilty"
	case models.WatchStatusNotGuilty:
		return "found not guilty"
	case models.WatchStatusClearedEarly:
		return "cleared early"
	case models.WatchStatusCancelled:
		return "cancelled"
	case models.WatchStatusExpired:
		return "expired"
	}
	return string(status)
}

// createWatchEmbed renders the accusation announcement
func (b *Bot) createWatchEmbed(watch *models.Watch) *discordgo.MessageEmbed {
	description := fmt.Sprintf("<@%d> put <@%d> on watch.\nTriggers %s (%s)",
		watch.InitiatorUserID, watch.AccusedUserID,
		FormatDiscordTimestamp(watch.ScheduledAt, "F"),
		FormatDiscordTimestamp(watch.ScheduledAt, "R"))

	embed := &discordgo.MessageEmbed{
		Title:       "👁️ Watch Scheduled",
		Description: description,
		Color:       statusColor(watch.Status),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", watch.ID),
		},
		Timestamp: watch.CreatedAt.Format(time.RFC3339),
	}

	if watch.CustomMessage != nil && *watch.CustomMessage != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Expectation",
			Value: *watch.CustomMessage,
		})
	}

	return embed
}

// createVotingEmbed renders the voting-opened announcement
func (b *Bot) createVotingEmbed(event votingAnnouncement) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⚖️ Voting Open",
		Description: fmt.Sprintf("Did <@%d> follow through? Voting closes %s.",
			event.AccusedUserID, FormatDiscordTimestamp(event.Deadline, "R")),
		Color: colorVoting,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", event.WatchID),
		},
	}
}

// createVerdictEmbed renders the final verdict announcement
func (b *Bot) createVerdictEmbed(watchID, accusedUserID int64, status models.WatchStatus, guilty, notGuilty int) *discordgo.MessageEmbed {
	var title, description string
	switch status {
	case models.WatchStatusGuilty:
		title = "🔨 Guilty"
		description = fmt.Sprintf("<@%d> was found **guilty** (%d guilty / %d not guilty).",
			accusedUserID, guilty, notGuilty)
	case models.WatchStatusNotGuilty:
		title = "🕊️ Not Guilty"
		description = fmt.Sprintf("<@%d> was found **not guilty** (%d guilty / %d not guilty).",
			accusedUserID, guilty, notGuilty)
	case models.WatchStatusExpired:
		title = "⌛ Watch Expired"
		description = fmt.Sprintf("The watch on <@%d> went stale before voting could open.", accusedUserID)
	default:
		title = "Watch Closed"
		description = fmt.Sprintf("The watch on <@%d> is %s.", accusedUserID, statusLabel(status))
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       statusColor(status),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Watch ID: %d", watchID),
		},
	}
}

// voteButtons builds the guilty / not guilty button row for a watch
func voteButtons(watchID int64) []discordgo.MessageComponent {
	id := strconv.FormatInt(watchID, 10)
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Guilty",
					Style:    discordgo.DangerButton,
					CustomID: "watch_vote_guilty_" + id,
				},
				discordgo.Button{
					Label:    "Not Guilty",
					Style:    discordgo.SuccessButton,
					CustomID: "watch_vote_not_guilty_" + id,
				},
			},
		},
	}
}
