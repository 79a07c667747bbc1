package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"watchman/models"
	"watchman/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleWatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	switch options[0].Name {
	case "accuse":
		b.handleAccuse(s, i, options[0].Options)
	case "clear":
		b.handleClear(s, i, options[0].Options)
	case "cancel":
		b.handleCancel(s, i, options[0].Options)
	case "list":
		b.handleList(s, i, options[0].Options)
	}
}

func (b *Bot) handleAccuse(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	var accused *discordgo.User
	var rawTime string
	var customMessage *string

	for _, opt := range options {
		switch opt.Name {
		case "user":
			accused = opt.UserValue(s)
		case "when":
			rawTime = opt.StringValue()
		case "message":
			msg := opt.StringValue()
			customMessage = &msg
		}
	}

	if accused == nil || rawTime == "" {
		b.respondWithError(s, i, "Both a user and a time are required.")
		return
	}

	req, err := b.buildCreateRequest(i, accused, rawTime, customMessage)
	if err != nil {
		log.Printf("Error parsing interaction IDs: %v", err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	watch, err := b.watchService.CreateWatch(ctx, req)
	if err != nil {
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{b.createWatchEmbed(watch)},
		},
	})
	if err != nil {
		log.Printf("Error responding to accuse command: %v", err)
	}
}

func (b *Bot) buildCreateRequest(i *discordgo.InteractionCreate, accused *discordgo.User, rawTime string, customMessage *string) (service.CreateWatchRequest, error) {
	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		return service.CreateWatchRequest{}, err
	}
	accusedID, err := parseSnowflake(accused.ID)
	if err != nil {
		return service.CreateWatchRequest{}, err
	}
	initiatorID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		return service.CreateWatchRequest{}, err
	}
	channelID, err := parseSnowflake(i.ChannelID)
	if err != nil {
		return service.CreateWatchRequest{}, err
	}
	// Slash interactions carry no message; the interaction ID anchors the
	// watch back to its origin
	originID, err := parseSnowflake(i.ID)
	if err != nil {
		return service.CreateWatchRequest{}, err
	}

	return service.CreateWatchRequest{
		GuildID:         guildID,
		AccusedUserID:   accusedID,
		InitiatorUserID: initiatorID,
		ChannelID:       channelID,
		OriginMessageID: originID,
		RawTimeText:     rawTime,
		CustomMessage:   customMessage,
	}, nil
}

func (b *Bot) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	var watchID int64
	for _, opt := range options {
		if opt.Name == "id" {
			watchID = opt.IntValue()
		}
	}

	requesterID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	watch, err := b.watchService.ClearEarly(ctx, watchID, requesterID)
	if err != nil {
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	message := fmt.Sprintf("✅ Watch **#%d** on <@%d> cleared early.", watch.ID, watch.AccusedUserID)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		log.Printf("Error responding to clear command: %v", err)
	}
}

func (b *Bot) handleCancel(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	var watchID int64
	reason := "cancelled by admin"
	for _, opt := range options {
		switch opt.Name {
		case "id":
			watchID = opt.IntValue()
		case "reason":
			reason = opt.StringValue()
		}
	}

	watch, err := b.watchService.CancelWatch(ctx, watchID, reason)
	if err != nil {
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	message := fmt.Sprintf("🚫 Watch **#%d** on <@%d> cancelled.", watch.ID, watch.AccusedUserID)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		log.Printf("Error responding to cancel command: %v", err)
	}
}

func (b *Bot) handleList(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	filters := service.WatchFilters{Limit: 25}
	for _, opt := range options {
		if opt.Name == "user" {
			if user := opt.UserValue(s); user != nil {
				if userID, err := parseSnowflake(user.ID); err == nil {
					filters.AccusedUserID = &userID
				}
			}
		}
	}

	watches, err := b.watchService.ListGuildWatches(ctx, guildID, filters)
	if err != nil {
		log.Printf("Error listing watches for guild %d: %v", guildID, err)
		b.respondWithError(s, i, "Unable to list watches. Please try again.")
		return
	}

	var active []*models.Watch
	for _, w := range watches {
		if !w.Status.IsTerminal() {
			active = append(active, w)
		}
	}

	if len(active) == 0 {
		b.respondEphemeral(s, i, "No active watches.")
		return
	}

	var sb strings.Builder
	for _, w := range active {
		fmt.Fprintf(&sb, "**#%d** <@%d> — %s, triggers %s\n",
			w.ID, w.AccusedUserID, statusLabel(w.Status), FormatDiscordTimestamp(w.ScheduledAt, "R"))
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Active Watches",
					Description: sb.String(),
					Color:       colorPending,
				},
			},
		},
	})
	if err != nil {
		log.Printf("Error responding to list command: %v", err)
	}
}

// userFacingError maps engine errors to messages the member can act on
func userFacingError(err error) string {
	var parseErr *service.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("I couldn't understand %q. Try \"2h30m\", \"tomorrow 3pm\" or \"jun 15 18:00\".", parseErr.Input)
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason
	}

	var conflict *service.StateConflictError
	if errors.As(err, &conflict) {
		return fmt.Sprintf("Watch #%d is already %s.", conflict.WatchID, statusLabel(conflict.Actual))
	}

	switch {
	case errors.Is(err, service.ErrWatchNotFound):
		return "That watch doesn't exist."
	case errors.Is(err, service.ErrWatchesDisabled):
		return "Watches are disabled on this server."
	case errors.Is(err, service.ErrAlreadyVoted):
		return "You already voted on this watch."
	case errors.Is(err, service.ErrNotInVotingState):
		return "Voting isn't open on this watch."
	}

	log.Printf("Unexpected error: %v", err)
	return "Something went wrong. Please try again."
}
