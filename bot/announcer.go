package bot

import (
	"context"
	"strconv"
	"time"

	"watchman/events"
	"watchman/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

type votingAnnouncement struct {
	WatchID       int64
	AccusedUserID int64
	Deadline      time.Time
}

// subscribeAnnouncer wires scheduler-driven transitions to channel posts.
// Command-driven transitions (accuse, clear, cancel) are announced by their
// interaction responses; announcing them here again would double-post.
func (b *Bot) subscribeAnnouncer() {
	b.eventBus.Subscribe(events.EventTypeWatchStatusChange, func(ctx context.Context, event events.Event) {
		change, ok := event.(events.WatchStatusChangeEvent)
		if !ok {
			return
		}

		switch change.NewStatus {
		case models.WatchStatusVoting:
			b.announceVotingOpened(ctx, change)
		case models.WatchStatusGuilty, models.WatchStatusNotGuilty, models.WatchStatusExpired:
			// Verdicts and expiries only come from the scheduler
			b.announceVerdict(change)
		}
	})
}

func (b *Bot) announceVotingOpened(ctx context.Context, change events.WatchStatusChangeEvent) {
	// The event carries no deadline; read it off the updated watch
	watch, err := b.watchService.GetWatch(ctx, change.WatchID)
	if err != nil {
		log.WithError(err).WithField("watchID", change.WatchID).
			Error("Failed to load watch for voting announcement")
		return
	}

	embed := b.createVotingEmbed(votingAnnouncement{
		WatchID:       change.WatchID,
		AccusedUserID: change.AccusedUserID,
		Deadline:      watch.VotingDeadline(),
	})

	_, err = b.session.ChannelMessageSendComplex(strconv.FormatInt(change.ChannelID, 10), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: voteButtons(change.WatchID),
	})
	if err != nil {
		log.WithError(err).WithField("watchID", change.WatchID).
			Error("Failed to post voting announcement")
	}
}

func (b *Bot) announceVerdict(change events.WatchStatusChangeEvent) {
	embed := b.createVerdictEmbed(change.WatchID, change.AccusedUserID,
		change.NewStatus, change.GuiltyVotes, change.NotGuiltyVotes)

	_, err := b.session.ChannelMessageSendEmbed(strconv.FormatInt(change.ChannelID, 10), embed)
	if err != nil {
		log.WithError(err).WithField("watchID", change.WatchID).
			Error("Failed to post verdict announcement")
	}
}
