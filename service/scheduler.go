package service

import (
	"context"
	"fmt"
	"time"

	"watchman/events"
	"watchman/models"

	log "github.com/sirupsen/logrus"
)

// schedulerPageSize bounds how many active watches one query returns; ticks
// page through the full set so a large backlog cannot starve later watches
const schedulerPageSize = 100

// WatchScheduler drives the watch lifecycle from a background polling loop.
// Every tick it scans active watches, decides transitions with the pure
// state machine and applies each one as a conditional write, so a missed
// tick or process restart loses no transitions - the next tick picks up
// whatever is overdue.
type WatchScheduler struct {
	uowFactory UnitOfWorkFactory
	votes      VoteService
	clock      Clock
	interval   time.Duration
	grace      time.Duration
}

// NewWatchScheduler creates a scheduler polling at the given interval
func NewWatchScheduler(uowFactory UnitOfWorkFactory, votes VoteService, clock Clock, interval, grace time.Duration) *WatchScheduler {
	return &WatchScheduler{
		uowFactory: uowFactory,
		votes:      votes,
		clock:      clock,
		interval:   interval,
		grace:      grace,
	}
}

// Start launches the polling loop and returns a stop function. The first
// tick runs immediately so transitions missed while the process was down
// are applied on startup rather than one interval later.
func (s *WatchScheduler) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		log.WithField("interval", s.interval).Info("Watch scheduler started")

		s.runTick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Watch scheduler stopped")
				return
			case <-ticker.C:
				s.runTick(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *WatchScheduler) runTick(ctx context.Context) {
	if err := s.Tick(ctx); err != nil {
		log.WithError(err).Error("Scheduler tick failed")
	}
}

// Tick runs one full pass over all active watches. Failures on individual
// watches are logged and skipped; one bad row never blocks the rest of the
// pass or the watches behind it.
func (s *WatchScheduler) Tick(ctx context.Context) error {
	now := s.clock.Now()

	// Keyset cursor: pages advance past the last seen id, so watches the
	// pass itself moves to terminal status never shift later pages
	var afterID int64

	for {
		watches, err := s.listActivePage(ctx, afterID)
		if err != nil {
			return fmt.Errorf("failed to list active watches: %w", err)
		}
		if len(watches) == 0 {
			return nil
		}

		for _, watch := range watches {
			if err := s.applyTransition(ctx, watch, now); err != nil {
				log.WithError(err).WithField("watchID", watch.ID).
					Error("Failed to apply watch transition")
			}
		}

		if len(watches) < schedulerPageSize {
			return nil
		}
		afterID = watches[len(watches)-1].ID
	}
}

// listActivePage reads one page of non-terminal watches in its own
// read-only transaction
func (s *WatchScheduler) listActivePage(ctx context.Context, afterID int64) ([]*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.WatchRepository().ListNonTerminal(ctx, afterID, schedulerPageSize)
}

func (s *WatchScheduler) applyTransition(ctx context.Context, watch *models.Watch, now time.Time) error {
	transition := DecideTransition(watch, now, s.grace)
	if transition == nil {
		return nil
	}

	switch transition.Effect {
	case EffectVerdictReached:
		// Verdict application lives in the vote service so button-driven and
		// deadline-driven finalization share one code path
		_, err := s.votes.FinalizeVoting(ctx, watch.ID)
		if err == ErrNotInVotingState {
			// Another instance or an admin action got there first
			log.WithField("watchID", watch.ID).Debug("Watch already finalized")
			return nil
		}
		return err

	case EffectVotingOpened:
		return s.applyStatusChange(ctx, watch, models.WatchStatusVoting,
			StatusChangeFields{VotingStartedAt: &now})

	case EffectWatchExpired:
		return s.applyStatusChange(ctx, watch, models.WatchStatusExpired,
			StatusChangeFields{ResolvedAt: &now})
	}

	return nil
}

func (s *WatchScheduler) applyStatusChange(ctx context.Context, watch *models.Watch, newStatus models.WatchStatus, extra StatusChangeFields) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ok, err := uow.WatchRepository().CompareAndSetStatus(ctx, watch.ID,
		watch.Status, newStatus, extra)
	if err != nil {
		return fmt.Errorf("failed to update watch status: %w", err)
	}
	if !ok {
		// Lost the race to another transition; the winner announced it
		log.WithFields(log.Fields{
			"watchID":   watch.ID,
			"newStatus": newStatus,
		}).Debug("Watch status changed concurrently, skipping")
		return nil
	}

	uow.EventBus().Publish(events.WatchStatusChangeEvent{
		WatchID:        watch.ID,
		GuildID:        watch.GuildID,
		ChannelID:      watch.ChannelID,
		AccusedUserID:  watch.AccusedUserID,
		OldStatus:      watch.Status,
		NewStatus:      newStatus,
		GuiltyVotes:    watch.GuiltyVotes,
		NotGuiltyVotes: watch.NotGuiltyVotes,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"watchID":   watch.ID,
		"oldStatus": watch.Status,
		"newStatus": newStatus,
	}).Info("Watch transitioned")

	return nil
}
