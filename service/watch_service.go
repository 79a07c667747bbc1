package service

import (
	"context"
	"fmt"
	"time"

	"watchman/config"
	"watchman/events"
	"watchman/models"

	log "github.com/sirupsen/logrus"
)

type watchService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	clock      Clock
}

// NewWatchService creates a new watch service
func NewWatchService(uowFactory UnitOfWorkFactory, cfg *config.Config, clock Clock) WatchService {
	return &watchService{
		uowFactory: uowFactory,
		cfg:        cfg,
		clock:      clock,
	}
}

// CreateWatch runs the accusation intake: guild settings, time parsing,
// advance validation and the pending persist, all in one transaction
func (s *watchService) CreateWatch(ctx context.Context, req CreateWatchRequest) (*models.Watch, error) {
	if req.RawTimeText == "" {
		return nil, &ParseError{Input: req.RawTimeText, Reason: "empty expression"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GuildWatchSettingsRepository().GetOrCreate(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}
	if !settings.IsEnabled {
		return nil, ErrWatchesDisabled
	}

	now := s.clock.Now()
	loc := ResolveLocation(settings.Timezone)

	scheduledAt, formatKind, err := ParseTimeExpression(req.RawTimeText, loc, now)
	if err != nil {
		return nil, err
	}

	window := AdvanceWindow{
		Min: time.Duration(s.cfg.MinAdvanceMinutes) * time.Minute,
		Max: time.Duration(settings.MaxAdvanceHours) * time.Hour,
	}
	if err := ValidateAdvance(scheduledAt, now, window); err != nil {
		return nil, err
	}

	watch := &models.Watch{
		GuildID:         req.GuildID,
		AccusedUserID:   req.AccusedUserID,
		InitiatorUserID: req.InitiatorUserID,
		ChannelID:       req.ChannelID,
		OriginMessageID: req.OriginMessageID,
		CustomMessage:   req.CustomMessage,
		ScheduledAt:     scheduledAt,
		Status:          models.WatchStatusPending,
		// Snapshot the window length so a later settings change does not
		// move an already-scheduled vote
		VotingDurationMinutes: settings.VotingDurationMinutes,
	}

	if err := uow.WatchRepository().Create(ctx, watch); err != nil {
		return nil, fmt.Errorf("failed to create watch: %w", err)
	}

	uow.EventBus().Publish(events.WatchCreatedEvent{
		WatchID:         watch.ID,
		GuildID:         watch.GuildID,
		ChannelID:       watch.ChannelID,
		AccusedUserID:   watch.AccusedUserID,
		InitiatorUserID: watch.InitiatorUserID,
		ScheduledAt:     watch.ScheduledAt.Format(time.RFC3339),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"watchID":     watch.ID,
		"guildID":     watch.GuildID,
		"scheduledAt": watch.ScheduledAt,
		"formatKind":  formatKind,
	}).Info("Watch created")

	return watch, nil
}

// ClearEarly moves a pending watch to cleared_early before its trigger time
func (s *watchService) ClearEarly(ctx context.Context, watchID, requestingUserID int64) (*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}
	if watch.Status != models.WatchStatusPending {
		return nil, &StateConflictError{WatchID: watchID, Operation: "clear", Actual: watch.Status}
	}

	now := s.clock.Now()
	ok, err := uow.WatchRepository().CompareAndSetStatus(ctx, watchID,
		models.WatchStatusPending, models.WatchStatusClearedEarly,
		StatusChangeFields{ResolvedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to clear watch: %w", err)
	}
	if !ok {
		// Lost the race against the scheduler or an admin action
		return nil, s.conflictFor(ctx, uow, watchID, "clear")
	}

	uow.EventBus().Publish(events.WatchStatusChangeEvent{
		WatchID:        watch.ID,
		GuildID:        watch.GuildID,
		ChannelID:      watch.ChannelID,
		AccusedUserID:  watch.AccusedUserID,
		OldStatus:      models.WatchStatusPending,
		NewStatus:      models.WatchStatusClearedEarly,
		GuiltyVotes:    watch.GuiltyVotes,
		NotGuiltyVotes: watch.NotGuiltyVotes,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"watchID":     watchID,
		"requestedBy": requestingUserID,
	}).Info("Watch cleared early")

	watch.Status = models.WatchStatusClearedEarly
	watch.ResolvedAt = &now
	return watch, nil
}

// CancelWatch moves a non-terminal watch to cancelled. Cancelling an
// already-terminal watch is a no-op failure, never a mutation.
func (s *watchService) CancelWatch(ctx context.Context, watchID int64, reason string) (*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}
	if watch.Status.IsTerminal() {
		return nil, &StateConflictError{WatchID: watchID, Operation: "cancel", Actual: watch.Status}
	}

	now := s.clock.Now()
	ok, err := uow.WatchRepository().CompareAndSetStatus(ctx, watchID,
		watch.Status, models.WatchStatusCancelled,
		StatusChangeFields{ResolvedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel watch: %w", err)
	}
	if !ok {
		return nil, s.conflictFor(ctx, uow, watchID, "cancel")
	}

	uow.EventBus().Publish(events.WatchStatusChangeEvent{
		WatchID:        watch.ID,
		GuildID:        watch.GuildID,
		ChannelID:      watch.ChannelID,
		AccusedUserID:  watch.AccusedUserID,
		OldStatus:      watch.Status,
		NewStatus:      models.WatchStatusCancelled,
		GuiltyVotes:    watch.GuiltyVotes,
		NotGuiltyVotes: watch.NotGuiltyVotes,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"watchID": watchID,
		"reason":  reason,
	}).Info("Watch cancelled")

	watch.Status = models.WatchStatusCancelled
	watch.ResolvedAt = &now
	return watch, nil
}

// GetWatch retrieves a watch by ID
func (s *watchService) GetWatch(ctx context.Context, watchID int64) (*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}
	return watch, nil
}

// ListGuildWatches returns a guild's watches matching the filters
func (s *watchService) ListGuildWatches(ctx context.Context, guildID int64, filters WatchFilters) ([]*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watches, err := uow.WatchRepository().ListByGuild(ctx, guildID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	return watches, nil
}

// conflictFor rebuilds a StateConflictError with the watch's current status
// after a failed compare-and-set
func (s *watchService) conflictFor(ctx context.Context, uow UnitOfWork, watchID int64, operation string) error {
	current, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil || current == nil {
		return &StateConflictError{WatchID: watchID, Operation: operation}
	}
	return &StateConflictError{WatchID: watchID, Operation: operation, Actual: current.Status}
}
