package service

import (
	"context"
	"fmt"
	"time"

	"watchman/models"

	log "github.com/sirupsen/logrus"
)

type guildSettingsService struct {
	uowFactory UnitOfWorkFactory
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(uowFactory UnitOfWorkFactory) GuildSettingsService {
	return &guildSettingsService{uowFactory: uowFactory}
}

func (s *guildSettingsService) GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GuildWatchSettingsRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settings, nil
}

// UpdateTimezone validates the identifier against the IANA database before
// storing it; an unloadable zone would silently degrade every future parse
// to UTC
func (s *guildSettingsService) UpdateTimezone(ctx context.Context, guildID int64, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("unknown timezone %q", timezone)}
	}
	return s.update(ctx, guildID, "timezone", func(settings *models.GuildWatchSettings) {
		settings.Timezone = timezone
	})
}

func (s *guildSettingsService) UpdateVotingDuration(ctx context.Context, guildID int64, minutes int) error {
	if minutes < 1 || minutes > 1440 {
		return &ValidationError{Reason: "voting duration must be between 1 and 1440 minutes"}
	}
	return s.update(ctx, guildID, "votingDuration", func(settings *models.GuildWatchSettings) {
		settings.VotingDurationMinutes = minutes
	})
}

func (s *guildSettingsService) UpdateMaxAdvanceHours(ctx context.Context, guildID int64, hours int) error {
	if hours < 1 || hours > 8760 {
		return &ValidationError{Reason: "max advance must be between 1 hour and 1 year"}
	}
	return s.update(ctx, guildID, "maxAdvanceHours", func(settings *models.GuildWatchSettings) {
		settings.MaxAdvanceHours = hours
	})
}

func (s *guildSettingsService) SetEnabled(ctx context.Context, guildID int64, enabled bool) error {
	return s.update(ctx, guildID, "enabled", func(settings *models.GuildWatchSettings) {
		settings.IsEnabled = enabled
	})
}

func (s *guildSettingsService) SetPublicLeaderboard(ctx context.Context, guildID int64, enabled bool) error {
	return s.update(ctx, guildID, "publicLeaderboard", func(settings *models.GuildWatchSettings) {
		settings.PublicLeaderboardEnabled = enabled
	})
}

// update applies a mutation to a guild's settings row inside one transaction
func (s *guildSettingsService) update(ctx context.Context, guildID int64, field string, mutate func(*models.GuildWatchSettings)) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, err := uow.GuildWatchSettingsRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	mutate(settings)

	if err := uow.GuildWatchSettingsRepository().Update(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guildID": guildID,
		"field":   field,
	}).Info("Guild watch settings updated")

	return nil
}
