package repository

import (
	"context"
	"fmt"

	"watchman/database"
	"watchman/models"

	"github.com/jackc/pgx/v5"
)

// GuildWatchSettingsRepository implements guild settings data access
type GuildWatchSettingsRepository struct {
	q queryable
}

// NewGuildWatchSettingsRepository creates a new guild settings repository
func NewGuildWatchSettingsRepository(db *database.DB) *GuildWatchSettingsRepository {
	return &GuildWatchSettingsRepository{q: db.Pool}
}

// newGuildWatchSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func newGuildWatchSettingsRepositoryWithTx(tx queryable) *GuildWatchSettingsRepository {
	return &GuildWatchSettingsRepository{q: tx}
}

// GetOrCreate retrieves a guild's settings, creating the default row if
// absent. The insert is conflict-tolerant so two concurrent first calls for
// a guild both succeed.
func (r *GuildWatchSettingsRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error) {
	settings, err := r.get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	query := `
		INSERT INTO guild_watch_settings (guild_id)
		VALUES ($1)
		ON CONFLICT (guild_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to create settings for guild %d: %w", guildID, err)
	}

	settings, err = r.get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, fmt.Errorf("settings for guild %d missing after insert", guildID)
	}
	return settings, nil
}

// Update overwrites a guild's settings
func (r *GuildWatchSettingsRepository) Update(ctx context.Context, settings *models.GuildWatchSettings) error {
	query := `
		UPDATE guild_watch_settings
		SET timezone = $2,
		    max_advance_hours = $3,
		    voting_duration_minutes = $4,
		    is_enabled = $5,
		    public_leaderboard_enabled = $6
		WHERE guild_id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		settings.GuildID,
		settings.Timezone,
		settings.MaxAdvanceHours,
		settings.VotingDurationMinutes,
		settings.IsEnabled,
		settings.PublicLeaderboardEnabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings for guild %d: %w", settings.GuildID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no settings row for guild %d", settings.GuildID)
	}

	return nil
}

func (r *GuildWatchSettingsRepository) get(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error) {
	query := `
		SELECT guild_id, timezone, max_advance_hours, voting_duration_minutes,
			is_enabled, public_leaderboard_enabled
		FROM guild_watch_settings
		WHERE guild_id = $1
	`

	var settings models.GuildWatchSettings
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&settings.GuildID,
		&settings.Timezone,
		&settings.MaxAdvanceHours,
		&settings.VotingDurationMinutes,
		&settings.IsEnabled,
		&settings.PublicLeaderboardEnabled,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for guild %d: %w", guildID, err)
	}

	return &settings, nil
}
