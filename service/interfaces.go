package service

import (
	"context"
	"time"

	"watchman/events"
	"watchman/models"
)

// WatchFilters narrows guild-scoped watch listings
type WatchFilters struct {
	Status        *models.WatchStatus
	AccusedUserID *int64
	Limit         int
	Offset        int
}

// StatusChangeFields carries the extra columns written alongside a
// conditional status update
type StatusChangeFields struct {
	VotingStartedAt *time.Time
	ResolvedAt      *time.Time
}

// WatchRepository defines the interface for watch data access
type WatchRepository interface {
	// Create persists a new watch and fills in its ID and CreatedAt
	Create(ctx context.Context, watch *models.Watch) error

	// GetByID retrieves a watch by its ID, nil if not found
	GetByID(ctx context.Context, id int64) (*models.Watch, error)

	// GetByIDForUpdate retrieves a watch by its ID and locks the row for the
	// rest of the transaction. Writers racing this read block until the
	// transaction ends, so counters read through it cannot move underneath a
	// decision based on them.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error)

	// ListNonTerminal returns watches in pending or voting status across all
	// guilds with id greater than afterID, ordered by id. Keyset paging: rows
	// leaving the set between pages never shift the cursor.
	ListNonTerminal(ctx context.Context, afterID int64, limit int) ([]*models.Watch, error)

	// ListByGuild returns a guild's watches matching the filters
	ListByGuild(ctx context.Context, guildID int64, filters WatchFilters) ([]*models.Watch, error)

	// ListTerminalByGuild returns every terminal-status watch for a guild
	ListTerminalByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error)

	// CompareAndSetStatus atomically moves a watch from expected to new
	// status, writing any extra fields in the same statement. Returns false
	// without error when the stored status no longer matches expected.
	CompareAndSetStatus(ctx context.Context, id int64, expected, new models.WatchStatus, extra StatusChangeFields) (bool, error)

	// IncrementVoteCount bumps the matching counter, guarded by the watch
	// still being in voting status. Returns false when the guard fails.
	IncrementVoteCount(ctx context.Context, watchID int64, choice models.VoteChoice) (bool, error)
}

// VoteRepository defines the interface for vote data access
type VoteRepository interface {
	// Create inserts a vote row; returns ErrAlreadyVoted when a row for
	// (WatchID, VoterID) already exists
	Create(ctx context.Context, vote *models.Vote) error

	// GetByVoter returns the vote a user cast on a watch, nil if none
	GetByVoter(ctx context.Context, watchID, voterID int64) (*models.Vote, error)

	// GetByWatch returns all votes for a watch in cast order
	GetByWatch(ctx context.Context, watchID int64) ([]*models.Vote, error)

	// CountByWatch tallies the vote rows for a watch
	CountByWatch(ctx context.Context, watchID int64) (models.Tally, error)
}

// GuildWatchSettingsRepository defines the interface for guild settings data access
type GuildWatchSettingsRepository interface {
	// GetOrCreate retrieves a guild's settings, creating the default row if absent
	GetOrCreate(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error)

	// Update overwrites a guild's settings
	Update(ctx context.Context, settings *models.GuildWatchSettings) error
}

// CreateWatchRequest is the accusation intake payload
type CreateWatchRequest struct {
	GuildID         int64
	AccusedUserID   int64
	InitiatorUserID int64
	ChannelID       int64
	OriginMessageID int64
	RawTimeText     string
	CustomMessage   *string
}

// WatchService defines the interface for watch intake and admin operations
type WatchService interface {
	// CreateWatch parses and validates the raw time text against the guild's
	// settings and persists a pending watch
	CreateWatch(ctx context.Context, req CreateWatchRequest) (*models.Watch, error)

	// ClearEarly moves a pending watch to cleared_early. Authorization of the
	// requester is the caller's responsibility.
	ClearEarly(ctx context.Context, watchID, requestingUserID int64) (*models.Watch, error)

	// CancelWatch moves a non-terminal watch to cancelled
	CancelWatch(ctx context.Context, watchID int64, reason string) (*models.Watch, error)

	// GetWatch retrieves a watch by ID
	GetWatch(ctx context.Context, watchID int64) (*models.Watch, error)

	// ListGuildWatches returns a guild's watches matching the filters
	ListGuildWatches(ctx context.Context, guildID int64, filters WatchFilters) ([]*models.Watch, error)
}

// VoteService defines the interface for vote tally operations
type VoteService interface {
	// CastVote records one vote per voter per watch and returns the updated
	// tally. Fails with ErrAlreadyVoted or ErrNotInVotingState.
	CastVote(ctx context.Context, watchID, voterID int64, choice models.VoteChoice) (models.Tally, error)

	// FinalizeVoting closes the voting window and applies the verdict.
	// Allowed only from voting status.
	FinalizeVoting(ctx context.Context, watchID int64) (*models.Watch, error)
}

// LeaderboardService derives guild statistics from terminal watches
type LeaderboardService interface {
	// GetAccusedLeaderboard ranks users by times found guilty
	GetAccusedLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error)

	// GetAccuserLeaderboard ranks initiators by accusations made
	GetAccuserLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.AccuserLeaderboardEntry, error)

	// GetUserStats returns a single user's accused-side statistics
	GetUserStats(ctx context.Context, guildID, userID int64) (*models.UserWatchStats, error)
}

// GuildSettingsService defines the interface for guild settings operations
type GuildSettingsService interface {
	// GetOrCreateSettings retrieves guild settings or creates default ones
	GetOrCreateSettings(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error)

	// UpdateTimezone sets the guild's IANA timezone after validating it
	UpdateTimezone(ctx context.Context, guildID int64, timezone string) error

	// UpdateVotingDuration sets the voting window length for new watches
	UpdateVotingDuration(ctx context.Context, guildID int64, minutes int) error

	// UpdateMaxAdvanceHours sets how far ahead watches may be scheduled
	UpdateMaxAdvanceHours(ctx context.Context, guildID int64, hours int) error

	// SetEnabled toggles watch creation for the guild
	SetEnabled(ctx context.Context, guildID int64, enabled bool) error

	// SetPublicLeaderboard toggles leaderboard visibility
	SetPublicLeaderboard(ctx context.Context, guildID int64, enabled bool) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// Clock abstracts wall-clock access so due-detection, roll-forward and
// recovery logic are deterministic under test
type Clock interface {
	Now() time.Time
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	WatchRepository() WatchRepository
	VoteRepository() VoteRepository
	GuildWatchSettingsRepository() GuildWatchSettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a new UnitOfWork instance
	Create() UnitOfWork
}
