package repository

import (
	"context"
	"fmt"
	"strings"

	"watchman/database"
	"watchman/models"
	"watchman/service"

	"github.com/jackc/pgx/v5"
)

const watchColumns = `id, guild_id, accused_user_id, initiator_user_id, channel_id,
		origin_message_id, custom_message, scheduled_at, status, voting_duration_minutes,
		voting_started_at, resolved_at, guilty_votes, not_guilty_votes, created_at`

// WatchRepository implements watch data access
type WatchRepository struct {
	q queryable
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(db *database.DB) *WatchRepository {
	return &WatchRepository{q: db.Pool}
}

// newWatchRepositoryWithTx creates a new watch repository with a transaction
func newWatchRepositoryWithTx(tx queryable) *WatchRepository {
	return &WatchRepository{q: tx}
}

// Create persists a new watch and fills in its ID and CreatedAt
func (r *WatchRepository) Create(ctx context.Context, watch *models.Watch) error {
	query := `
		INSERT INTO watches (guild_id, accused_user_id, initiator_user_id, channel_id,
			origin_message_id, custom_message, scheduled_at, status, voting_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		watch.GuildID,
		watch.AccusedUserID,
		watch.InitiatorUserID,
		watch.ChannelID,
		watch.OriginMessageID,
		watch.CustomMessage,
		watch.ScheduledAt,
		watch.Status,
		watch.VotingDurationMinutes,
	).Scan(&watch.ID, &watch.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create watch: %w", err)
	}

	return nil
}

// GetByID retrieves a watch by its ID, nil if not found
func (r *WatchRepository) GetByID(ctx context.Context, id int64) (*models.Watch, error) {
	query := fmt.Sprintf(`SELECT %s FROM watches WHERE id = $1`, watchColumns)

	watch, err := scanWatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch %d: %w", id, err)
	}

	return watch, nil
}

// GetByIDForUpdate retrieves a watch by its ID with a row lock held until
// the enclosing transaction ends. Only meaningful inside a transaction.
func (r *WatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error) {
	query := fmt.Sprintf(`SELECT %s FROM watches WHERE id = $1 FOR UPDATE`, watchColumns)

	watch, err := scanWatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock watch %d: %w", id, err)
	}

	return watch, nil
}

// ListNonTerminal returns watches in pending or voting status across all
// guilds with id greater than afterID, ordered by id. Keyset paging keeps
// the cursor stable while the caller transitions rows out of the set.
func (r *WatchRepository) ListNonTerminal(ctx context.Context, afterID int64, limit int) ([]*models.Watch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM watches
		WHERE status IN ('pending', 'voting') AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, watchColumns)

	rows, err := r.q.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list non-terminal watches: %w", err)
	}
	defer rows.Close()

	return scanWatches(rows)
}

// ListByGuild returns a guild's watches matching the filters
func (r *WatchRepository) ListByGuild(ctx context.Context, guildID int64, filters service.WatchFilters) ([]*models.Watch, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM watches WHERE guild_id = $1`, watchColumns)

	args := []any{guildID}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if filters.AccusedUserID != nil {
		args = append(args, *filters.AccusedUserID)
		fmt.Fprintf(&sb, ` AND accused_user_id = $%d`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC, id DESC`)

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	return scanWatches(rows)
}

// ListTerminalByGuild returns every terminal-status watch for a guild
func (r *WatchRepository) ListTerminalByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM watches
		WHERE guild_id = $1
		  AND status IN ('guilty', 'not_guilty', 'cleared_early', 'cancelled', 'expired')
		ORDER BY id ASC
	`, watchColumns)

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list terminal watches for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	return scanWatches(rows)
}

// CompareAndSetStatus atomically moves a watch from expected to new status.
// The status predicate is part of the UPDATE itself, so of any number of
// concurrent callers exactly one observes true.
func (r *WatchRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, new models.WatchStatus, extra service.StatusChangeFields) (bool, error) {
	query := `
		UPDATE watches
		SET status = $1,
		    voting_started_at = COALESCE($2, voting_started_at),
		    resolved_at = COALESCE($3, resolved_at)
		WHERE id = $4 AND status = $5
	`

	tag, err := r.q.Exec(ctx, query, new, extra.VotingStartedAt, extra.ResolvedAt, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update watch %d status: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// IncrementVoteCount bumps the matching counter, guarded by the watch still
// being in voting status
func (r *WatchRepository) IncrementVoteCount(ctx context.Context, watchID int64, choice models.VoteChoice) (bool, error) {
	column := "not_guilty_votes"
	if choice == models.VoteChoiceGuilty {
		column = "guilty_votes"
	}

	query := fmt.Sprintf(`
		UPDATE watches
		SET %s = %s + 1
		WHERE id = $1 AND status = 'voting'
	`, column, column)

	tag, err := r.q.Exec(ctx, query, watchID)
	if err != nil {
		return false, fmt.Errorf("failed to increment vote count for watch %d: %w", watchID, err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanWatch(row pgx.Row) (*models.Watch, error) {
	var watch models.Watch
	err := row.Scan(
		&watch.ID,
		&watch.GuildID,
		&watch.AccusedUserID,
		&watch.InitiatorUserID,
		&watch.ChannelID,
		&watch.OriginMessageID,
		&watch.CustomMessage,
		&watch.ScheduledAt,
		&watch.Status,
		&watch.VotingDurationMinutes,
		&watch.VotingStartedAt,
		&watch.ResolvedAt,
		&watch.GuiltyVotes,
		&watch.NotGuiltyVotes,
		&watch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &watch, nil
}

func scanWatches(rows pgx.Rows) ([]*models.Watch, error) {
	var watches []*models.Watch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, watch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watches: %w", err)
	}

	return watches, nil
}
