package repository

import (
	"context"
	"fmt"

	"watchman/database"
	"watchman/models"
	"watchman/service"

	"github.com/jackc/pgx/v5"
)

// VoteRepository implements watch vote data access
type VoteRepository struct {
	q queryable
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.DB) *VoteRepository {
	return &VoteRepository{q: db.Pool}
}

// newVoteRepositoryWithTx creates a new vote repository with a transaction
func newVoteRepositoryWithTx(tx queryable) *VoteRepository {
	return &VoteRepository{q: tx}
}

// Create inserts a vote row. The unique constraint on (watch_id, voter_id)
// is the source of truth for one-vote-per-voter; a duplicate insert affects
// zero rows and surfaces as ErrAlreadyVoted.
func (r *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	query := `
		INSERT INTO watch_votes (watch_id, guild_id, voter_id, choice)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (watch_id, voter_id) DO NOTHING
		RETURNING id, cast_at
	`

	err := r.q.QueryRow(ctx, query,
		vote.WatchID,
		vote.GuildID,
		vote.VoterID,
		vote.Choice,
	).Scan(&vote.ID, &vote.CastAt)

	if err == pgx.ErrNoRows {
		return service.ErrAlreadyVoted
	}
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}

	return nil
}

// GetByVoter returns the vote a user cast on a watch, nil if none
func (r *VoteRepository) GetByVoter(ctx context.Context, watchID, voterID int64) (*models.Vote, error) {
	query := `
		SELECT id, watch_id, guild_id, voter_id, choice, cast_at
		FROM watch_votes
		WHERE watch_id = $1 AND voter_id = $2
	`

	var vote models.Vote
	err := r.q.QueryRow(ctx, query, watchID, voterID).Scan(
		&vote.ID,
		&vote.WatchID,
		&vote.GuildID,
		&vote.VoterID,
		&vote.Choice,
		&vote.CastAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return &vote, nil
}

// GetByWatch returns all votes for a watch in cast order
func (r *VoteRepository) GetByWatch(ctx context.Context, watchID int64) ([]*models.Vote, error) {
	query := `
		SELECT id, watch_id, guild_id, voter_id, choice, cast_at
		FROM watch_votes
		WHERE watch_id = $1
		ORDER BY cast_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for watch %d: %w", watchID, err)
	}
	defer rows.Close()

	var votes []*models.Vote
	for rows.Next() {
		var vote models.Vote
		err := rows.Scan(
			&vote.ID,
			&vote.WatchID,
			&vote.GuildID,
			&vote.VoterID,
			&vote.Choice,
			&vote.CastAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, &vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// CountByWatch tallies the vote rows for a watch
func (r *VoteRepository) CountByWatch(ctx context.Context, watchID int64) (models.Tally, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE choice = 'guilty') as guilty_votes,
			COUNT(*) FILTER (WHERE choice = 'not_guilty') as not_guilty_votes
		FROM watch_votes
		WHERE watch_id = $1
	`

	var tally models.Tally
	err := r.q.QueryRow(ctx, query, watchID).Scan(&tally.GuiltyVotes, &tally.NotGuiltyVotes)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to count votes for watch %d: %w", watchID, err)
	}

	return tally, nil
}
