package repository

import (
	"context"
	"testing"
	"time"

	"watchman/models"
	"watchman/repository/testutil"
	"watchman/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVotingWatch(t *testing.T, testDB *testutil.TestDatabase) *models.Watch {
	t.Helper()
	ctx := context.Background()

	watchRepo := NewWatchRepository(testDB.DB)
	watch := testutil.CreateTestWatch(100, 200, time.Now().UTC())
	require.NoError(t, watchRepo.Create(ctx, watch))

	now := time.Now().UTC()
	ok, err := watchRepo.CompareAndSetStatus(ctx, watch.ID,
		models.WatchStatusPending, models.WatchStatusVoting,
		service.StatusChangeFields{VotingStartedAt: &now})
	require.NoError(t, err)
	require.True(t, ok)

	return watch
}

func TestVoteRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	watch := setupVotingWatch(t, testDB)

	t.Run("first vote succeeds", func(t *testing.T) {
		vote := testutil.CreateTestVote(watch.ID, watch.GuildID, 900, models.VoteChoiceGuilty)
		err := repo.Create(ctx, vote)
		require.NoError(t, err)
		assert.NotZero(t, vote.ID)
		assert.False(t, vote.CastAt.IsZero())
	})

	t.Run("second vote by same voter fails", func(t *testing.T) {
		dup := testutil.CreateTestVote(watch.ID, watch.GuildID, 900, models.VoteChoiceNotGuilty)
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, service.ErrAlreadyVoted)
	})

	t.Run("same voter may vote on a different watch", func(t *testing.T) {
		other := setupVotingWatch(t, testDB)
		vote := testutil.CreateTestVote(other.ID, other.GuildID, 900, models.VoteChoiceNotGuilty)
		assert.NoError(t, repo.Create(ctx, vote))
	})
}

func TestVoteRepository_GetByVoter(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	watch := setupVotingWatch(t, testDB)

	vote, err := repo.GetByVoter(ctx, watch.ID, 900)
	require.NoError(t, err)
	assert.Nil(t, vote)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestVote(watch.ID, watch.GuildID, 900, models.VoteChoiceGuilty)))

	vote, err = repo.GetByVoter(ctx, watch.ID, 900)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.VoteChoiceGuilty, vote.Choice)
}

func TestVoteRepository_Tallying(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	watch := setupVotingWatch(t, testDB)

	t.Run("empty tally", func(t *testing.T) {
		tally, err := repo.CountByWatch(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Tally{}, tally)
	})

	for voter, choice := range map[int64]models.VoteChoice{
		901: models.VoteChoiceGuilty,
		902: models.VoteChoiceGuilty,
		903: models.VoteChoiceNotGuilty,
	} {
		require.NoError(t, repo.Create(ctx, testutil.CreateTestVote(watch.ID, watch.GuildID, voter, choice)))
	}

	t.Run("counts by choice", func(t *testing.T) {
		tally, err := repo.CountByWatch(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Tally{GuiltyVotes: 2, NotGuiltyVotes: 1}, tally)
	})

	t.Run("GetByWatch returns all rows", func(t *testing.T) {
		votes, err := repo.GetByWatch(ctx, watch.ID)
		require.NoError(t, err)
		assert.Len(t, votes, 3)
	})
}
