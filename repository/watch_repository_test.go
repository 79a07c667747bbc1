package repository

import (
	"context"
	"testing"
	"time"

	"watchman/events"
	"watchman/models"
	"watchman/repository/testutil"
	"watchman/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	scheduledAt := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)

	t.Run("missing watch returns nil", func(t *testing.T) {
		watch, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, watch)
	})

	t.Run("roundtrip", func(t *testing.T) {
		message := "said they'd finish the report"
		original := testutil.CreateTestWatch(100, 200, scheduledAt)
		original.CustomMessage = &message

		err := repo.Create(ctx, original)
		require.NoError(t, err)
		assert.NotZero(t, original.ID)
		assert.False(t, original.CreatedAt.IsZero())

		watch, err := repo.GetByID(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, watch)

		assert.Equal(t, int64(100), watch.GuildID)
		assert.Equal(t, int64(200), watch.AccusedUserID)
		assert.Equal(t, models.WatchStatusPending, watch.Status)
		assert.Equal(t, 5, watch.VotingDurationMinutes)
		assert.True(t, watch.ScheduledAt.Equal(scheduledAt))
		require.NotNil(t, watch.CustomMessage)
		assert.Equal(t, message, *watch.CustomMessage)
		assert.Nil(t, watch.VotingStartedAt)
		assert.Nil(t, watch.ResolvedAt)
		assert.Zero(t, watch.GuiltyVotes)
	})
}

func TestWatchRepository_CompareAndSetStatus(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	watch := testutil.CreateTestWatch(100, 200, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, watch))

	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("matching expected status wins", func(t *testing.T) {
		ok, err := repo.CompareAndSetStatus(ctx, watch.ID,
			models.WatchStatusPending, models.WatchStatusVoting,
			service.StatusChangeFields{VotingStartedAt: &now})
		require.NoError(t, err)
		assert.True(t, ok)

		updated, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusVoting, updated.Status)
		require.NotNil(t, updated.VotingStartedAt)
		assert.True(t, updated.VotingStartedAt.Equal(now))
	})

	t.Run("stale expected status loses without mutating", func(t *testing.T) {
		ok, err := repo.CompareAndSetStatus(ctx, watch.ID,
			models.WatchStatusPending, models.WatchStatusExpired,
			service.StatusChangeFields{ResolvedAt: &now})
		require.NoError(t, err)
		assert.False(t, ok)

		current, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusVoting, current.Status)
		assert.Nil(t, current.ResolvedAt)
	})

	t.Run("only one of two competing transitions wins", func(t *testing.T) {
		first, err := repo.CompareAndSetStatus(ctx, watch.ID,
			models.WatchStatusVoting, models.WatchStatusGuilty,
			service.StatusChangeFields{ResolvedAt: &now})
		require.NoError(t, err)

		second, err := repo.CompareAndSetStatus(ctx, watch.ID,
			models.WatchStatusVoting, models.WatchStatusNotGuilty,
			service.StatusChangeFields{ResolvedAt: &now})
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)

		final, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WatchStatusGuilty, final.Status)
	})
}

func TestWatchRepository_IncrementVoteCount(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	watch := testutil.CreateTestWatch(100, 200, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, watch))

	t.Run("guard rejects non-voting watch", func(t *testing.T) {
		ok, err := repo.IncrementVoteCount(ctx, watch.ID, models.VoteChoiceGuilty)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	now := time.Now().UTC()
	_, err := repo.CompareAndSetStatus(ctx, watch.ID,
		models.WatchStatusPending, models.WatchStatusVoting,
		service.StatusChangeFields{VotingStartedAt: &now})
	require.NoError(t, err)

	t.Run("increments matching counter while voting", func(t *testing.T) {
		ok, err := repo.IncrementVoteCount(ctx, watch.ID, models.VoteChoiceGuilty)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IncrementVoteCount(ctx, watch.ID, models.VoteChoiceNotGuilty)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IncrementVoteCount(ctx, watch.ID, models.VoteChoiceGuilty)
		require.NoError(t, err)
		assert.True(t, ok)

		updated, err := repo.GetByID(ctx, watch.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.GuiltyVotes)
		assert.Equal(t, 1, updated.NotGuiltyVotes)
	})
}

func TestWatchRepository_GetByIDForUpdate_BlocksConcurrentIncrement(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	watch := testutil.CreateTestWatch(100, 200, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, watch))

	now := time.Now().UTC()
	ok, err := repo.CompareAndSetStatus(ctx, watch.ID,
		models.WatchStatusPending, models.WatchStatusVoting,
		service.StatusChangeFields{VotingStartedAt: &now})
	require.NoError(t, err)
	require.True(t, ok)

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	locked, err := uow.WatchRepository().GetByIDForUpdate(ctx, watch.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Equal(t, models.WatchStatusVoting, locked.Status)

	// An increment from outside the transaction must wait on the row lock
	incremented := make(chan error, 1)
	go func() {
		_, err := repo.IncrementVoteCount(ctx, watch.ID, models.VoteChoiceGuilty)
		incremented <- err
	}()

	select {
	case <-incremented:
		t.Fatal("increment completed while the row was locked")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, uow.Rollback())

	select {
	case err := <-incremented:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("increment never completed after the lock was released")
	}
}

func TestWatchRepository_Listings(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWatchRepository(testDB.DB)
	ctx := context.Background()

	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	now := base

	// Two active watches in guild 100, one in guild 101, one finished
	early := testutil.CreateTestWatch(100, 200, base.Add(time.Hour))
	late := testutil.CreateTestWatch(100, 201, base.Add(2*time.Hour))
	other := testutil.CreateTestWatch(101, 202, base.Add(30*time.Minute))
	finished := testutil.CreateTestWatch(100, 200, base)

	for _, w := range []*models.Watch{early, late, other, finished} {
		require.NoError(t, repo.Create(ctx, w))
	}
	_, err := repo.CompareAndSetStatus(ctx, finished.ID,
		models.WatchStatusPending, models.WatchStatusClearedEarly,
		service.StatusChangeFields{ResolvedAt: &now})
	require.NoError(t, err)

	t.Run("ListNonTerminal spans guilds in id order", func(t *testing.T) {
		watches, err := repo.ListNonTerminal(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, watches, 3)
		assert.Equal(t, early.ID, watches[0].ID)
		assert.Equal(t, late.ID, watches[1].ID)
		assert.Equal(t, other.ID, watches[2].ID)
	})

	t.Run("ListNonTerminal pages past the cursor", func(t *testing.T) {
		watches, err := repo.ListNonTerminal(ctx, early.ID, 2)
		require.NoError(t, err)
		require.Len(t, watches, 2)
		assert.Equal(t, late.ID, watches[0].ID)
		assert.Equal(t, other.ID, watches[1].ID)

		watches, err = repo.ListNonTerminal(ctx, other.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, watches)
	})

	t.Run("ListByGuild with filters", func(t *testing.T) {
		watches, err := repo.ListByGuild(ctx, 100, service.WatchFilters{})
		require.NoError(t, err)
		assert.Len(t, watches, 3)

		accused := int64(200)
		watches, err = repo.ListByGuild(ctx, 100, service.WatchFilters{AccusedUserID: &accused})
		require.NoError(t, err)
		assert.Len(t, watches, 2)

		status := models.WatchStatusPending
		watches, err = repo.ListByGuild(ctx, 100, service.WatchFilters{Status: &status, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, watches, 1)
	})

	t.Run("ListTerminalByGuild", func(t *testing.T) {
		watches, err := repo.ListTerminalByGuild(ctx, 100)
		require.NoError(t, err)
		require.Len(t, watches, 1)
		assert.Equal(t, finished.ID, watches[0].ID)
	})
}
