package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watchman/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVoteService is a mock implementation of VoteService
type MockVoteService struct {
	mock.Mock
}

func (m *MockVoteService) CastVote(ctx context.Context, watchID, voterID int64, choice models.VoteChoice) (models.Tally, error) {
	args := m.Called(ctx, watchID, voterID, choice)
	return args.Get(0).(models.Tally), args.Error(1)
}

func (m *MockVoteService) FinalizeVoting(ctx context.Context, watchID int64) (*models.Watch, error) {
	args := m.Called(ctx, watchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func newTestScheduler(factory UnitOfWorkFactory, votes VoteService, now time.Time) *WatchScheduler {
	return NewWatchScheduler(factory, votes, fixedClock{now}, 15*time.Second, time.Hour)
}

func TestScheduler_Tick_OpensVoting(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockPublisher := new(MockEventPublisher)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, mockPublisher)

	due := &models.Watch{
		ID:          1,
		GuildID:     100,
		Status:      models.WatchStatusPending,
		ScheduledAt: now.Add(-time.Minute),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).Return([]*models.Watch{due}, nil)
	mockWatchRepo.On("CompareAndSetStatus", ctx, int64(1),
		models.WatchStatusPending, models.WatchStatusVoting,
		mock.MatchedBy(func(extra StatusChangeFields) bool {
			return extra.VotingStartedAt != nil && extra.VotingStartedAt.Equal(now) && extra.ResolvedAt == nil
		})).Return(true, nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	scheduler := newTestScheduler(mockFactory, new(MockVoteService), now)
	require.NoError(t, scheduler.Tick(ctx))

	mockWatchRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestScheduler_Tick_ExpiresStalePending(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, nil)

	// Overdue by two hours with a one-hour grace window
	stale := &models.Watch{
		ID:          2,
		Status:      models.WatchStatusPending,
		ScheduledAt: now.Add(-2 * time.Hour),
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).Return([]*models.Watch{stale}, nil)
	mockWatchRepo.On("CompareAndSetStatus", ctx, int64(2),
		models.WatchStatusPending, models.WatchStatusExpired,
		mock.MatchedBy(func(extra StatusChangeFields) bool {
			return extra.ResolvedAt != nil && extra.ResolvedAt.Equal(now)
		})).Return(true, nil)

	scheduler := newTestScheduler(mockFactory, new(MockVoteService), now)
	require.NoError(t, scheduler.Tick(ctx))

	mockWatchRepo.AssertExpectations(t)
}

func TestScheduler_Tick_FinalizesExpiredVoting(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 10, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockVotes := new(MockVoteService)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, nil)

	started := now.Add(-10 * time.Minute)
	voting := &models.Watch{
		ID:                    3,
		Status:                models.WatchStatusVoting,
		ScheduledAt:           started.Add(-time.Minute),
		VotingStartedAt:       &started,
		VotingDurationMinutes: 5,
		GuiltyVotes:           2,
		NotGuiltyVotes:        1,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).Return([]*models.Watch{voting}, nil)
	mockVotes.On("FinalizeVoting", ctx, int64(3)).
		Return(&models.Watch{ID: 3, Status: models.WatchStatusGuilty}, nil)

	scheduler := newTestScheduler(mockFactory, mockVotes, now)
	require.NoError(t, scheduler.Tick(ctx))

	mockVotes.AssertExpectations(t)
	// The verdict path goes through the vote service, never a raw CAS here
	mockWatchRepo.AssertNotCalled(t, "CompareAndSetStatus")
}

func TestScheduler_Tick_LostFinalizationRaceIsSwallowed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 10, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockVotes := new(MockVoteService)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, nil)

	started := now.Add(-10 * time.Minute)
	voting := &models.Watch{
		ID:                    3,
		Status:                models.WatchStatusVoting,
		VotingStartedAt:       &started,
		VotingDurationMinutes: 5,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).Return([]*models.Watch{voting}, nil)
	mockVotes.On("FinalizeVoting", ctx, int64(3)).Return(nil, ErrNotInVotingState)

	scheduler := newTestScheduler(mockFactory, mockVotes, now)
	assert.NoError(t, scheduler.Tick(ctx))
}

func TestScheduler_Tick_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockPublisher := new(MockEventPublisher)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, mockPublisher)

	broken := &models.Watch{ID: 1, Status: models.WatchStatusPending, ScheduledAt: now.Add(-time.Minute)}
	healthy := &models.Watch{ID: 2, Status: models.WatchStatusPending, ScheduledAt: now.Add(-time.Minute)}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).
		Return([]*models.Watch{broken, healthy}, nil)
	mockWatchRepo.On("CompareAndSetStatus", ctx, int64(1),
		models.WatchStatusPending, models.WatchStatusVoting, mock.Anything).
		Return(false, errors.New("connection reset"))
	mockWatchRepo.On("CompareAndSetStatus", ctx, int64(2),
		models.WatchStatusPending, models.WatchStatusVoting, mock.Anything).
		Return(true, nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	scheduler := newTestScheduler(mockFactory, new(MockVoteService), now)
	// One bad watch never fails the pass or blocks the watches behind it
	require.NoError(t, scheduler.Tick(ctx))

	mockWatchRepo.AssertExpectations(t)
}

func TestScheduler_Tick_LostCASRaceIsNoOp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockPublisher := new(MockEventPublisher)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, mockPublisher)

	due := &models.Watch{ID: 1, Status: models.WatchStatusPending, ScheduledAt: now.Add(-time.Minute)}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).Return([]*models.Watch{due}, nil)
	mockWatchRepo.On("CompareAndSetStatus", ctx, int64(1),
		models.WatchStatusPending, models.WatchStatusVoting, mock.Anything).
		Return(false, nil)

	scheduler := newTestScheduler(mockFactory, new(MockVoteService), now)
	require.NoError(t, scheduler.Tick(ctx))

	// The losing side announces nothing
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestScheduler_Tick_FullPageAdvancesCursorPastTransitionedRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockPublisher := new(MockEventPublisher)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, mockPublisher)

	// A full first page, every watch due; all of them leave the active set
	// during the pass
	firstPage := make([]*models.Watch, schedulerPageSize)
	for i := range firstPage {
		firstPage[i] = &models.Watch{
			ID:          int64(i + 1),
			Status:      models.WatchStatusPending,
			ScheduledAt: now.Add(-time.Minute),
		}
	}
	lastID := firstPage[len(firstPage)-1].ID
	straggler := &models.Watch{
		ID:          lastID + 1,
		Status:      models.WatchStatusPending,
		ScheduledAt: now.Add(-time.Minute),
	}

	transitioned := make(map[int64]bool)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", ctx, int64(0), schedulerPageSize).
		Return(firstPage, nil)
	mockWatchRepo.On("ListNonTerminal", ctx, lastID, schedulerPageSize).
		Return([]*models.Watch{straggler}, nil)
	mockWatchRepo.On("CompareAndSetStatus", ctx, mock.AnythingOfType("int64"),
		models.WatchStatusPending, models.WatchStatusVoting, mock.Anything).
		Run(func(args mock.Arguments) {
			transitioned[args.Get(1).(int64)] = true
		}).
		Return(true, nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	scheduler := newTestScheduler(mockFactory, new(MockVoteService), now)
	require.NoError(t, scheduler.Tick(ctx))

	// The second page starts after the last id of the first, so the watch
	// right behind a fully-transitioned page is reached in the same tick
	assert.True(t, transitioned[straggler.ID])
	assert.Len(t, transitioned, schedulerPageSize+1)
	mockWatchRepo.AssertExpectations(t)
}

func TestScheduler_StartRunsImmediateTickAndStops(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockWatchRepo := new(MockWatchRepository)
	mockUoW.SetRepositories(mockWatchRepo, nil, nil, nil)

	ticked := make(chan struct{})
	var once sync.Once

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockWatchRepo.On("ListNonTerminal", mock.Anything, int64(0), schedulerPageSize).
		Run(func(mock.Arguments) {
			once.Do(func() { close(ticked) })
		}).
		Return([]*models.Watch{}, nil)

	scheduler := NewWatchScheduler(mockFactory, new(MockVoteService), fixedClock{now}, time.Hour, time.Hour)
	stop := scheduler.Start(context.Background())

	select {
	case <-ticked:
		// First tick ran without waiting for the interval
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler never ran its startup tick")
	}

	// Stop blocks until the loop goroutine exits
	stop()
}
