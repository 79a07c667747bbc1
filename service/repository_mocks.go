package service

import (
	"context"
	"time"

	"watchman/events"
	"watchman/models"

	"github.com/stretchr/testify/mock"
)

// MockWatchRepository is a mock implementation of WatchRepository
type MockWatchRepository struct {
	mock.Mock
}

func (m *MockWatchRepository) Create(ctx context.Context, watch *models.Watch) error {
	args := m.Called(ctx, watch)
	return args.Error(0)
}

func (m *MockWatchRepository) GetByID(ctx context.Context, id int64) (*models.Watch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Watch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) ListNonTerminal(ctx context.Context, afterID int64, limit int) ([]*models.Watch, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) ListByGuild(ctx context.Context, guildID int64, filters WatchFilters) ([]*models.Watch, error) {
	args := m.Called(ctx, guildID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) ListTerminalByGuild(ctx context.Context, guildID int64) ([]*models.Watch, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Watch), args.Error(1)
}

func (m *MockWatchRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, new models.WatchStatus, extra StatusChangeFields) (bool, error) {
	args := m.Called(ctx, id, expected, new, extra)
	return args.Bool(0), args.Error(1)
}

func (m *MockWatchRepository) IncrementVoteCount(ctx context.Context, watchID int64, choice models.VoteChoice) (bool, error) {
	args := m.Called(ctx, watchID, choice)
	return args.Bool(0), args.Error(1)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) GetByVoter(ctx context.Context, watchID, voterID int64) (*models.Vote, error) {
	args := m.Called(ctx, watchID, voterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) GetByWatch(ctx context.Context, watchID int64) ([]*models.Vote, error) {
	args := m.Called(ctx, watchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) CountByWatch(ctx context.Context, watchID int64) (models.Tally, error) {
	args := m.Called(ctx, watchID)
	return args.Get(0).(models.Tally), args.Error(1)
}

// MockGuildWatchSettingsRepository is a mock implementation of GuildWatchSettingsRepository
type MockGuildWatchSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildWatchSettingsRepository) GetOrCreate(ctx context.Context, guildID int64) (*models.GuildWatchSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildWatchSettings), args.Error(1)
}

func (m *MockGuildWatchSettingsRepository) Update(ctx context.Context, settings *models.GuildWatchSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// noopPublisher swallows events for tests that don't assert on them
type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories; Begin/Commit/Rollback are mock expectations.
type MockUnitOfWork struct {
	mock.Mock
	watchRepo    WatchRepository
	voteRepo     VoteRepository
	settingsRepo GuildWatchSettingsRepository
	eventBus     EventPublisher
}

// SetRepositories wires the repositories this unit of work hands out.
// A nil eventBus defaults to a publisher that drops everything.
func (m *MockUnitOfWork) SetRepositories(watchRepo WatchRepository, voteRepo VoteRepository, settingsRepo GuildWatchSettingsRepository, eventBus EventPublisher) {
	m.watchRepo = watchRepo
	m.voteRepo = voteRepo
	m.settingsRepo = settingsRepo
	if eventBus == nil {
		eventBus = noopPublisher{}
	}
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) WatchRepository() WatchRepository {
	return m.watchRepo
}

func (m *MockUnitOfWork) VoteRepository() VoteRepository {
	return m.voteRepo
}

func (m *MockUnitOfWork) GuildWatchSettingsRepository() GuildWatchSettingsRepository {
	return m.settingsRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (f *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := f.Called()
	return args.Get(0).(UnitOfWork)
}

// fixedClock returns a constant instant, for deterministic tests
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
