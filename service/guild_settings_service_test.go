package service

import (
	"context"
	"testing"

	"watchman/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func settingsFixture(t *testing.T) (GuildSettingsService, *MockGuildWatchSettingsRepository, *MockUnitOfWork) {
	t.Helper()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingsRepo := new(MockGuildWatchSettingsRepository)
	mockUoW.SetRepositories(nil, nil, mockSettingsRepo, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	return NewGuildSettingsService(mockFactory), mockSettingsRepo, mockUoW
}

func TestGuildSettingsService_UpdateTimezone(t *testing.T) {
	ctx := context.Background()
	svc, mockRepo, _ := settingsFixture(t)

	settings := &models.GuildWatchSettings{GuildID: 100, Timezone: "UTC"}
	mockRepo.On("GetOrCreate", ctx, int64(100)).Return(settings, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(s *models.GuildWatchSettings) bool {
		return s.Timezone == "America/New_York"
	})).Return(nil)

	require.NoError(t, svc.UpdateTimezone(ctx, 100, "America/New_York"))
	mockRepo.AssertExpectations(t)
}

func TestGuildSettingsService_UpdateTimezone_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, mockRepo, _ := settingsFixture(t)

	err := svc.UpdateTimezone(ctx, 100, "Mars/Olympus_Mons")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	mockRepo.AssertNotCalled(t, "Update")
}

func TestGuildSettingsService_UpdateVotingDuration_Bounds(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		svc, mockRepo, _ := settingsFixture(t)
		settings := &models.GuildWatchSettings{GuildID: 100, VotingDurationMinutes: 5}
		mockRepo.On("GetOrCreate", ctx, int64(100)).Return(settings, nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(s *models.GuildWatchSettings) bool {
			return s.VotingDurationMinutes == 30
		})).Return(nil)

		require.NoError(t, svc.UpdateVotingDuration(ctx, 100, 30))
	})

	t.Run("out of range", func(t *testing.T) {
		svc, mockRepo, _ := settingsFixture(t)
		var validationErr *ValidationError
		assert.ErrorAs(t, svc.UpdateVotingDuration(ctx, 100, 0), &validationErr)
		assert.ErrorAs(t, svc.UpdateVotingDuration(ctx, 100, 1441), &validationErr)
		mockRepo.AssertNotCalled(t, "Update")
	})
}

func TestGuildSettingsService_SetEnabled(t *testing.T) {
	ctx := context.Background()
	svc, mockRepo, _ := settingsFixture(t)

	settings := &models.GuildWatchSettings{GuildID: 100, IsEnabled: true}
	mockRepo.On("GetOrCreate", ctx, int64(100)).Return(settings, nil)
	mockRepo.On("Update", ctx, mock.MatchedBy(func(s *models.GuildWatchSettings) bool {
		return !s.IsEnabled
	})).Return(nil)

	require.NoError(t, svc.SetEnabled(ctx, 100, false))
	mockRepo.AssertExpectations(t)
}
