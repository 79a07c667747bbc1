package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"watchman/models"
)

type leaderboardService struct {
	uowFactory UnitOfWorkFactory
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(uowFactory UnitOfWorkFactory) LeaderboardService {
	return &leaderboardService{uowFactory: uowFactory}
}

// GetAccusedLeaderboard ranks a guild's users by times found guilty, with
// total watches as the tiebreaker. Only watches that reached a verdict count
// toward the guilty rate; cleared, cancelled and expired watches appear in
// totals but never in rates.
func (s *leaderboardService) GetAccusedLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	statsByUser, _, err := s.aggregate(ctx, guildID)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LeaderboardEntry, 0, len(statsByUser))
	for _, stats := range statsByUser {
		entries = append(entries, &models.LeaderboardEntry{UserWatchStats: *stats})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].GuiltyCount != entries[j].GuiltyCount {
			return entries[i].GuiltyCount > entries[j].GuiltyCount
		}
		if entries[i].TotalWatches != entries[j].TotalWatches {
			return entries[i].TotalWatches > entries[j].TotalWatches
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// GetAccuserLeaderboard ranks a guild's initiators by accusations made, with
// confirmed-guilty count as the tiebreaker
func (s *leaderboardService) GetAccuserLeaderboard(ctx context.Context, guildID int64, limit int) ([]*models.AccuserLeaderboardEntry, error) {
	_, statsByAccuser, err := s.aggregate(ctx, guildID)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.AccuserLeaderboardEntry, 0, len(statsByAccuser))
	for _, stats := range statsByAccuser {
		entries = append(entries, &models.AccuserLeaderboardEntry{AccuserStats: *stats})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AccusationsMade != entries[j].AccusationsMade {
			return entries[i].AccusationsMade > entries[j].AccusationsMade
		}
		if entries[i].GuiltyVerdicts != entries[j].GuiltyVerdicts {
			return entries[i].GuiltyVerdicts > entries[j].GuiltyVerdicts
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// GetUserStats returns a single user's accused-side statistics; a user with
// no terminal watches gets a zeroed record rather than an error
func (s *leaderboardService) GetUserStats(ctx context.Context, guildID, userID int64) (*models.UserWatchStats, error) {
	statsByUser, _, err := s.aggregate(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if stats, ok := statsByUser[userID]; ok {
		return stats, nil
	}
	return &models.UserWatchStats{GuildID: guildID, UserID: userID}, nil
}

// aggregate folds a guild's terminal watches into per-accused and
// per-initiator statistics in one pass
func (s *leaderboardService) aggregate(ctx context.Context, guildID int64) (map[int64]*models.UserWatchStats, map[int64]*models.AccuserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watches, err := uow.WatchRepository().ListTerminalByGuild(ctx, guildID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list terminal watches: %w", err)
	}

	byAccused := make(map[int64]*models.UserWatchStats)
	byAccuser := make(map[int64]*models.AccuserStats)

	for _, watch := range watches {
		accused, ok := byAccused[watch.AccusedUserID]
		if !ok {
			accused = &models.UserWatchStats{GuildID: guildID, UserID: watch.AccusedUserID}
			byAccused[watch.AccusedUserID] = accused
		}
		accuser, ok := byAccuser[watch.InitiatorUserID]
		if !ok {
			accuser = &models.AccuserStats{GuildID: guildID, UserID: watch.InitiatorUserID}
			byAccuser[watch.InitiatorUserID] = accuser
		}

		accused.TotalWatches++
		accuser.AccusationsMade++

		switch watch.Status {
		case models.WatchStatusGuilty:
			accused.GuiltyCount++
			accuser.GuiltyVerdicts++
		case models.WatchStatusNotGuilty:
			accused.NotGuiltyCount++
		case models.WatchStatusClearedEarly:
			accused.ClearedEarlyCount++
		case models.WatchStatusExpired:
			accused.ExpiredCount++
		case models.WatchStatusCancelled:
			accused.CancelledCount++
		}

		activity := activityTime(watch)
		if activity.After(accused.LastActivity) {
			accused.LastActivity = activity
		}
		if activity.After(accuser.LastActivity) {
			accuser.LastActivity = activity
		}
	}

	for _, accused := range byAccused {
		verdicts := accused.GuiltyCount + accused.NotGuiltyCount
		if verdicts > 0 {
			accused.GuiltyRate = float64(accused.GuiltyCount) / float64(verdicts)
		}
	}
	for _, accuser := range byAccuser {
		if accuser.AccusationsMade > 0 {
			accuser.ConvictionRate = float64(accuser.GuiltyVerdicts) / float64(accuser.AccusationsMade)
		}
	}

	return byAccused, byAccuser, nil
}

func activityTime(w *models.Watch) time.Time {
	if w.ResolvedAt != nil {
		return *w.ResolvedAt
	}
	return w.CreatedAt
}
