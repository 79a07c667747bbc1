package models

import (
	"time"
)

// UserWatchStats holds per-user accused-side statistics, derived from
// terminal watches on demand and never persisted as running counters.
type UserWatchStats struct {
	GuildID           int64
	UserID            int64
	TotalWatches      int // terminal watches where the user was accused
	GuiltyCount       int
	NotGuiltyCount    int
	ClearedEarlyCount int
	ExpiredCount      int
	CancelledCount    int
	GuiltyRate        float64 // GuiltyCount over verdict-reaching watches
	LastActivity      time.Time
}

// AccuserStats holds per-initiator statistics over terminal watches
type AccuserStats struct {
	GuildID         int64
	UserID          int64
	AccusationsMade int
	GuiltyVerdicts  int
	ConvictionRate  float64 // GuiltyVerdicts over accusations made
	LastActivity    time.Time
}

// LeaderboardEntry is a ranked row of the accused leaderboard
type LeaderboardEntry struct {
	Rank int
	UserWatchStats
}

// AccuserLeaderboardEntry is a ranked row of the accuser leaderboard
type AccuserLeaderboardEntry struct {
	Rank int
	AccuserStats
}
