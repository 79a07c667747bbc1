package models

// GuildWatchSettings represents per-guild watch configuration
type GuildWatchSettings struct {
	GuildID                  int64  `db:"guild_id"`
	Timezone                 string `db:"timezone"` // IANA id, e.g. "America/New_York"
	MaxAdvanceHours          int    `db:"max_advance_hours"`
	VotingDurationMinutes    int    `db:"voting_duration_minutes"`
	IsEnabled                bool   `db:"is_enabled"`
	PublicLeaderboardEnabled bool   `db:"public_leaderboard_enabled"`
}
