package models

import (
	"time"
)

// VoteChoice represents a voter's verdict choice
type VoteChoice string

const (
	VoteChoiceGuilty    VoteChoice = "guilty"
	VoteChoiceNotGuilty VoteChoice = "not_guilty"
)

// IsValid reports whether the choice is one of the two allowed values
func (c VoteChoice) IsValid() bool {
	return c == VoteChoiceGuilty || c == VoteChoiceNotGuilty
}

// Vote represents a single user's vote on a watch.
// Unique on (WatchID, VoterID).
type Vote struct {
	ID      int64      `db:"id"`
	WatchID int64      `db:"watch_id"`
	GuildID int64      `db:"guild_id"`
	VoterID int64      `db:"voter_id"`
	Choice  VoteChoice `db:"choice"`
	CastAt  time.Time  `db:"cast_at"`
}

// Tally represents the vote counts for a watch
type Tally struct {
	GuiltyVotes    int
	NotGuiltyVotes int
}

// Total returns the number of votes cast
func (t Tally) Total() int {
	return t.GuiltyVotes + t.NotGuiltyVotes
}

// Verdict returns the terminal status implied by the counts.
// A tie favors the accused.
func (t Tally) Verdict() WatchStatus {
	if t.GuiltyVotes > t.NotGuiltyVotes {
		return WatchStatusGuilty
	}
	return WatchStatusNotGuilty
}
