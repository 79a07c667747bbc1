package models

import (
	"time"
)

// WatchStatus represents the lifecycle state of a watch
type WatchStatus string

const (
	WatchStatusPending      WatchStatus = "pending"
	WatchStatusVoting       WatchStatus = "voting"
	WatchStatusGuilty       WatchStatus = "guilty"
	WatchStatusNotGuilty    WatchStatus = "not_guilty"
	WatchStatusClearedEarly WatchStatus = "cleared_early"
	WatchStatusCancelled    WatchStatus = "cancelled"
	WatchStatusExpired      WatchStatus = "expired"
)

// TerminalStatuses lists every status a watch can never leave
var TerminalStatuses = []WatchStatus{
	WatchStatusGuilty,
	WatchStatusNotGuilty,
	WatchStatusClearedEarly,
	WatchStatusCancelled,
	WatchStatusExpired,
}

// IsTerminal reports whether the status is final
func (s WatchStatus) IsTerminal() bool {
	switch s {
	case WatchStatusGuilty, WatchStatusNotGuilty, WatchStatusClearedEarly,
		WatchStatusCancelled, WatchStatusExpired:
		return true
	}
	return false
}

// IsVerdict reports whether the status is a vote outcome
func (s WatchStatus) IsVerdict() bool {
	return s == WatchStatusGuilty || s == WatchStatusNotGuilty
}

// Watch represents a scheduled accountability check against a user.
// scheduled_at and voting_started_at are always stored in UTC.
type Watch struct {
	ID                    int64       `db:"id"`
	GuildID               int64       `db:"guild_id"`
	AccusedUserID         int64       `db:"accused_user_id"`
	InitiatorUserID       int64       `db:"initiator_user_id"`
	ChannelID             int64       `db:"channel_id"`
	OriginMessageID       int64       `db:"origin_message_id"`
	CustomMessage         *string     `db:"custom_message"`
	ScheduledAt           time.Time   `db:"scheduled_at"`
	Status                WatchStatus `db:"status"`
	VotingDurationMinutes int         `db:"voting_duration_minutes"`
	VotingStartedAt       *time.Time  `db:"voting_started_at"`
	ResolvedAt            *time.Time  `db:"resolved_at"`
	GuiltyVotes           int         `db:"guilty_votes"`
	NotGuiltyVotes        int         `db:"not_guilty_votes"`
	CreatedAt             time.Time   `db:"created_at"`
}

// IsDue reports whether the scheduled trigger time has been reached.
// The boundary is inclusive: a watch is due at exactly scheduledAt.
func (w *Watch) IsDue(now time.Time) bool {
	return !now.Before(w.ScheduledAt)
}

// VotingDeadline returns the wall-clock end of the voting window.
// Returns the zero time if voting has not started.
func (w *Watch) VotingDeadline() time.Time {
	if w.VotingStartedAt == nil {
		return time.Time{}
	}
	return w.VotingStartedAt.Add(time.Duration(w.VotingDurationMinutes) * time.Minute)
}

// IsVotingWindowExpired reports whether an open voting window has passed.
// The deadline is inclusive: voting closes at exactly the deadline.
func (w *Watch) IsVotingWindowExpired(now time.Time) bool {
	if w.Status != WatchStatusVoting || w.VotingStartedAt == nil {
		return false
	}
	return !now.Before(w.VotingDeadline())
}

// Tally returns the current vote counts stored on the watch
func (w *Watch) Tally() Tally {
	return Tally{GuiltyVotes: w.GuiltyVotes, NotGuiltyVotes: w.NotGuiltyVotes}
}
