package service

import (
	"time"

	"watchman/models"
)

// TransitionEffect marks the side effect a transition implies so the caller
// can announce it; the decision itself performs no I/O
type TransitionEffect string

const (
	EffectVotingOpened   TransitionEffect = "voting_opened"
	EffectWatchExpired   TransitionEffect = "watch_expired"
	EffectVerdictReached TransitionEffect = "verdict_reached"
)

// Transition is the outcome of a lifecycle decision
type Transition struct {
	NewStatus models.WatchStatus
	Effect    TransitionEffect
}

// DecideTransition is the pure state-machine step applied by the scheduler.
// Given the watch's current status and timestamps it returns the next status,
// or nil when nothing is due. Keeping this free of I/O lets the scheduler
// persist the result with a single conditional write.
//
// A pending watch is due at scheduledAt inclusive. A pending watch overdue by
// more than grace expires instead of opening a vote: starting a vote long
// after the scheduled moment would produce a meaningless verdict, so
// staleness takes precedence over triggering. Under steady ticking a watch
// can only be overdue by at most one tick interval, so the grace rule
// effectively fires after scheduler downtime or process restarts.
func DecideTransition(w *models.Watch, now time.Time, grace time.Duration) *Transition {
	switch w.Status {
	case models.WatchStatusPending:
		if !w.IsDue(now) {
			return nil
		}
		if now.Sub(w.ScheduledAt) > grace {
			return &Transition{NewStatus: models.WatchStatusExpired, Effect: EffectWatchExpired}
		}
		return &Transition{NewStatus: models.WatchStatusVoting, Effect: EffectVotingOpened}

	case models.WatchStatusVoting:
		if !w.IsVotingWindowExpired(now) {
			return nil
		}
		return &Transition{NewStatus: w.Tally().Verdict(), Effect: EffectVerdictReached}
	}

	// Terminal statuses never transition
	return nil
}
