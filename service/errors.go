package service

import (
	"errors"
	"fmt"

	"watchman/models"
)

// Sentinel errors returned as typed outcomes under concurrency; callers may
// report them to users but the engine treats them as expected conditions.
var (
	ErrAlreadyVoted     = errors.New("voter has already cast a vote for this watch")
	ErrNotInVotingState = errors.New("watch is not in voting state")
	ErrWatchNotFound    = errors.New("watch not found")
	ErrWatchesDisabled  = errors.New("watches are disabled for this guild")
)

// ParseError indicates unrecognized or invalid time text. User-correctable;
// surfaced to the intake layer for messaging.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse time expression %q: %s", e.Input, e.Reason)
}

// ValidationError indicates a parsed time outside the allowed advance
// window. User-correctable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StateConflictError indicates a transition attempted against a watch whose
// current status disallows it. Expected under concurrency; the losing side
// of a compare-and-set race observes this instead of mutating anything.
type StateConflictError struct {
	WatchID   int64
	Operation string
	Actual    models.WatchStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s watch %d in status %q", e.Operation, e.WatchID, e.Actual)
}

// IsStateConflict reports whether err is a StateConflictError
func IsStateConflict(err error) bool {
	var conflict *StateConflictError
	return errors.As(err, &conflict)
}
