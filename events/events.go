package events

import (
	"context"
	"sync"

	"watchman/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeWatchCreated      EventType = "watch_created"
	EventTypeWatchStatusChange EventType = "watch_status_change"
	EventTypeVoteCast          EventType = "vote_cast"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// WatchCreatedEvent is published when a new watch is persisted in Pending
type WatchCreatedEvent struct {
	WatchID         int64
	GuildID         int64
	ChannelID       int64
	AccusedUserID   int64
	InitiatorUserID int64
	ScheduledAt     string // RFC3339 UTC, for announcement rendering
}

func (e WatchCreatedEvent) Type() EventType {
	return EventTypeWatchCreated
}

// WatchStatusChangeEvent is published whenever a watch transitions state.
// The notification layer uses it to post voting-started and verdict
// announcements; the engine itself delivers no messages.
type WatchStatusChangeEvent struct {
	WatchID        int64
	GuildID        int64
	ChannelID      int64
	AccusedUserID  int64
	OldStatus      models.WatchStatus
	NewStatus      models.WatchStatus
	GuiltyVotes    int
	NotGuiltyVotes int
}

func (e WatchStatusChangeEvent) Type() EventType {
	return EventTypeWatchStatusChange
}

// VoteCastEvent is published after a vote is committed
type VoteCastEvent struct {
	WatchID        int64
	GuildID        int64
	VoterID        int64
	Choice         models.VoteChoice
	GuiltyVotes    int
	NotGuiltyVotes int
}

func (e VoteCastEvent) Type() EventType {
	return EventTypeVoteCast
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published inside a unit of work and
// forwards them to the real bus only after the database commit succeeds.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
