package events

import (
	"context"
	"testing"
	"time"

	"watchman/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitDispatchesToSubscribers(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeVoteCast, func(ctx context.Context, event Event) {
		received <- event
	})

	bus.Emit(context.Background(), VoteCastEvent{WatchID: 1, VoterID: 2, Choice: models.VoteChoiceGuilty})

	select {
	case event := <-received:
		cast, ok := event.(VoteCastEvent)
		require.True(t, ok)
		assert.Equal(t, int64(1), cast.WatchID)
	case <-time.After(time.Second):
		t.Fatal("handler never received the event")
	}
}

func TestBus_EmitIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeWatchCreated, func(ctx context.Context, event Event) {
		received <- event
	})

	bus.Emit(context.Background(), VoteCastEvent{WatchID: 1})

	select {
	case <-received:
		t.Fatal("handler received an event of the wrong type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_HandlerPanicDoesNotPropagate(t *testing.T) {
	bus := NewBus()
	received := make(chan struct{}, 1)

	bus.Subscribe(EventTypeVoteCast, func(ctx context.Context, event Event) {
		panic("handler bug")
	})
	bus.Subscribe(EventTypeVoteCast, func(ctx context.Context, event Event) {
		received <- struct{}{}
	})

	bus.Emit(context.Background(), VoteCastEvent{WatchID: 1})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestTransactionalBus_FlushAfterCommit(t *testing.T) {
	real := NewBus()
	received := make(chan Event, 2)
	real.Subscribe(EventTypeWatchStatusChange, func(ctx context.Context, event Event) {
		received <- event
	})

	txBus := NewTransactionalBus(real)
	txBus.Publish(WatchStatusChangeEvent{WatchID: 1})
	txBus.Publish(WatchStatusChangeEvent{WatchID: 2})

	// Nothing reaches subscribers before the flush
	select {
	case <-received:
		t.Fatal("event leaked before flush")
	case <-time.After(50 * time.Millisecond):
	}

	txBus.Flush(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("flushed event never arrived")
		}
	}
}

func TestTransactionalBus_DiscardDropsPending(t *testing.T) {
	real := NewBus()
	received := make(chan Event, 1)
	real.Subscribe(EventTypeWatchStatusChange, func(ctx context.Context, event Event) {
		received <- event
	})

	txBus := NewTransactionalBus(real)
	txBus.Publish(WatchStatusChangeEvent{WatchID: 1})
	txBus.Discard()
	txBus.Flush(context.Background())

	select {
	case <-received:
		t.Fatal("discarded event was delivered")
	case <-time.After(50 * time.Millisecond):
	}
}
