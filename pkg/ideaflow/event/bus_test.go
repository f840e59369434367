package event

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventBuilders(t *testing.T) {
	evt := New(TypeNodeFailed, "sess-1").
		WithNode("chat").
		WithStage("brainstorm").
		WithError(errors.New("boom")).
		WithData("attempt", 2)

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, TypeNodeFailed, evt.Type)
	assert.Equal(t, "sess-1", evt.SessionID)
	assert.Equal(t, "chat", evt.Node)
	assert.Equal(t, "brainstorm", evt.Stage)
	assert.Equal(t, "boom", evt.Error)
	assert.Equal(t, 2, evt.Data["attempt"])
	assert.False(t, evt.Timestamp.IsZero())
}

func TestEventWithDataCopies(t *testing.T) {
	base := New(TypeNodeCompleted, "sess-1").WithData("a", 1)
	derived := base.WithData("b", 2)

	assert.Len(t, base.Data, 1)
	assert.Len(t, derived.Data, 2)
}

func TestBusTypedSubscription(t *testing.T) {
	bus := NewBus(BusConfig{})
	defer bus.Close()

	sub := bus.Subscribe(TypeStageAdvanced)
	require.NotNil(t, sub)

	bus.Publish(New(TypeNodeStarted, "sess-1"))
	bus.Publish(New(TypeStageAdvanced, "sess-1").WithStage("summary"))

	evt := recv(t, sub.Events())
	assert.Equal(t, TypeStageAdvanced, evt.Type)
	assert.Equal(t, "summary", evt.Stage)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected event: %s", extra.Type)
	default:
	}
}

func TestBusWildcardSubscription(t *testing.T) {
	bus := NewBus(BusConfig{})
	defer bus.Close()

	sub := bus.Subscribe()
	require.NotNil(t, sub)

	bus.Publish(New(TypeRunStarted, "sess-1"))
	bus.Publish(New(TypeRunCompleted, "sess-1"))

	assert.Equal(t, TypeRunStarted, recv(t, sub.Events()).Type)
	assert.Equal(t, TypeRunCompleted, recv(t, sub.Events()).Type)
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus(BusConfig{})
	defer bus.Close()

	a := bus.Subscribe(TypeNodeCompleted)
	b := bus.Subscribe(TypeNodeCompleted)

	bus.Publish(New(TypeNodeCompleted, "sess-1").WithNode("chat"))

	assert.Equal(t, "chat", recv(t, a.Events()).Node)
	assert.Equal(t, "chat", recv(t, b.Events()).Node)
}

func TestBusDropsWhenFull(t *testing.T) {
	var mu sync.Mutex
	var dropped []Event

	bus := NewBus(BusConfig{
		BufferSize: 1,
		OnDrop: func(evt Event, _ string) {
			mu.Lock()
			dropped = append(dropped, evt)
			mu.Unlock()
		},
	})
	defer bus.Close()

	sub := bus.Subscribe(TypeNodeStarted)

	bus.Publish(New(TypeNodeStarted, "sess-1").WithNode("chat"))
	bus.Publish(New(TypeNodeStarted, "sess-1").WithNode("voice"))

	mu.Lock()
	require.Len(t, dropped, 1)
	assert.Equal(t, "voice", dropped[0].Node)
	mu.Unlock()

	// First event still delivered
	assert.Equal(t, "chat", recv(t, sub.Events()).Node)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(BusConfig{})
	defer bus.Close()

	sub := bus.Subscribe(TypeRunFailed)
	sub.Unsubscribe()

	// Channel closed, publish is a no-op for this subscriber
	_, ok := <-sub.Events()
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		bus.Publish(New(TypeRunFailed, "sess-1"))
	})
}

// TestBusConcurrentUnsubscribe races Publish against Unsubscribe: a
// subscription removed between the match snapshot and the send must
// discard the event, never panic.
func TestBusConcurrentUnsubscribe(t *testing.T) {
	bus := NewBus(BusConfig{BufferSize: 1})
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			sub := bus.Subscribe(TypeNodeCompleted)
			sub.Unsubscribe()
		}
	}()

	evt := New(TypeNodeCompleted, "sess-1")
	for {
		select {
		case <-done:
			return
		default:
			bus.Publish(evt)
		}
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus(BusConfig{})
	sub := bus.Subscribe()

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close()) // idempotent

	_, ok := <-sub.Events()
	assert.False(t, ok)

	assert.Nil(t, bus.Subscribe())
	assert.NotPanics(t, func() {
		bus.Publish(New(TypeRunStarted, "sess-1"))
	})
}
