package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/flowedit/pkg/flowedit/event"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBus(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 10})
	defer bus.Close()

	var received atomic.Int32
	sub := bus.Subscribe([]string{event.NodeAdded}, func(ctx context.Context, evt event.Event) {
		received.Add(1)
	})
	defer sub.Unsubscribe()

	if err := bus.Publish(context.Background(), event.New(event.NodeAdded, "f1", event.WithNode("node_1"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, func() bool { return received.Load() == 1 })

	// Non-matching events are not delivered.
	_ = bus.Publish(context.Background(), event.New(event.NodeDeleted, "f1"))
	_ = bus.Publish(context.Background(), event.New(event.NodeAdded, "f1"))
	waitFor(t, func() bool { return received.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if received.Load() != 2 {
		t.Errorf("expected 2 received events, got %d", received.Load())
	}
}

func TestBusSubscribeAll_PreservesOrder(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 10})
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	bus.SubscribeAll(func(ctx context.Context, evt event.Event) {
		mu.Lock()
		got = append(got, evt.Type)
		mu.Unlock()
	})

	want := []string{event.NodeAdded, event.EdgeAdded, event.NodeDeleted, event.FlowSaved}
	for _, typ := range want {
		_ = bus.Publish(context.Background(), event.New(typ, "f1"))
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	})
	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	var received atomic.Int32
	sub := bus.SubscribeAll(func(ctx context.Context, evt event.Event) {
		received.Add(1)
	})
	sub.Unsubscribe()
	sub.Unsubscribe()

	_ = bus.Publish(context.Background(), event.New(event.NodeAdded, "f1"))
	time.Sleep(20 * time.Millisecond)
	if received.Load() != 0 {
		t.Errorf("expected no events after unsubscribe, got %d", received.Load())
	}
}

func TestBusNonBlockingDrops(t *testing.T) {
	var dropped atomic.Int32
	bus := event.NewBus(event.BusConfig{
		BufferSize:  1,
		NonBlocking: true,
		OnDrop: func(evt event.Event, subscriberID string) {
			dropped.Add(1)
		},
	})
	defer bus.Close()

	release := make(chan struct{})
	bus.SubscribeAll(func(ctx context.Context, evt event.Event) {
		<-release
	})

	for range 5 {
		if err := bus.Publish(context.Background(), event.New(event.NodeAdded, "f1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	close(release)

	// One event is in the handler, one in the buffer; the rest drop.
	if dropped.Load() < 3 {
		t.Errorf("expected at least 3 drops, got %d", dropped.Load())
	}
}

func TestBusBlockingRespectsContext(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 1})
	defer bus.Close()

	release := make(chan struct{})
	defer close(release)
	bus.SubscribeAll(func(ctx context.Context, evt event.Event) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var err error
	for range 3 {
		if err = bus.Publish(ctx, event.New(event.NodeAdded, "f1")); err != nil {
			break
		}
	}
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestBusClose(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	if err := bus.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := bus.Publish(context.Background(), event.New(event.NodeAdded, "f1")); err != event.ErrBusClosed {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
}

func TestNew(t *testing.T) {
	evt := event.New(event.EdgeAdded, "f1", event.WithNode("node_1"), event.WithEdge("edge-1"), event.WithData("Yes"))
	if evt.ID == "" {
		t.Error("expected generated id")
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if evt.FlowID != "f1" || evt.NodeID != "node_1" || evt.EdgeID != "edge-1" || evt.Data != "Yes" {
		t.Errorf("unexpected event: %+v", evt)
	}
	if other := event.New(event.EdgeAdded, "f1"); other.ID == evt.ID {
		t.Error("event ids must be unique")
	}
}
