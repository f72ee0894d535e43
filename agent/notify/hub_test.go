package notify

import (
	"errors"
	"sync"
	"testing"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	events   []any
	writeErr error
}

func (f *fakeSubscriber) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.events = append(f.events, v)
	return nil
}

func (f *fakeSubscriber) received() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.events...)
}

func TestPushOrderSnapshotDelivers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := &fakeSubscriber{}
	h.Attach("s1", sub)

	h.PushOrderSnapshot("s1", map[string]any{"total": 9.99})

	events := sub.received()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt, ok := events[0].(orderUpdateEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if evt.Type != "order_update" {
		t.Fatalf("event type = %q", evt.Type)
	}
}

func TestPushFinalizedDelivers(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := &fakeSubscriber{}
	h.Attach("s1", sub)

	h.PushFinalized("s1", 7)

	events := sub.received()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt, ok := events[0].(pastOrderEvent)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if evt.Type != "past_order" || evt.OrderNumber != 7 {
		t.Fatalf("unexpected event: %#v", evt)
	}
}

func TestPushWithoutSubscriberIsNoop(t *testing.T) {
	t.Parallel()

	h := NewHub()

	// Must not panic or block.
	h.PushOrderSnapshot("ghost", nil)
	h.PushFinalized("ghost", 1)
}

func TestPushToOtherSessionIsIsolated(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := &fakeSubscriber{}
	h.Attach("s1", sub)

	h.PushFinalized("s2", 1)

	if len(sub.received()) != 0 {
		t.Fatal("subscriber for s1 must not see s2 events")
	}
}

func TestFailedWriteDetaches(t *testing.T) {
	t.Parallel()

	h := NewHub()
	sub := &fakeSubscriber{writeErr: errors.New("connection reset")}
	h.Attach("s1", sub)

	h.PushFinalized("s1", 1)

	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after failed write", h.Len())
	}
}

func TestAttachReplacesSubscriber(t *testing.T) {
	t.Parallel()

	h := NewHub()
	old := &fakeSubscriber{}
	replacement := &fakeSubscriber{}
	h.Attach("s1", old)
	h.Attach("s1", replacement)

	h.PushFinalized("s1", 1)

	if len(old.received()) != 0 {
		t.Fatal("replaced subscriber must not receive events")
	}
	if len(replacement.received()) != 1 {
		t.Fatal("replacement subscriber must receive the event")
	}
}
