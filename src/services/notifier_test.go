package services

import (
	"testing"
	"time"
)

func TestNotifier_SubscribeAndPublish(t *testing.T) {
	n := NewNotifier()
	events, cancel := n.Subscribe()
	defer cancel()

	n.Publish(Event{Type: EventAttributionsUpdated, UserID: 7})

	select {
	case event := <-events:
		if event.UserID != 7 {
			t.Errorf("UserID = %d, want 7", event.UserID)
		}
		if event.At.IsZero() {
			t.Error("Publish must stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestNotifier_CancelClosesChannel(t *testing.T) {
	n := NewNotifier()
	events, cancel := n.Subscribe()

	cancel()
	if _, open := <-events; open {
		t.Error("channel must be closed after cancel")
	}
	// Cancel is idempotent, and publishing to no subscribers is a no-op.
	cancel()
	n.Publish(Event{Type: EventAttributionsUpdated, UserID: 1})
}

func TestNotifier_SlowSubscriberNeverBlocksPublish(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe() // never reads
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			n.Publish(Event{Type: EventAttributionsUpdated, UserID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestNotifier_Broadcast(t *testing.T) {
	n := NewNotifier()
	a, cancelA := n.Subscribe()
	b, cancelB := n.Subscribe()
	defer cancelA()
	defer cancelB()

	n.Publish(Event{Type: EventAttributionsUpdated, UserID: 3})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case event := <-ch:
			if event.UserID != 3 {
				t.Errorf("subscriber %s: UserID = %d, want 3", name, event.UserID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive the broadcast", name)
		}
	}
}
