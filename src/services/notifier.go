package services

import (
	"sync"
	"time"

	"github.com/username/spendfolio/backend/src/logger"
)

const EventAttributionsUpdated = "attributions_updated"

// Event is a process-local notification that something changed for a user.
// No payload beyond "something changed" is guaranteed.
type Event struct {
	Type    string    `json:"type"`
	UserID  int64     `json:"user_id"`
	BatchID string    `json:"batch_id,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier is a fire-and-forget broadcast hub. Publishing never blocks: a
// subscriber that cannot keep up misses events instead of stalling imports.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener and returns its channel plus a cancel
// function that must be called to release it.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, 8)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish broadcasts an event to all current subscribers without blocking.
func (n *Notifier) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		select {
		case ch <- event:
		default:
			logger.L.Debug("Dropping event for slow subscriber", "subscriberID", id, "eventType", event.Type)
		}
	}
}
