package eventbus

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one typed message pushed to dashboard subscribers.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

const (
	EventQR              = "qr"
	EventReady           = "ready"
	EventAuthenticated   = "authenticated"
	EventLogout          = "logout"
	EventLog             = "log"
	EventBroadcastStatus = "broadcast_status"
)

// Bus is the in-process pub/sub hub. Delivery is best-effort: a subscriber
// whose buffer is full misses the event, producers never block.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered channel for incremental events. The caller
// must Unsubscribe when done.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish fans the event out to all current subscribers. The subscriber set
// is snapshotted so delivery happens without holding the lock.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	targets := make([]chan Event, 0, len(b.subs))
	for ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- evt:
		default:
			logrus.Debugf("[EVENTBUS] Dropping %s event for slow subscriber", evt.Type)
		}
	}
}

// PublishLog is a convenience used by components that mirror log lines to
// the dashboard.
func (b *Bus) PublishLog(level, message string) {
	b.Publish(Event{
		Type: EventLog,
		Payload: map[string]any{
			"level":     level,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
