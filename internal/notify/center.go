package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carenest/patient-portal/internal/observability/metrics"
	"github.com/carenest/patient-portal/pkg/logging"
)

const (
	defaultHistoryLimit = 20
	subscriberBuffer    = 16
)

// Center keeps each patient's notification state and fans new notifications
// out to live subscribers (websocket streams).
type Center struct {
	mu      sync.Mutex
	states  map[string]State
	subs    map[string]map[int]chan Notification
	nextSub int

	limit   int
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewCenter creates a notification center. metrics may be nil.
func NewCenter(m *metrics.BookingMetrics, logger *logging.Logger) *Center {
	if logger == nil {
		logger = logging.Default()
	}
	return &Center{
		states:  make(map[string]State),
		subs:    make(map[string]map[int]chan Notification),
		limit:   defaultHistoryLimit,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Notify records a notification for userID and pushes it to subscribers.
func (c *Center) Notify(ctx context.Context, userID string, severity Severity, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: c.now().UTC(),
	}

	c.mu.Lock()
	c.states[userID] = Add(c.states[userID], n, c.limit)
	for id, ch := range c.subs[userID] {
		select {
		case ch <- n:
		default:
			c.logger.Warn("notify: subscriber buffer full, dropping notification", "user_id", userID, "subscriber", id)
		}
	}
	c.mu.Unlock()

	c.metrics.ObserveNotification(string(severity))
	c.logger.WithContext(ctx).Debug("notification relayed", "user_id", userID, "severity", severity)
	return n
}

// List returns the patient's current notifications, oldest first.
func (c *Center) List(userID string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.states[userID].Items
	out := make([]Notification, len(items))
	copy(out, items)
	return out
}

// Dismiss removes one notification.
func (c *Center) Dismiss(userID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[userID]; ok {
		c.states[userID] = Remove(s, id)
	}
}

// Clear removes every notification of the patient.
func (c *Center) Clear(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, userID)
}

// Subscribe returns a channel receiving the patient's new notifications and
// a function that releases it. The channel is closed on release.
func (c *Center) Subscribe(userID string) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	if c.subs[userID] == nil {
		c.subs[userID] = make(map[int]chan Notification)
	}
	c.subs[userID][id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs[userID], id)
			if len(c.subs[userID]) == 0 {
				delete(c.subs, userID)
			}
			c.mu.Unlock()
			close(ch)
		})
	}
}
