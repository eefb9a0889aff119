// Package alert is the single notification channel for user-visible
// outcomes: transport failures, schema diagnostics, submit results.
// Alerts are transient — each carries a severity tag and auto-dismisses
// after a fixed interval.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity tags an alert for presentation.
type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Warning Severity = "warning"
	Danger  Severity = "danger"
)

// Alert is one transient notification.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is delivered to subscribers when an alert is posted or
// dismissed.
type Event struct {
	Kind  string `json:"kind"` // "posted" or "dismissed"
	Alert Alert  `json:"alert"`
}

// Center fans alerts out to subscribers and expires them after the
// configured TTL. A zero TTL disables auto-dismiss.
type Center struct {
	mu     sync.Mutex
	ttl    time.Duration
	active map[uuid.UUID]Alert
	timers map[uuid.UUID]*time.Timer
	subs   map[int]chan Event
	nextID int
}

// NewCenter creates a Center whose alerts dismiss themselves after ttl.
func NewCenter(ttl time.Duration) *Center {
	return &Center{
		ttl:    ttl,
		active: map[uuid.UUID]Alert{},
		timers: map[uuid.UUID]*time.Timer{},
		subs:   map[int]chan Event{},
	}
}

// Post raises an alert and schedules its dismissal.
func (c *Center) Post(title string, severity Severity) Alert {
	a := Alert{
		ID:        uuid.New(),
		Title:     title,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.active[a.ID] = a
	if c.ttl > 0 {
		id := a.ID
		c.timers[id] = time.AfterFunc(c.ttl, func() { c.Dismiss(id) })
	}
	c.mu.Unlock()

	c.publish(Event{Kind: "posted", Alert: a})
	return a
}

// Dismiss removes an alert before its timer fires. Unknown IDs are
// ignored.
func (c *Center) Dismiss(id uuid.UUID) {
	c.mu.Lock()
	a, ok := c.active[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.active, id)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.publish(Event{Kind: "dismissed", Alert: a})
}

// Active returns a snapshot of alerts that have not yet dismissed.
func (c *Center) Active() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, 0, len(c.active))
	for _, a := range c.active {
		out = append(out, a)
	}
	return out
}

// Subscribe registers a buffered listener. The returned cancel
// function must be called to release it. Events are dropped, not
// blocked on, when a subscriber falls behind.
func (c *Center) Subscribe(buf int) (<-chan Event, func()) {
	if buf < 1 {
		buf = 16
	}
	ch := make(chan Event, buf)
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Center) publish(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
