// Package notify keeps the transient feedback shown to a visitor: toasts that expire on their own
// and the cart drawer.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultDelay is how long a toast stays visible.
const DefaultDelay = 3000 * time.Millisecond

// Tone selects the visual style of a toast.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
)

// Toast is one transient message.
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Tone      Tone      `json:"tone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Center tracks live toasts. Every Show creates an independent toast with its own timer;
// identical messages are not coalesced.
type Center struct {
	mu     sync.Mutex
	delay  time.Duration
	now    func() time.Time
	toasts map[string]*entry
	closed bool
}

type entry struct {
	toast Toast
	timer *time.Timer
}

// CenterOption customises a Center.
type CenterOption func(*Center)

// WithDelay overrides the toast lifetime.
func WithDelay(d time.Duration) CenterOption {
	return func(c *Center) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) CenterOption {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCenter returns an empty Center.
func NewCenter(opts ...CenterOption) *Center {
	c := &Center{
		delay:  DefaultDelay,
		now:    time.Now,
		toasts: make(map[string]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// NewToast builds a toast that is not tracked by any Center. An empty tone means success.
func NewToast(msg string, tone Tone, at time.Time) Toast {
	if tone == "" {
		tone = ToneSuccess
	}
	return Toast{ID: ulid.Make().String(), Message: msg, Tone: tone, CreatedAt: at}
}

// Show displays msg and schedules its removal. A closed Center still returns the toast so the
// caller can forward it, but keeps no timer.
func (c *Center) Show(msg string, tone Tone) Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := NewToast(msg, tone, c.now())
	if c.closed {
		return t
	}
	e := &entry{toast: t}
	e.timer = time.AfterFunc(c.delay, func() { c.dismiss(t.ID) })
	c.toasts[t.ID] = e
	return t
}

// Dismiss removes a toast before its timer fires.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	e, ok := c.toasts[id]
	if ok {
		e.timer.Stop()
		delete(c.toasts, id)
	}
	c.mu.Unlock()
	return ok
}

func (c *Center) dismiss(id string) {
	c.mu.Lock()
	delete(c.toasts, id)
	c.mu.Unlock()
}

// Active returns the live toasts, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	out := make([]Toast, 0, len(c.toasts))
	for _, e := range c.toasts {
		out = append(out, e.toast)
	}
	c.mu.Unlock()

	// ULIDs sort by creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every pending timer and drops the live toasts.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.toasts {
		e.timer.Stop()
		delete(c.toasts, id)
	}
	c.closed = true
}
