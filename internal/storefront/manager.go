package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/nutricart/internal/notify"
	"finitefield.org/nutricart/internal/render"
	"finitefield.org/nutricart/internal/storage"
)

// Manager owns the live visitor sessions. Each session's durable slot is the shared backend
// scoped by session id.
type Manager struct {
	backend  storage.Slot
	renderer *render.Renderer
	delay    time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithNotifyDelay sets the toast lifetime for new sessions.
func WithNotifyDelay(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager builds a Manager over backend.
func NewManager(backend storage.Slot, renderer *render.Renderer, opts ...ManagerOption) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("storefront: storage backend is required")
	}
	if renderer == nil {
		return nil, errors.New("storefront: renderer is required")
	}
	m := &Manager{
		backend:  backend,
		renderer: renderer,
		delay:    notify.DefaultDelay,
		logger:   zap.NewNop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Session returns the live session for id, hydrating it from storage on first use.
func (m *Manager) Session(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.New("storefront: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s, err := newSession(ctx, id, storage.Scope(m.backend, id), m.renderer, m.delay, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than idle. Their carts stay in storage and are rehydrated
// on the next request.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			s.close()
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(idle); n > 0 {
				m.logger.Debug("swept idle sessions", zap.Int("count", n))
			}
		}
	}
}

// Close stops every session's timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.close()
		delete(m.sessions, id)
	}
}
