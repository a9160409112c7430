package catalog

import (
	"context"
	"errors"
	"sync"

	"finitefield.org/nutricart/internal/domain"
)

// ErrStale is returned by Loader.Load when a newer load started before this one finished.
var ErrStale = errors.New("catalog: stale response discarded")

// Fetcher loads the products of one category.
type Fetcher interface {
	Fetch(ctx context.Context, category string) ([]domain.Product, error)
}

// Snapshot is an immutable catalog for one category. It satisfies cart.Catalog.
type Snapshot struct {
	Category string
	products []domain.Product
	index    map[int64]int
}

// NewSnapshot copies products into a snapshot.
func NewSnapshot(category string, products []domain.Product) *Snapshot {
	s := &Snapshot{
		Category: category,
		products: make([]domain.Product, len(products)),
		index:    make(map[int64]int, len(products)),
	}
	copy(s.products, products)
	for i, p := range s.products {
		if _, dup := s.index[p.ID]; !dup {
			s.index[p.ID] = i
		}
	}
	return s
}

// Products returns a copy of the catalog in backend order.
func (s *Snapshot) Products() []domain.Product {
	if s == nil {
		return nil
	}
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Len returns the number of products.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

// Lookup resolves a product by id.
func (s *Snapshot) Lookup(id int64) (domain.Product, bool) {
	if s == nil {
		return domain.Product{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i], true
}

// View applies the filter/sort pipeline to the full snapshot.
func (s *Snapshot) View(health string, key SortKey) []domain.Product {
	if s == nil {
		return nil
	}
	return View(s.products, health, key)
}

// State is the lifecycle of the catalog shown on a page.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Ticket identifies one load attempt.
type Ticket struct {
	Category string
	epoch    uint64
}

// Loader tracks the catalog of a single page context. Each Begin starts a new epoch; results
// committed with an older ticket are dropped, so a slow response for a category the visitor has
// already navigated away from never replaces the current catalog.
type Loader struct {
	mu       sync.Mutex
	epoch    uint64
	state    State
	category string
	snapshot *Snapshot
	err      error
}

// NewLoader returns an idle loader.
func NewLoader() *Loader {
	return &Loader{state: StateIdle}
}

// Begin starts a load for category and invalidates any in-flight load.
func (l *Loader) Begin(category string) Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.epoch++
	l.state = StateLoading
	l.category = category
	l.err = nil
	return Ticket{Category: category, epoch: l.epoch}
}

// Commit records the outcome of the load identified by t and returns the snapshot it installed,
// which is nil for a failed load. It reports false when t is stale.
func (l *Loader) Commit(t Ticket, products []domain.Product, err error) (*Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.epoch != l.epoch {
		return nil, false
	}
	if err != nil {
		l.state = StateFailed
		l.err = err
		l.snapshot = nil
		return nil, true
	}
	l.state = StateReady
	l.snapshot = NewSnapshot(t.Category, products)
	return l.snapshot, true
}

// Load runs Begin, fetches outside the lock and commits the result.
func (l *Loader) Load(ctx context.Context, f Fetcher, category string) (*Snapshot, error) {
	t := l.Begin(category)
	products, err := f.Fetch(ctx, category)
	snap, ok := l.Commit(t, products, err)
	if !ok {
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Snapshot returns the current catalog, or nil when none is loaded.
func (l *Loader) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

// Status is the loader as seen at one instant.
type Status struct {
	State    State
	Category string
	Snapshot *Snapshot
	Err      error
}

// Status returns state, category, snapshot and failure read under one lock.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{State: l.state, Category: l.category, Snapshot: l.snapshot, Err: l.err}
}

// Lookup resolves id against the current snapshot, so a Loader can back a cart directly.
func (l *Loader) Lookup(id int64) (domain.Product, bool) {
	return l.Snapshot().Lookup(id)
}
