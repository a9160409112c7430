// Package cart implements the visitor's shopping cart: an ordered list of lines mirrored to a
// durable slot after every mutation.
package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/storage"
)

// Catalog resolves product identifiers against the catalog snapshot currently on screen.
type Catalog interface {
	Lookup(id int64) (domain.Product, bool)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(id int64) (domain.Product, bool)

// Lookup implements Catalog.
func (f CatalogFunc) Lookup(id int64) (domain.Product, bool) { return f(id) }

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
	EventCleared EventKind = "cleared"
)

// Event describes a completed mutation. PersistErr is set when the in-memory change could not be
// written to the slot; the change itself is kept.
type Event struct {
	Kind       EventKind
	ProductID  int64
	Line       domain.CartLine
	Deleted    bool
	PersistErr error
}

// Observer is notified after a mutation has been persisted (or failed to persist).
type Observer func(ctx context.Context, ev Event)

// Option customises a Store.
type Option func(*Store)

// WithCatalog sets the catalog used by Add.
func WithCatalog(c Catalog) Option {
	return func(s *Store) { s.catalog = c }
}

// WithObserver registers an observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store holds the cart lines. It is not safe for concurrent use; callers serialize access the
// way UI events are serialized on a page.
type Store struct {
	slot      storage.Slot
	catalog   Catalog
	observers []Observer
	logger    *zap.Logger

	lines    []domain.CartLine
	degraded error
}

// Open creates a store and hydrates it from slot. A missing snapshot yields an empty cart; an
// unreadable one is logged and also yields an empty cart.
func Open(ctx context.Context, slot storage.Slot, opts ...Option) (*Store, error) {
	if slot == nil {
		return nil, errors.New("cart: slot is required")
	}
	s := &Store{
		slot:   slot,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory lines with the persisted snapshot. Only slot read failures other
// than a missing key are returned.
func (s *Store) Reload(ctx context.Context) error {
	raw, err := s.slot.Get(ctx, storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		s.lines = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("cart: load snapshot: %w", err)
	}
	lines, err := Decode(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable cart snapshot", zap.Error(err))
		s.lines = nil
		return nil
	}
	s.lines = lines
	return nil
}

// Add increments the line for productID, creating it from the current catalog when absent.
// Unknown products are ignored and reported with ok=false.
func (s *Store) Add(ctx context.Context, productID int64) (ev Event, ok bool) {
	if s.catalog == nil {
		return Event{}, false
	}
	product, found := s.catalog.Lookup(productID)
	if !found {
		return Event{}, false
	}

	idx := s.indexOf(productID)
	if idx >= 0 {
		s.lines[idx].Quantity++
	} else {
		s.lines = append(s.lines, domain.LineFromProduct(product))
		idx = len(s.lines) - 1
	}

	ev = Event{Kind: EventAdded, ProductID: productID, Line: s.lines[idx]}
	s.commit(ctx, &ev)
	return ev, true
}

// Remove decrements the line for productID, deleting it when the quantity reaches zero. Missing
// lines are ignored and reported with ok=false; nothing is written in that case.
func (s *Store) Remove(ctx context.Context, productID int64) (ev Event, ok bool) {
	idx := s.indexOf(productID)
	if idx < 0 {
		return Event{}, false
	}

	ev = Event{Kind: EventRemoved, ProductID: productID}
	if s.lines[idx].Quantity > 1 {
		s.lines[idx].Quantity--
		ev.Line = s.lines[idx]
	} else {
		ev.Line = s.lines[idx]
		ev.Line.Quantity = 0
		ev.Deleted = true
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	s.commit(ctx, &ev)
	return ev, true
}

// Clear removes every line.
func (s *Store) Clear(ctx context.Context) Event {
	s.lines = nil
	ev := Event{Kind: EventCleared}
	s.commit(ctx, &ev)
	return ev
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line for productID.
func (s *Store) Line(productID int64) (domain.CartLine, bool) {
	if idx := s.indexOf(productID); idx >= 0 {
		return s.lines[idx], true
	}
	return domain.CartLine{}, false
}

// TotalItemCount sums quantities across all lines.
func (s *Store) TotalItemCount() int {
	return TotalItemCount(s.lines)
}

// TotalValue sums price × quantity across all lines. It is recomputed on every call.
func (s *Store) TotalValue() float64 {
	return TotalValue(s.lines)
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool { return len(s.lines) == 0 }

// Degraded returns the most recent persistence error, or nil when the last write succeeded.
func (s *Store) Degraded() error { return s.degraded }

// commit persists the current lines and then notifies observers.
func (s *Store) commit(ctx context.Context, ev *Event) {
	if err := s.persist(ctx); err != nil {
		s.degraded = err
		ev.PersistErr = err
		s.logger.Warn("cart snapshot not saved",
			zap.String("event", string(ev.Kind)),
			zap.Int64("product_id", ev.ProductID),
			zap.Error(err),
		)
	} else {
		s.degraded = nil
	}
	for _, o := range s.observers {
		o(ctx, *ev)
	}
}

func (s *Store) persist(ctx context.Context) error {
	raw, err := Encode(s.lines)
	if err != nil {
		return err
	}
	if err := s.slot.Put(ctx, storage.KeyCart, raw); err != nil {
		return fmt.Errorf("cart: save snapshot: %w", err)
	}
	return nil
}

func (s *Store) indexOf(productID int64) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
