// Package storefront wires the cart, catalog, notification and profile components into one
// visitor session and exposes them over HTTP.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/nutricart/internal/cart"
	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/notify"
	"finitefield.org/nutricart/internal/platform/observability"
	"finitefield.org/nutricart/internal/profile"
	"finitefield.org/nutricart/internal/render"
	"finitefield.org/nutricart/internal/storage"
)

// Session is one visitor's page context. Actions run one at a time behind mu, in the order
// persist, repaint, notify. Catalog fetches run outside mu and are committed through the loader.
type Session struct {
	id       string
	renderer *render.Renderer
	logger   *zap.Logger

	mu       sync.Mutex
	slot     storage.Slot
	loader   *catalog.Loader
	store    *cart.Store
	center   *notify.Center
	drawer   notify.Drawer
	image    *profile.ImageState
	panel    render.CartView
	raised   []notify.Toast
	lastSeen time.Time
}

func newSession(ctx context.Context, id string, slot storage.Slot, renderer *render.Renderer, delay time.Duration, logger *zap.Logger) (*Session, error) {
	s := &Session{
		id:       id,
		renderer: renderer,
		logger:   logger.With(zap.String("session", observability.RedactID(id))),
		slot:     slot,
		loader:   catalog.NewLoader(),
		center:   notify.NewCenter(notify.WithDelay(delay)),
		lastSeen: time.Now(),
	}
	store, err := cart.Open(ctx, slot,
		cart.WithCatalog(cart.CatalogFunc(s.lookup)),
		cart.WithObserver(s.onCartEvent),
		cart.WithLogger(s.logger),
	)
	if err != nil {
		s.center.Close()
		return nil, err
	}
	s.store = store
	s.repaint(ctx)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// lookup resolves against the catalog currently shown and snapshots the display image URL.
func (s *Session) lookup(id int64) (domain.Product, bool) {
	p, ok := s.loader.Lookup(id)
	if !ok {
		return domain.Product{}, false
	}
	p.ImageURL = catalog.ImageURL(p)
	return p, true
}

func (s *Session) onCartEvent(ctx context.Context, ev cart.Event) {
	s.repaint(ctx)

	switch ev.Kind {
	case cart.EventAdded:
		s.raise(render.MsgAdded, notify.ToneSuccess)
	case cart.EventRemoved:
		s.raise(render.MsgRemoved, notify.ToneSuccess)
	case cart.EventCleared:
		s.raise(render.MsgCleared, notify.ToneSuccess)
	}
	if ev.PersistErr != nil {
		s.raise(render.MsgNotSaved, notify.ToneWarning)
	}
}

// repaint rebuilds the cart panel in the locale of ctx.
func (s *Session) repaint(ctx context.Context) {
	s.panel = s.renderer.Cart(ctx, s.store.Lines(), s.store.Degraded() != nil)
}

func (s *Session) raise(msg string, tone notify.Tone) {
	s.raised = append(s.raised, s.center.Show(msg, tone))
}

// drain returns and clears the toasts raised by the current action.
func (s *Session) drain() []notify.Toast {
	out := s.raised
	s.raised = nil
	return out
}

// CartResult is the outcome of a cart action: the repainted panel and the toasts it raised.
type CartResult struct {
	Panel  render.CartView
	Toasts []notify.Toast
	// Changed is false when the action was a no-op (unknown product, line not in cart).
	Changed bool
}

// Add puts one unit of productID in the cart.
func (s *Session) Add(ctx context.Context, productID int64) CartResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	_, ok := s.store.Add(ctx, productID)
	return s.result(ctx, ok)
}

// Remove takes one unit of productID out of the cart.
func (s *Session) Remove(ctx context.Context, productID int64) CartResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	_, ok := s.store.Remove(ctx, productID)
	return s.result(ctx, ok)
}

// Clear empties the cart.
func (s *Session) Clear(ctx context.Context) CartResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	s.store.Clear(ctx)
	return s.result(ctx, true)
}

// result collects the outcome of an action. A no-op fires no cart event, so the panel is
// repainted here to follow the caller's locale.
func (s *Session) result(ctx context.Context, changed bool) CartResult {
	if !changed {
		s.repaint(ctx)
	}
	return CartResult{Panel: s.panel, Toasts: s.drain(), Changed: changed}
}

// Cart returns the current panel.
func (s *Session) Cart(ctx context.Context) render.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.repaint(ctx)
	return s.panel
}

// Lines returns a copy of the cart lines.
func (s *Session) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Lines()
}

// Load fetches category and makes it the catalog Add resolves against. A result that arrives
// after a newer Load started is dropped and reported as catalog.ErrStale.
func (s *Session) Load(ctx context.Context, f catalog.Fetcher, category string) (*catalog.Snapshot, error) {
	s.touch()
	snap, err := s.loader.Load(ctx, f, category)
	switch {
	case err == nil:
		s.logger.Debug("catalog loaded", zap.String("category", category), zap.Int("products", snap.Len()))
	case !errors.Is(err, catalog.ErrStale):
		s.logger.Warn("catalog load failed", zap.String("category", category), zap.Error(err))
	}
	return snap, err
}

// Catalog returns the snapshot on screen, if any.
func (s *Session) Catalog() *catalog.Snapshot {
	return s.loader.Snapshot()
}

// CatalogStatus reports the loader state.
func (s *Session) CatalogStatus() catalog.Status {
	return s.loader.Status()
}

// Grid derives the product grid for the catalog on screen.
func (s *Session) Grid(ctx context.Context, category, health string, key catalog.SortKey) render.GridView {
	st := s.loader.Status()
	state := st.State
	if st.Category != category {
		state = catalog.StateIdle
	}
	var products []domain.Product
	if state == catalog.StateReady && st.Snapshot != nil {
		products = st.Snapshot.View(health, key)
	}
	return s.renderer.Grid(ctx, category, state, products)
}

// Drawer applies a drawer action and returns the drawer view.
func (s *Session) Drawer(ctx context.Context, action string, target notify.Target) render.DrawerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	switch action {
	case "open":
		s.drawer.Open()
	case "close":
		s.drawer.Close()
	case "click":
		s.drawer.Click(target)
	}
	s.repaint(ctx)
	return render.DrawerView{Open: s.drawer.IsOpen(), Cart: s.panel}
}

// DrawerView returns the drawer without changing it.
func (s *Session) DrawerView(ctx context.Context) render.DrawerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repaint(ctx)
	return render.DrawerView{Open: s.drawer.IsOpen(), Cart: s.panel}
}

// Toasts lists the live toasts.
func (s *Session) Toasts() render.ToastsView {
	return render.ToastsView{Toasts: s.center.Active()}
}

// Dismiss closes a toast before it expires. It reports false for unknown or expired toasts.
func (s *Session) Dismiss(id string) bool {
	return s.center.Dismiss(id)
}

// Notify shows a toast outside a cart action (profile flows).
func (s *Session) Notify(msg string, tone notify.Tone) notify.Toast {
	return s.center.Show(msg, tone)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.center.Close()
}
