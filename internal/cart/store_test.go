package cart

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"finitefield.org/nutricart/internal/domain"
	"finitefield.org/nutricart/internal/storage"
)

var testProducts = map[int64]domain.Product{
	1: {ID: 1, Name: "Oat Crunch", Price: 100, ImageURL: "/cart/static/oat.png"},
	2: {ID: 2, Name: "Masala Chips", Price: 50, ImageURL: "/cart/static/chips.png"},
	3: {ID: 3, Name: "Dark Chocolate", Price: 249.5, ImageURL: "/cart/static/choc.png"},
}

func testCatalog() Catalog {
	return CatalogFunc(func(id int64) (domain.Product, bool) {
		p, ok := testProducts[id]
		return p, ok
	})
}

func openStore(t *testing.T, slot storage.Slot, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithCatalog(testCatalog())}, opts...)
	s, err := Open(context.Background(), slot, opts...)
	require.NoError(t, err)
	return s
}

func persisted(t *testing.T, slot storage.Slot) []domain.CartLine {
	t.Helper()
	raw, err := slot.Get(context.Background(), storage.KeyCart)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	lines, err := Decode(raw)
	require.NoError(t, err)
	return lines
}

func TestAddSameProductTwiceMergesLine(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	s := openStore(t, slot)

	_, ok := s.Add(ctx, 1)
	require.True(t, ok)
	ev, ok := s.Add(ctx, 1)
	require.True(t, ok)

	require.Equal(t, EventAdded, ev.Kind)
	require.Equal(t, 2, ev.Line.Quantity)
	require.Len(t, s.Lines(), 1)
	require.Equal(t, 2, s.TotalItemCount())
	require.Len(t, persisted(t, slot), 1)
	require.Equal(t, 2, persisted(t, slot)[0].Quantity)
}

func TestAddUnknownProductIsNoop(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	var events []Event
	s := openStore(t, slot, WithObserver(func(_ context.Context, ev Event) { events = append(events, ev) }))

	_, ok := s.Add(ctx, 99)
	require.False(t, ok)
	require.True(t, s.Empty())
	require.Empty(t, events)

	_, err := slot.Get(ctx, storage.KeyCart)
	require.ErrorIs(t, err, storage.ErrNotFound, "no-op must not write a snapshot")
}

func TestAddSnapshotsPriceAtAddTime(t *testing.T) {
	ctx := context.Background()
	price := 100.0
	catalog := CatalogFunc(func(id int64) (domain.Product, bool) {
		return domain.Product{ID: id, Name: "Muesli", Price: price}, true
	})
	s, err := Open(ctx, storage.NewMemoryBackend(), WithCatalog(catalog))
	require.NoError(t, err)

	s.Add(ctx, 7)
	price = 180
	s.Add(ctx, 7)

	line, ok := s.Line(7)
	require.True(t, ok)
	require.Equal(t, 100.0, line.Price)
	require.Equal(t, 200.0, s.TotalValue())
}

func TestRemoveDecrementsThenDeletes(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	s := openStore(t, slot)

	s.Add(ctx, 2)
	s.Add(ctx, 2)

	ev, ok := s.Remove(ctx, 2)
	require.True(t, ok)
	require.False(t, ev.Deleted)
	require.Equal(t, 1, ev.Line.Quantity)

	ev, ok = s.Remove(ctx, 2)
	require.True(t, ok)
	require.True(t, ev.Deleted)
	require.True(t, s.Empty())
	require.Empty(t, persisted(t, slot))
}

func TestRemoveMissingLineLeavesSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	s := openStore(t, slot)
	s.Add(ctx, 1)

	before, err := slot.Get(ctx, storage.KeyCart)
	require.NoError(t, err)

	called := false
	s.observers = append(s.observers, func(context.Context, Event) { called = true })
	_, ok := s.Remove(ctx, 3)
	require.False(t, ok)
	require.False(t, called)

	after, err := slot.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestClearThenReloadYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	s := openStore(t, slot)
	s.Add(ctx, 1)
	s.Add(ctx, 3)

	ev := s.Clear(ctx)
	require.Equal(t, EventCleared, ev.Kind)

	reloaded := openStore(t, slot)
	require.True(t, reloaded.Empty())
	require.Zero(t, reloaded.TotalItemCount())
	require.Zero(t, reloaded.TotalValue())

	raw, err := slot.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestItemCountMatchesSnapshotAfterRandomSequence(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		slot := storage.NewMemoryBackend()
		s := openStore(t, slot)
		for step := 0; step < 40; step++ {
			id := int64(rng.Intn(5)) // ids 0 and 4 are unknown
			if rng.Intn(3) == 0 {
				s.Remove(ctx, id)
			} else {
				s.Add(ctx, id)
			}
		}
		require.Equal(t, TotalItemCount(persisted(t, slot)), s.TotalItemCount())
		for _, line := range s.Lines() {
			require.GreaterOrEqual(t, line.Quantity, 1)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	s := openStore(t, slot)
	s.Add(ctx, 3)
	s.Add(ctx, 1)
	s.Add(ctx, 3)

	raw, err := Encode(s.Lines())
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	if diff := cmp.Diff(s.Lines(), decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	reloaded := openStore(t, slot)
	if diff := cmp.Diff(s.Lines(), reloaded.Lines()); diff != "" {
		t.Fatalf("reload mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRepairsInvariants(t *testing.T) {
	lines, err := Decode([]byte(`[
		{"id":1,"name":"a","price":10,"quantity":1,"image_url":""},
		{"id":2,"name":"b","price":5,"quantity":0,"image_url":""},
		{"id":1,"name":"a","price":10,"quantity":2,"image_url":""}
	]`))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Quantity)
}

func TestCorruptSnapshotHydratesEmpty(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	require.NoError(t, slot.Put(ctx, storage.KeyCart, []byte("{not json")))

	s := openStore(t, slot)
	require.True(t, s.Empty())
}

type failingSlot struct {
	storage.Slot
	fail bool
}

var errQuota = errors.New("quota exceeded")

func (f *failingSlot) Put(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errQuota
	}
	return f.Slot.Put(ctx, key, value)
}

func TestPersistFailureKeepsCartUsable(t *testing.T) {
	ctx := context.Background()
	slot := &failingSlot{Slot: storage.NewMemoryBackend(), fail: true}
	s := openStore(t, slot)

	ev, ok := s.Add(ctx, 1)
	require.True(t, ok)
	require.ErrorIs(t, ev.PersistErr, errQuota)
	require.ErrorIs(t, s.Degraded(), errQuota)
	require.Equal(t, 1, s.TotalItemCount())

	slot.fail = false
	ev, _ = s.Add(ctx, 1)
	require.NoError(t, ev.PersistErr)
	require.NoError(t, s.Degraded())
	require.Equal(t, 2, persisted(t, slot)[0].Quantity)
}

func TestObserverRunsAfterPersist(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemoryBackend()
	var seen []domain.CartLine
	s := openStore(t, slot, WithObserver(func(ctx context.Context, ev Event) {
		seen = persisted(t, slot)
	}))

	s.Add(ctx, 2)
	require.Len(t, seen, 1)
	require.Equal(t, int64(2), seen[0].ProductID)
}

func TestTotalValueRecomputed(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemoryBackend())
	require.Zero(t, s.TotalValue())

	s.Add(ctx, 1)
	s.Add(ctx, 2)
	s.Add(ctx, 2)
	require.Equal(t, 200.0, s.TotalValue())

	s.Remove(ctx, 1)
	require.Equal(t, 100.0, s.TotalValue())
}
