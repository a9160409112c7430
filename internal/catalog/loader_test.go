package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/nutricart/internal/domain"
)

type fetchFunc func(ctx context.Context, category string) ([]domain.Product, error)

func (f fetchFunc) Fetch(ctx context.Context, category string) ([]domain.Product, error) {
	return f(ctx, category)
}

func TestLoaderDropsStaleResponses(t *testing.T) {
	l := NewLoader()

	slow := l.Begin("snacks")
	fast := l.Begin("dairy")

	committed, ok := l.Commit(fast, []domain.Product{{ID: 7, Name: "Paneer"}}, nil)
	require.True(t, ok)
	require.Equal(t, 1, committed.Len())
	dropped, ok := l.Commit(slow, []domain.Product{{ID: 1, Name: "Chips"}}, nil)
	require.False(t, ok)
	require.Nil(t, dropped)

	snap := l.Snapshot()
	require.Same(t, committed, snap)
	require.Equal(t, "dairy", snap.Category)
	_, ok = l.Lookup(1)
	require.False(t, ok)
	p, ok := l.Lookup(7)
	require.True(t, ok)
	require.Equal(t, "Paneer", p.Name)
}

func TestLoaderLoadReportsStale(t *testing.T) {
	l := NewLoader()
	f := fetchFunc(func(ctx context.Context, category string) ([]domain.Product, error) {
		// a navigation happens while this request is in flight
		l.Begin("breakfast")
		return []domain.Product{{ID: 1}}, nil
	})

	_, err := l.Load(context.Background(), f, "snacks")
	require.ErrorIs(t, err, ErrStale)

	st := l.Status()
	require.Equal(t, StateLoading, st.State)
	require.Equal(t, "breakfast", st.Category)
	require.Nil(t, st.Snapshot)
}

func TestLoaderStatusIsConsistent(t *testing.T) {
	l := NewLoader()
	ok := fetchFunc(func(_ context.Context, category string) ([]domain.Product, error) {
		return []domain.Product{{ID: 1, CategoryName: category}}, nil
	})

	snap, err := l.Load(context.Background(), ok, "snacks")
	require.NoError(t, err)
	require.Equal(t, "snacks", snap.Category)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			category := "snacks"
			if i%2 == 1 {
				category = "dairy"
			}
			_, _ = l.Load(context.Background(), ok, category)
		}
	}()
	for i := 0; i < 200; i++ {
		st := l.Status()
		if st.State == StateReady {
			require.NotNil(t, st.Snapshot)
			require.Equal(t, st.Category, st.Snapshot.Category)
		}
	}
	<-done
}

func TestLoaderFailureClearsSnapshot(t *testing.T) {
	l := NewLoader()
	ok := fetchFunc(func(context.Context, string) ([]domain.Product, error) {
		return []domain.Product{{ID: 1}}, nil
	})
	_, err := l.Load(context.Background(), ok, "snacks")
	require.NoError(t, err)

	boom := &FetchError{Kind: KindNetwork, Category: "snacks", Err: errors.New("down")}
	failing := fetchFunc(func(context.Context, string) ([]domain.Product, error) { return nil, boom })
	_, err = l.Load(context.Background(), failing, "snacks")
	require.ErrorIs(t, err, boom)

	st := l.Status()
	require.Equal(t, StateFailed, st.State)
	require.ErrorIs(t, st.Err, boom)
	require.Nil(t, st.Snapshot)
	require.Nil(t, l.Snapshot())
}

func TestSnapshotIsolatedFromCaller(t *testing.T) {
	products := []domain.Product{{ID: 1, Name: "a"}}
	snap := NewSnapshot("snacks", products)
	products[0].Name = "changed"

	p, ok := snap.Lookup(1)
	require.True(t, ok)
	require.Equal(t, "a", p.Name)

	var nilSnap *Snapshot
	_, ok = nilSnap.Lookup(1)
	require.False(t, ok)
	require.Zero(t, nilSnap.Len())
}

func TestRegistryCategoryFromPath(t *testing.T) {
	r := DefaultRegistry()

	require.Equal(t, "dairy", r.CategoryFromPath("/shop/dairy"))
	require.Equal(t, "dairy", r.CategoryFromPath("/cart/dairy/"))
	require.Equal(t, DefaultCategory, r.CategoryFromPath("/cart/"))
	require.Equal(t, DefaultCategory, r.CategoryFromPath("/shop"))

	c, ok := r.Lookup("Cold-Drinks-And-Juices")
	require.True(t, ok)
	require.Equal(t, "Cold Drinks & Juices", c.Title)
}

func TestLoadRegistryFromYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
default: tea
categories:
  - slug: tea
    title: Tea
  - slug: coffee
`), 0o600))

	r, err := LoadRegistry(file, "snacks")
	require.NoError(t, err)
	require.Equal(t, "tea", r.Default())
	require.Len(t, r.Categories(), 2)

	c, ok := r.Lookup("coffee")
	require.True(t, ok)
	require.Equal(t, "coffee", c.Title)
}

func TestNewRegistryRejectsUnknownDefault(t *testing.T) {
	_, err := NewRegistry([]Category{{Slug: "tea"}}, "snacks")
	require.Error(t, err)
}

func TestImageURL(t *testing.T) {
	require.Equal(t, "/cart/static/images/products/snacks/chips.png",
		ImageURL(domain.Product{CategoryName: "Snacks", ImageURL: "uploads/chips.png"}))
	require.Equal(t, "/cart/static/x.png", ImageURL(domain.Product{ImageURL: "/cart/static/x.png"}))
	require.Equal(t, PlaceholderImage, ImageURL(domain.Product{}))
}
