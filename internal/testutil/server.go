package testutil

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/format"
	"finitefield.org/nutricart/internal/httpserver"
	"finitefield.org/nutricart/internal/middleware"
	"finitefield.org/nutricart/internal/profile"
	"finitefield.org/nutricart/internal/render"
	"finitefield.org/nutricart/internal/storage"
	"finitefield.org/nutricart/internal/storefront"
)

// Storefront is a running storefront wired to a fake Backend.
type Storefront struct {
	*httptest.Server
	Backend *Backend
	Manager *storefront.Manager
}

type serverConfig struct {
	slot        storage.Slot
	registry    *catalog.Registry
	logger      *zap.Logger
	uploadMax   int64
	currency    string
	locale      string
	notifyDelay time.Duration
}

// ServerOption customises the storefront under test.
type ServerOption func(*serverConfig)

// WithSlot overrides the durable storage backend (memory by default).
func WithSlot(slot storage.Slot) ServerOption {
	return func(cfg *serverConfig) { cfg.slot = slot }
}

// WithRegistry overrides the category registry.
func WithRegistry(reg *catalog.Registry) ServerOption {
	return func(cfg *serverConfig) { cfg.registry = reg }
}

// WithLogger routes server logs to logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *serverConfig) { cfg.logger = logger }
}

// WithUploadMax sets the profile image size cap.
func WithUploadMax(n int64) ServerOption {
	return func(cfg *serverConfig) { cfg.uploadMax = n }
}

// WithMoney sets the display currency and locale.
func WithMoney(locale, currency string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.locale = locale
		cfg.currency = currency
	}
}

// NewServer starts the full storefront HTTP stack against a fresh fake backend.
func NewServer(t testing.TB, opts ...ServerOption) *Storefront {
	t.Helper()

	cfg := serverConfig{
		slot:        storage.NewMemoryBackend(),
		registry:    catalog.DefaultRegistry(),
		logger:      zap.NewNop(),
		uploadMax:   profile.DefaultMaxUploadBytes,
		currency:    "USD",
		locale:      "en-US",
		notifyDelay: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	backend := NewBackend(t)
	backendURL, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}

	renderer, err := render.New(format.NewMoney(cfg.locale, cfg.currency))
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	manager, err := storefront.NewManager(cfg.slot, renderer,
		storefront.WithNotifyDelay(cfg.notifyDelay),
		storefront.WithManagerLogger(cfg.logger),
	)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(manager.Close)

	fetcher, err := catalog.NewClient(backend.URL, backend.Client())
	if err != nil {
		t.Fatalf("catalog client: %v", err)
	}
	profiles, err := profile.NewClient(backend.URL, backend.Client())
	if err != nil {
		t.Fatalf("profile client: %v", err)
	}
	handlers, err := storefront.NewHandlers(storefront.Config{
		Manager:        manager,
		Renderer:       renderer,
		Registry:       cfg.registry,
		Fetcher:        fetcher,
		Profile:        profiles,
		UploadMaxBytes: cfg.uploadMax,
		Static:         httpserver.StaticProxy(backendURL),
	})
	if err != nil {
		t.Fatalf("handlers: %v", err)
	}
	sessions, err := middleware.NewSessions("test-signing-key-0123456789", false)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:  ":0",
		Handlers: handlers,
		Sessions: sessions,
		Locales:  middleware.NewLocales(language.MustParse(cfg.locale), language.English, language.Japanese, language.German),
		Logger:   cfg.logger,
	})
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Storefront{Server: ts, Backend: backend, Manager: manager}
}
