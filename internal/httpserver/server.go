package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	custommw "finitefield.org/nutricart/internal/middleware"
	"finitefield.org/nutricart/internal/platform/observability"
	"finitefield.org/nutricart/internal/storefront"
)

const (
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Config holds runtime options for the storefront HTTP server.
type Config struct {
	Address  string
	Handlers *storefront.Handlers
	Sessions *custommw.Sessions
	Locales  *custommw.Locales
	Logger   *zap.Logger

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// New constructs the HTTP server with its middleware stack.
func New(cfg Config) (*http.Server, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("httpserver: storefront handlers are required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session codec is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.TraceMiddleware(cfg.TracerProvider))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mountStorefrontRoutes(router, cfg)

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       durationOr(cfg.IdleTimeout, defaultIdleTimeout),
	}, nil
}

func mountStorefrontRoutes(router chi.Router, cfg Config) {
	router.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)
		r.Use(custommw.HTMX)
		r.Use(custommw.CSRF)
		if cfg.Locales != nil {
			r.Use(cfg.Locales.Middleware)
		}
		cfg.Handlers.Routes(r)
	})
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
