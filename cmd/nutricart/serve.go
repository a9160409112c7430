package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"finitefield.org/nutricart/internal/catalog"
	"finitefield.org/nutricart/internal/format"
	"finitefield.org/nutricart/internal/httpserver"
	"finitefield.org/nutricart/internal/middleware"
	"finitefield.org/nutricart/internal/platform/observability"
	"finitefield.org/nutricart/internal/profile"
	"finitefield.org/nutricart/internal/render"
	"finitefield.org/nutricart/internal/storefront"
)

const (
	sweepInterval = time.Minute
	sessionIdle   = 30 * time.Minute
	shutdownGrace = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger, err := observability.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	cfg := a.cfg

	backend, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg, err := a.registry()
	if err != nil {
		return err
	}
	backendURL, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: cfg.Backend.Timeout}
	fetcher, err := catalog.NewClient(cfg.Backend.URL, httpClient)
	if err != nil {
		return err
	}
	profiles, err := profile.NewClient(cfg.Backend.URL, httpClient)
	if err != nil {
		return err
	}

	renderer, err := render.New(format.NewMoney(cfg.Display.Locale, cfg.Display.Currency))
	if err != nil {
		return err
	}
	manager, err := storefront.NewManager(backend, renderer,
		storefront.WithNotifyDelay(cfg.Notify.Delay),
		storefront.WithManagerLogger(logger),
	)
	if err != nil {
		return err
	}
	defer manager.Close()
	go manager.Run(ctx, sweepInterval, sessionIdle)

	handlers, err := storefront.NewHandlers(storefront.Config{
		Manager:        manager,
		Renderer:       renderer,
		Registry:       reg,
		Fetcher:        fetcher,
		Profile:        profiles,
		UploadMaxBytes: cfg.Upload.MaxBytes,
		Static:         httpserver.StaticProxy(backendURL),
	})
	if err != nil {
		return err
	}
	sessions, err := middleware.NewSessions(cfg.Session.SigningKey, !cfg.IsLocal())
	if err != nil {
		return err
	}
	fallback, err := language.Parse(cfg.Display.Locale)
	if err != nil {
		fallback = language.MustParse(format.DefaultLocale)
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:      net.JoinHostPort("", cfg.Server.Port),
		Handlers:     handlers,
		Sessions:     sessions,
		Locales:      middleware.NewLocales(fallback, language.English, language.Hindi),
		Logger:       logger,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("storefront listening",
		zap.String("addr", srv.Addr),
		zap.String("backend", cfg.Backend.URL),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("env", cfg.Environment),
	)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	logger.Info("storefront stopped")
	return nil
}
