package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger), RequestLoggerMiddleware())
	r.Get("/shop/{category}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handler")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/shop/dairy", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "handler", entries[0].Message)
	require.Equal(t, true, entries[0].ContextMap()["htmx"])

	done := entries[1]
	require.Equal(t, "request completed", done.Message)
	require.Equal(t, zapcore.WarnLevel, done.Level)
	fields := done.ContextMap()
	require.Equal(t, "/shop/{category}", fields["route"])
	require.Equal(t, int64(http.StatusTeapot), fields["status"])
	require.Equal(t, int64(2), fields["bytes"])
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	h := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	require.Same(t, NoopLogger(), FromContext(context.Background()))
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "GETX", SanitizeMethod("GET\nX"))
}

func TestRedactID(t *testing.T) {
	require.Equal(t, "Zm9vYm…", RedactID("Zm9vYmFyYmF6cXV4"))
	require.Equal(t, "***", RedactID("abc"))
	require.Equal(t, "", RedactID(""))
}

func TestProbesLogAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(zap.New(core)), RequestLoggerMiddleware())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/cart", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Zero(t, logs.Len())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("HX-Target", "cart-panel")
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "cart-panel", logs.All()[0].ContextMap()["hx_target"])
}
