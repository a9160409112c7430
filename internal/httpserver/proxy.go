package httpserver

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"finitefield.org/nutricart/internal/platform/observability"
)

// StaticProxy forwards /cart/static/* to the backend, which owns the product images.
func StaticProxy(backend *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(backend)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = backend.Host
		// the storefront session cookie stays local
		r.Header.Del("Cookie")
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		observability.FromContext(r.Context()).Warn("static proxy", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}
