package middleware

import (
	"net/http"
	"time"

	"finitefield.org/nutricart/internal/notify"
)

// HTMXRequest carries the htmx request headers a handler may care about.
type HTMXRequest struct {
	Target  string
	Trigger string
}

// HTMX marks requests coming from htmx. Responses vary on HX-Request because the same URL may
// answer with a full page or a fragment.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		if r.Header.Get("HX-Request") != "true" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := WithHTMX(r.Context(), &HTMXRequest{
			Target:  r.Header.Get("HX-Target"),
			Trigger: r.Header.Get("HX-Trigger"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError answers htmx requests with a danger toast and no swap, so the page stays intact;
// other clients get a plain text error.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if !IsHTMX(r.Context()) {
		http.Error(w, msg, code)
		return
	}
	w.Header().Set("HX-Reswap", "none")
	notify.SetTrigger(w.Header(), notify.NewToast(msg, notify.ToneDanger, time.Now()))
	w.WriteHeader(code)
}
