package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newSessions(t *testing.T) *Sessions {
	t.Helper()
	s, err := NewSessions("test-signing-key-0123456789", false)
	require.NoError(t, err)
	return s
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionIssuedAndReused(t *testing.T) {
	sessions := newSessions(t)

	var seen []string
	h := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, GetSession(r).ID)
		_, _ = w.Write([]byte("ok"))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := findCookie(first, SessionCookieName())
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)

	require.Len(t, seen, 2)
	require.NotEmpty(t, seen[0])
	require.Equal(t, seen[0], seen[1])
	require.Nil(t, findCookie(second, SessionCookieName()), "unchanged session is not rewritten")
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	sessions := newSessions(t)
	other, err := NewSessions("another-signing-key-abcdef", false)
	require.NoError(t, err)

	forged := other.Encode(&SessionData{ID: "victim"})

	var got string
	h := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSession(r).ID
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName(), Value: forged})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEqual(t, "victim", got)
	require.NotNil(t, findCookie(rec, SessionCookieName()), "a fresh session is written even without a body")
}

func TestNewSessionsRequiresKey(t *testing.T) {
	_, err := NewSessions(" ", false)
	require.Error(t, err)
}

func TestCSRFRejectsUnsafeWithoutToken(t *testing.T) {
	sessions := newSessions(t)
	h := sessions.Middleware(HTMX(CSRF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))))

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/", nil))
	session := findCookie(get, SessionCookieName())
	token := findCookie(get, "csrf_token")
	require.NotNil(t, session)
	require.NotNil(t, token)

	post := httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	post.AddCookie(session)
	post.Header.Set("HX-Request", "true")
	denied := httptest.NewRecorder()
	h.ServeHTTP(denied, post)
	require.Equal(t, http.StatusForbidden, denied.Code)
	require.Equal(t, "none", denied.Header().Get("HX-Reswap"))
	require.Contains(t, denied.Header().Get("HX-Trigger"), `"tone":"danger"`)
	require.Contains(t, denied.Header().Get("HX-Trigger"), "invalid CSRF token")

	post = httptest.NewRequest(http.MethodPost, "/cart/clear", nil)
	post.AddCookie(session)
	post.Header.Set(CSRFHeader, token.Value)
	allowed := httptest.NewRecorder()
	h.ServeHTTP(allowed, post)
	require.Equal(t, http.StatusNoContent, allowed.Code)
}

func TestLocalesResolve(t *testing.T) {
	l := NewLocales(language.MustParse("en-IN"), language.AmericanEnglish, language.Japanese)

	require.Equal(t, "en-IN", l.Resolve().String())
	require.Equal(t, "en-US", l.Resolve("en-US,en;q=0.8").String())
	require.Equal(t, "ja", l.Resolve("", "ja-JP").String())
	require.Equal(t, "en-IN", l.Resolve("!!!").String())
}

func TestLocalesMiddleware(t *testing.T) {
	sessions := newSessions(t)
	l := NewLocales(language.MustParse("en-IN"), language.AmericanEnglish)

	var tag language.Tag
	h := sessions.Middleware(l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag = Locale(r.Context(), language.Und)
	})))

	req := httptest.NewRequest(http.MethodGet, "/?hl=en-US", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "en-US", tag.String())
	require.Equal(t, "en-US", rec.Header().Get("Content-Language"))
	require.NotNil(t, findCookie(rec, "hl"))
}

func TestHTMXDetails(t *testing.T) {
	var got *HTMXRequest
	h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = HTMXFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/shop/dairy/products", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "products-container")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotNil(t, got)
	require.Equal(t, "products-container", got.Target)
	require.Equal(t, "HX-Request", rec.Header().Get("Vary"))

	got = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shop/dairy", nil))
	require.Nil(t, got)
}
