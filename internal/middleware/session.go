package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	sessionCookieName = "NUTRICART_SESSION"
	sessionLifetime   = 30 * 24 * time.Hour
)

// SessionData is the visitor state carried in the signed session cookie. The cart itself lives in
// the durable slot keyed by ID, not in the cookie.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// Sessions issues and verifies HMAC-signed session cookies.
type Sessions struct {
	key    []byte
	secure bool
}

// NewSessions builds the cookie codec. secure marks cookies Secure (production only).
func NewSessions(signingKey string, secure bool) (*Sessions, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, errors.New("session: signing key is required")
	}
	return &Sessions{key: []byte(signingKey), secure: secure}, nil
}

// Middleware loads or initializes a session and stores it in request context.
func (m *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := m.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{
				ID:        randID(),
				CSRFToken: newCSRFToken(),
				CreatedAt: now,
				UpdatedAt: now,
				dirty:     true,
			}
		}
		ctx := WithSession(r.Context(), sd)

		rw := NewResponseRecorder(w)
		// ensure cookie is set just before first write if needed
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				m.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		// nothing written (e.g. HEAD): persist cookie now
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			m.write(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	if sd, ok := SessionFromContext(r.Context()); ok {
		return sd
	}
	return &SessionData{}
}

// read parses and verifies the session cookie
func (m *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return &SessionData{}, false
	}
	sigB, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sigB, m.sign(payloadB)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payloadB, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

// Encode serializes a session into a signed cookie value.
func (m *Sessions) Encode(sd *SessionData) string {
	b, _ := json.Marshal(sd)
	return base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(m.sign(b))
}

func (m *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    m.Encode(sd),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	})
	sd.dirty = false
}

func (m *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SessionCookieName is exported for tests and the CLI.
func SessionCookieName() string { return sessionCookieName }

func randID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
