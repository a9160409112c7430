package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

// Locales resolves the display locale of a request from ?hl=, the hl cookie or Accept-Language,
// restricted to the supported tags.
type Locales struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewLocales builds a resolver; the first tag is the fallback.
func NewLocales(fallback language.Tag, others ...language.Tag) *Locales {
	tags := append([]language.Tag{fallback}, others...)
	return &Locales{supported: tags, matcher: language.NewMatcher(tags)}
}

// Fallback returns the default locale.
func (l *Locales) Fallback() language.Tag { return l.supported[0] }

// Resolve picks the best supported tag for the given preferences.
func (l *Locales) Resolve(prefs ...string) language.Tag {
	var desired []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		desired = append(desired, tags...)
	}
	if len(desired) == 0 {
		return l.Fallback()
	}
	_, idx, conf := l.matcher.Match(desired...)
	if conf == language.No {
		return l.Fallback()
	}
	return l.supported[idx]
}

// Middleware stores the resolved locale in the session and request context.
func (l *Locales) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		s := GetSession(r)
		var tag language.Tag
		switch q := r.URL.Query().Get("hl"); {
		case q != "":
			tag = l.Resolve(q)
			http.SetCookie(w, &http.Cookie{Name: "hl", Value: tag.String(), Path: "/"})
		case s.Locale != "":
			tag = l.Resolve(s.Locale)
		default:
			var cookie string
			if c, err := r.Cookie("hl"); err == nil {
				cookie = c.Value
			}
			tag = l.Resolve(cookie, r.Header.Get("Accept-Language"))
		}
		if s.Locale != tag.String() {
			s.Locale = tag.String()
			s.MarkDirty()
		}
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), tag)))
	})
}

// Locale returns the tag resolved by Locales.Middleware, or fallback when absent.
func Locale(ctx context.Context, fallback language.Tag) language.Tag {
	if tag, ok := ctx.Value(ctxKeyLocale).(language.Tag); ok {
		return tag
	}
	return fallback
}
