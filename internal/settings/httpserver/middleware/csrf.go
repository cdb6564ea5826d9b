package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/observability"
)

type csrfKey struct{}

// CSRFFormField carries the token on plain form posts, such as logout without JS.
const CSRFFormField = "csrf_token"

// CSRFConfig configures the double-submit cookie.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
}

type csrfGuard struct {
	cookie http.Cookie
	header string
}

// CSRF issues a token cookie on every request and rejects state-changing
// requests whose header or form token does not match it.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := csrfGuard{
		cookie: http.Cookie{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(cfg.MaxAge / time.Second),
		},
		header: cfg.HeaderName,
	}
	if g.cookie.Name == "" {
		g.cookie.Name = "settings_csrf"
	}
	if g.cookie.Path == "" {
		g.cookie.Path = "/"
	}
	if g.cookie.MaxAge <= 0 {
		g.cookie.MaxAge = int((24 * time.Hour) / time.Second)
	}
	if g.header == "" {
		g.header = "X-CSRF-Token"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.token(w, r)
			if err != nil {
				observability.FromContext(r.Context()).Error("csrf token issue failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if changesState(r.Method) && !g.valid(r, token) {
				observability.FromContext(r.Context()).Info("csrf rejected",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
		})
	}
}

// CSRFTokenFromContext returns the token to embed in pages.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

// token returns the cookie token, issuing a new one when absent.
func (g csrfGuard) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cookie.Name); err == nil && c.Value != "" {
		return c.Value, nil
	}
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return "", errors.New("csrf: random source unavailable")
	}
	c := g.cookie
	c.Value = base64.RawURLEncoding.EncodeToString(raw)
	c.Secure = c.Secure || r.TLS != nil
	http.SetCookie(w, &c)
	return c.Value, nil
}

func (g csrfGuard) valid(r *http.Request, token string) bool {
	submitted := r.Header.Get(g.header)
	if submitted == "" {
		submitted = r.PostFormValue(CSRFFormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) == 1
}

func changesState(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
