package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/observability"
	appsession "finitefield.org/chat-settings/internal/settings/session"
)

type userKey struct{}

// User is the signed-in chat user for the current request.
type User struct {
	UID      string
	Username string
	Token    string
	// Experiments granted by the identity provider.
	Experiments map[string]bool
}

// Authenticator resolves a bearer token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is the default cause of a failed authentication.
var ErrUnauthorized = errors.New("unauthorized")

// Reasons carried by AuthError.
const (
	ReasonMissingToken = "missing_token"
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired lets the client refresh its token and retry.
	ReasonTokenExpired = "token_expired"
)

// AuthError is an authentication failure with a reason code.
type AuthError struct {
	Reason string
	Err    error
}

// NewAuthError wraps err with reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// tokenCookies are checked in order when no Authorization header is sent.
var tokenCookies = []string{"Authorization", "__session", "idToken"}

// DefaultAuthenticator trusts any non-empty token. Local development only.
func DefaultAuthenticator() Authenticator {
	return passthroughAuthenticator{}
}

// Auth authenticates every request. Successful requests carry the User on the
// context and have it remembered in the session; failures end the session and
// send the browser to loginPath.
func Auth(authenticator Authenticator, loginPath string) func(http.Handler) http.Handler {
	if authenticator == nil {
		authenticator = DefaultAuthenticator()
	}
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, reason, err := authenticate(authenticator, r)
			if err != nil {
				observability.FromContext(r.Context()).Info("auth failure",
					zap.String("reason", reason),
					zap.Error(err),
				)
				if sess, ok := SessionFromContext(r.Context()); ok {
					sess.Destroy()
				}
				rejectUnauthenticated(w, r, loginPath, reason)
				return
			}

			if sess, ok := SessionFromContext(r.Context()); ok {
				sess.SetUser(&appsession.User{UID: user.UID, Username: user.Username})
				sess.Grant(user.Experiments)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

// UserFromContext returns the authenticated user.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey{}).(*User)
	return user, ok && user != nil
}

func authenticate(authenticator Authenticator, r *http.Request) (*User, string, error) {
	token := requestToken(r)
	if token == "" {
		return nil, ReasonMissingToken, ErrUnauthorized
	}
	user, err := authenticator.Authenticate(r, token)
	if err == nil && user != nil {
		return user, "", nil
	}

	reason := ReasonTokenInvalid
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		reason = authErr.Reason
	}
	if err == nil {
		err = ErrUnauthorized
	}
	return nil, reason, err
}

// requestToken prefers the Authorization header and falls back to cookies.
func requestToken(r *http.Request) string {
	if token := bearer(r.Header.Get("Authorization")); token != "" {
		return token
	}
	for _, name := range tokenCookies {
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		value := strings.TrimSpace(c.Value)
		if strings.HasPrefix(strings.ToLower(value), "bearer ") {
			value = bearer(value)
		}
		if value != "" {
			return value
		}
	}
	return ""
}

func bearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// rejectUnauthenticated answers htmx with 401 plus a client instruction and
// everything else with a redirect to the login page.
func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, loginPath, reason string) {
	expired := reason == ReasonTokenExpired

	if IsHTMXRequest(r.Context()) {
		if expired {
			HXRefresh(w)
		} else {
			HXRedirect(w, loginPath)
		}
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	target := loginPath
	if expired {
		if u, err := url.Parse(loginPath); err == nil {
			q := u.Query()
			q.Set("reason", "expired")
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type passthroughAuthenticator struct{}

func (passthroughAuthenticator) Authenticate(_ *http.Request, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	return &User{UID: token, Username: token, Token: token}, nil
}
