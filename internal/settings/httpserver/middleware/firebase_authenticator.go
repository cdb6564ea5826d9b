package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired marks an expired ID token from verifiers other than the SDK.
var ErrTokenExpired = errors.New("firebase: id token expired")

// FirebaseTokenVerifier is the part of the Firebase auth client used here.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator turns Firebase ID tokens into chat users. The display
// name comes from the "username" claim, else "name". Experiment flags come
// from the "experiments" and "featureFlags" claims.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator wraps verifier, usually an *auth.Client.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("middleware: firebase verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate implements Authenticator.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}

	c := tokenClaims(verified.Claims)
	return &User{
		UID:         verified.UID,
		Username:    c.first("username", "name"),
		Token:       token,
		Experiments: c.flags("experiments", "featureFlags"),
	}, nil
}

type tokenClaims map[string]any

// first returns the first non-blank string claim among keys.
func (c tokenClaims) first(keys ...string) string {
	for _, key := range keys {
		if s, ok := c[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// flags merges experiment claims. Lists and single strings switch flags on;
// objects carry explicit booleans. Later keys win.
func (c tokenClaims) flags(keys ...string) map[string]bool {
	out := make(map[string]bool)
	set := func(name string, on bool) {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = on
		}
	}
	for _, key := range keys {
		switch v := c[key].(type) {
		case string:
			set(v, true)
		case []string:
			for _, name := range v {
				set(name, true)
			}
		case []any:
			for _, item := range v {
				if name, ok := item.(string); ok {
					set(name, true)
				}
			}
		case map[string]bool:
			for name, on := range v {
				set(name, on)
			}
		case map[string]any:
			for name, raw := range v {
				if on, ok := raw.(bool); ok {
					set(name, on)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
