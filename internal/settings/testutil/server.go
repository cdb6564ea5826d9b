package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/chat-settings/internal/settings/account"
	"finitefield.org/chat-settings/internal/settings/httpserver"
	"finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/session"
)

// TestToken is accepted by the default test authenticator.
const TestToken = "test-token"

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithBasePath mounts the settings routes elsewhere.
func WithBasePath(path string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.BasePath = path
	}
}

// WithAccountService wires a custom account backend.
func WithAccountService(service account.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.AccountService = service
	}
}

// WithExperiments enables experiments for every session.
func WithExperiments(keys ...string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Experiments = keys
	}
}

// NewServer runs the settings HTTP stack on an httptest server.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		CookieName: "test_session",
		HashKey:    []byte("12345678901234567890123456789012"),
	})
	require.NoError(t, err)

	cfg := httpserver.Config{
		Address:        ":0",
		BasePath:       "/settings",
		Environment:    "Test",
		Authenticator:  TokenAuthenticator{Token: TestToken},
		SessionStore:   sessions,
		AccountService: account.NewStaticService(&account.Summary{UserID: "u-1", Username: "tester", Presence: account.PresenceOnline}),
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: "X-CSRF-Token",
		NativeHeader:   "X-Native-Client",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps cookies and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// TokenAuthenticator accepts a single bearer token.
type TokenAuthenticator struct {
	Token       string
	Experiments map[string]bool
}

// Authenticate implements middleware.Authenticator.
func (a TokenAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token != a.Token {
		return nil, middleware.ErrUnauthorized
	}
	return &middleware.User{
		UID:         "u-1",
		Username:    "tester",
		Token:       token,
		Experiments: a.Experiments,
	}, nil
}
