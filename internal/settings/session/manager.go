package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName  = "settings_session"
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
	idLength           = 24
)

var (
	// ErrExpired is returned by Load, together with a fresh session, when the
	// stored one passed its idle or absolute limit.
	ErrExpired = errors.New("session: expired")
	// ErrInvalidConfig indicates unusable manager options.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Config controls the cookie and session limits.
type Config struct {
	CookieName   string
	HashKey      []byte
	BlockKey     []byte
	CookiePath   string
	CookieDomain string
	CookieSecure bool
	// CookieHTTPOnly defaults to true.
	CookieHTTPOnly *bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager stores sessions in signed, optionally encrypted cookies.
type Manager struct {
	codec    *securecookie.SecureCookie
	template http.Cookie
	idle     time.Duration
	lifetime time.Duration
	now      func() time.Time
}

// NewManager validates cfg and fills defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	m := &Manager{
		codec:    securecookie.New(cfg.HashKey, cfg.BlockKey).SetSerializer(securecookie.JSONEncoder{}),
		idle:     cfg.IdleTimeout,
		lifetime: cfg.Lifetime,
		now:      cfg.Now,
		template: http.Cookie{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			HttpOnly: cfg.CookieHTTPOnly == nil || *cfg.CookieHTTPOnly,
			SameSite: cfg.CookieSameSite,
		},
	}
	if m.template.Name == "" {
		m.template.Name = defaultCookieName
	}
	if m.template.Path == "" {
		m.template.Path = "/"
	}
	if m.template.SameSite == http.SameSiteDefaultMode {
		m.template.SameSite = http.SameSiteLaxMode
	}
	if m.idle <= 0 {
		m.idle = defaultIdleTimeout
	}
	if m.lifetime <= 0 {
		m.lifetime = defaultLifetime
	}
	if m.now == nil {
		m.now = time.Now
	}
	// The cookie is re-issued on every save, so MaxAge bounds the codec too.
	m.codec.MaxAge(int(m.lifetime / time.Second))
	return m, nil
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string { return m.template.Name }

// Load decodes the session cookie. A missing or undecodable cookie yields a
// fresh session; an expired one yields a fresh session and ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.template.Name)
	if err != nil {
		return m.New(), nil
	}
	var rec Record
	if err := m.codec.Decode(m.template.Name, cookie.Value, &rec); err != nil || rec.ID == "" {
		return m.New(), nil
	}
	if m.expired(rec, m.now().UTC()) {
		return m.New(), ErrExpired
	}
	return &Session{rec: rec}, nil
}

// New issues a session that has never been saved.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		rec: Record{
			ID:      newID(),
			Issued:  now,
			Seen:    now,
			Expires: now.Add(m.lifetime),
		},
		changed: true,
	}
}

// Save writes the session cookie, refreshing the idle timer. Destroyed
// sessions clear the cookie instead.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
		return nil
	}

	now := m.now().UTC()
	if now.After(sess.rec.Seen) {
		sess.rec.Seen = now
	}
	encoded, err := m.codec.Encode(m.template.Name, sess.rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	maxAge := int(sess.rec.Expires.Sub(now).Round(time.Second) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, m.cookie(encoded, maxAge, sess.rec.Expires))
	return nil
}

func (m *Manager) expired(rec Record, now time.Time) bool {
	if !rec.Expires.IsZero() && now.After(rec.Expires) {
		return true
	}
	last := rec.Seen
	if last.IsZero() {
		last = rec.Issued
	}
	return now.Sub(last) > m.idle
}

func (m *Manager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	c := m.template
	c.Value = value
	c.MaxAge = maxAge
	c.Expires = expires.UTC()
	return &c
}

func newID() string {
	key := securecookie.GenerateRandomKey(idLength)
	if key == nil {
		panic("session: random source unavailable")
	}
	return base64.RawURLEncoding.EncodeToString(key)
}
