package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout: 10 * time.Minute,
		Lifetime:    2 * time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return mgr, clock
}

// roundTrip saves sess and loads it back through the cookie.
func roundTrip(t *testing.T, mgr *Manager, sess *Session) (*Session, error) {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), mgr.CookieName())
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(cookie)
	return mgr.Load(req)
}

func TestManager_NewSessionLifecycle(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	require.True(t, sess.Dirty())
	require.Equal(t, clock.current, sess.CreatedAt())
	require.Equal(t, clock.current.Add(2*time.Hour), sess.ExpiresAt())

	sess.SetUser(&User{UID: "user-1", Username: "kit"})
	sess.SetExperiment("plugins", true)

	restored, err := roundTrip(t, mgr, sess)
	require.NoError(t, err)
	require.Equal(t, sess.ID(), restored.ID())
	require.Equal(t, "kit", restored.User().Username)
	require.True(t, restored.Experiments()["plugins"])
	require.False(t, restored.Dirty())
}

func TestManager_SaveRefreshesIdleTimer(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()

	for i := 0; i < 3; i++ {
		clock.current = clock.current.Add(8 * time.Minute)
		next, err := roundTrip(t, mgr, sess)
		require.NoError(t, err, "save %d", i)
		require.Equal(t, sess.ID(), next.ID())
		sess = next
	}
	require.Equal(t, clock.current, sess.LastActive())
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess := mgr.New()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), "test_session")

	clock.current = clock.current.Add(20 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(cookie)
	fresh, err := mgr.Load(req)
	require.ErrorIs(t, err, ErrExpired)
	require.NotNil(t, fresh)
	require.NotEqual(t, sess.ID(), fresh.ID())
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})

	sess, err := mgr.Load(req)
	require.NoError(t, err)
	require.True(t, sess.Dirty())
	require.Nil(t, sess.User())
}

func TestManager_DestroyClearsCookie(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.Destroy()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))

	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)
	require.Equal(t, -1, cookie.MaxAge)
	require.Empty(t, cookie.Value)
}

func TestNewManagerValidatesKeys(t *testing.T) {
	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSession_Experiments(t *testing.T) {
	mgr, _ := newTestManager(t)

	t.Run("toggle without grant", func(t *testing.T) {
		sess := mgr.New()
		require.True(t, sess.ToggleExperiment("plugins"))
		require.True(t, sess.Experiments()["plugins"])
		require.False(t, sess.ToggleExperiment("plugins"))
		require.NotContains(t, sess.Experiments(), "plugins")
	})

	t.Run("toggle overrides grant", func(t *testing.T) {
		sess := mgr.New()
		sess.Grant(map[string]bool{"plugins": true})
		require.False(t, sess.ToggleExperiment("plugins"))
		require.Equal(t, map[string]bool{"plugins": false}, sess.Experiments())

		sess.Grant(map[string]bool{"plugins": true})
		require.False(t, sess.Experiments()["plugins"], "regranting must not undo the user's choice")

		require.True(t, sess.ToggleExperiment("plugins"))
		require.Equal(t, map[string]bool{"plugins": true}, sess.Experiments())
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		sess := mgr.New()
		flags := sess.Experiments()
		flags["plugins"] = true
		require.False(t, sess.Experiments()["plugins"])
	})
}

func TestSession_SetUser(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	sess.SetUser(&User{UID: "u", Username: "kit"})
	sess.SetExperiment("plugins", true)

	restored, err := roundTrip(t, mgr, sess)
	require.NoError(t, err)

	restored.SetUser(&User{UID: "u", Username: "kit"})
	require.False(t, restored.Dirty(), "same user must not dirty the session")

	restored.SetUser(&User{UID: "u", Username: "kit2"})
	require.True(t, restored.Dirty())
	require.True(t, restored.Experiments()["plugins"], "renames keep toggles")

	restored.SetUser(&User{UID: "other"})
	require.Empty(t, restored.Experiments(), "another user starts without toggles")

	restored.SetUser(nil)
	require.Nil(t, restored.User())
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
