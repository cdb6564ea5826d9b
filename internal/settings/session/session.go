package session

import (
	"maps"
	"time"
)

// User is the signed-in chat user remembered between requests.
type User struct {
	UID      string `json:"uid"`
	Username string `json:"username,omitempty"`
}

// Record is the cookie payload.
type Record struct {
	ID      string    `json:"id"`
	Issued  time.Time `json:"iat"`
	Seen    time.Time `json:"seen"`
	Expires time.Time `json:"exp,omitempty"`
	User    *User     `json:"user,omitempty"`
	// Granted holds experiment flags asserted by the identity provider.
	Granted map[string]bool `json:"granted,omitempty"`
	// Toggles holds flags the user flipped in this session. They override Granted.
	Toggles map[string]bool `json:"toggles,omitempty"`
}

// Session is one browser's state for the duration of a request.
type Session struct {
	rec       Record
	changed   bool
	destroyed bool
}

// ID returns the random session identifier.
func (s *Session) ID() string { return s.rec.ID }

// CreatedAt returns when the session was issued.
func (s *Session) CreatedAt() time.Time { return s.rec.Issued }

// LastActive returns the last time the session was saved.
func (s *Session) LastActive() time.Time { return s.rec.Seen }

// ExpiresAt returns the absolute expiry, zero when the session never expires.
func (s *Session) ExpiresAt() time.Time { return s.rec.Expires }

// User returns the remembered user, or nil.
func (s *Session) User() *User {
	if s.rec.User == nil {
		return nil
	}
	u := *s.rec.User
	return &u
}

// SetUser remembers user. Signing in as someone else drops the previous
// user's experiment toggles.
func (s *Session) SetUser(user *User) {
	current := s.rec.User
	switch {
	case current == nil && user == nil:
		return
	case current != nil && user != nil && *current == *user:
		return
	}
	if current != nil && (user == nil || current.UID != user.UID) {
		s.rec.Toggles = nil
		s.rec.Granted = nil
	}
	if user == nil {
		s.rec.User = nil
	} else {
		u := *user
		s.rec.User = &u
	}
	s.changed = true
}

// Experiments returns the effective flags: granted ones overlaid with toggles.
func (s *Session) Experiments() map[string]bool {
	out := make(map[string]bool, len(s.rec.Granted)+len(s.rec.Toggles))
	maps.Copy(out, s.rec.Granted)
	maps.Copy(out, s.rec.Toggles)
	return out
}

// Grant replaces the provider-asserted flags.
func (s *Session) Grant(flags map[string]bool) {
	if maps.Equal(s.rec.Granted, flags) {
		return
	}
	if len(flags) == 0 {
		s.rec.Granted = nil
	} else {
		s.rec.Granted = maps.Clone(flags)
	}
	s.changed = true
}

// SetExperiment records the user's choice for name. A choice matching the
// granted value is dropped.
func (s *Session) SetExperiment(name string, enabled bool) {
	if granted, ok := s.rec.Granted[name]; ok && granted == enabled || !ok && !enabled {
		if _, toggled := s.rec.Toggles[name]; toggled {
			delete(s.rec.Toggles, name)
			s.changed = true
		}
		return
	}
	if current, ok := s.rec.Toggles[name]; ok && current == enabled {
		return
	}
	if s.rec.Toggles == nil {
		s.rec.Toggles = make(map[string]bool)
	}
	s.rec.Toggles[name] = enabled
	s.changed = true
}

// ToggleExperiment flips name and returns the new effective state.
func (s *Session) ToggleExperiment(name string) bool {
	enabled := !s.Experiments()[name]
	s.SetExperiment(name, enabled)
	return enabled
}

// Destroy clears the cookie when the session is saved.
func (s *Session) Destroy() {
	s.destroyed = true
	s.changed = true
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// Dirty reports whether the session changed during this request.
func (s *Session) Dirty() bool { return s.changed }
