package account

import (
	"context"
	"errors"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxStatusTextLength caps the custom status in runes.
const MaxStatusTextLength = 128

var (
	// ErrInvalidPresence is returned for presence values outside the known set.
	ErrInvalidPresence = errors.New("account: invalid presence")
	// ErrUnauthorized is returned when the backend rejects the caller token.
	ErrUnauthorized = errors.New("account: unauthorized")
)

// Presence is the user's online state shown next to the avatar.
type Presence string

const (
	PresenceOnline    Presence = "Online"
	PresenceIdle      Presence = "Idle"
	PresenceFocus     Presence = "Focus"
	PresenceBusy      Presence = "Busy"
	PresenceInvisible Presence = "Invisible"
)

// Presences lists the selectable presence values in display order.
func Presences() []Presence {
	return []Presence{PresenceOnline, PresenceIdle, PresenceFocus, PresenceBusy, PresenceInvisible}
}

// ParsePresence validates a presence string.
func ParsePresence(value string) (Presence, error) {
	for _, p := range Presences() {
		if string(p) == value {
			return p, nil
		}
	}
	return "", ErrInvalidPresence
}

// Summary is the slice of the signed-in user shown in the settings header.
type Summary struct {
	UserID        string
	Username      string
	Discriminator string
	AvatarURL     string
	Presence      Presence
	StatusText    string
}

// Service reads and updates the caller's account summary.
type Service interface {
	// Summary returns the current user as seen by the backend.
	Summary(ctx context.Context, token string) (*Summary, error)
	// SetStatusText replaces the custom status. Empty text clears it.
	SetStatusText(ctx context.Context, token, text string) (*Summary, error)
	// ClearStatusText removes the custom status.
	ClearStatusText(ctx context.Context, token string) (*Summary, error)
	// SetPresence changes the online state.
	SetPresence(ctx context.Context, token string, presence Presence) (*Summary, error)
}

var statusPolicy = bluemonday.StrictPolicy()

// SanitizeStatusText strips markup and control whitespace and truncates the
// result to MaxStatusTextLength runes.
func SanitizeStatusText(text string) string {
	// The policy entity-encodes what it keeps; the views escape on output.
	cleaned := html.UnescapeString(statusPolicy.Sanitize(text))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if utf8.RuneCountInString(cleaned) <= MaxStatusTextLength {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:MaxStatusTextLength]))
}

// Tag renders the username with its discriminator, if any.
func (s Summary) Tag() string {
	if s.Discriminator == "" {
		return s.Username
	}
	return s.Username + "#" + s.Discriminator
}
