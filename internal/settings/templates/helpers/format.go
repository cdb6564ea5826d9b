package helpers

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/chat-settings/internal/settings/i18n"
)

// Writer emits markup and remembers the first write error, so components can
// render linearly and check once at the end.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup.
func (w *Writer) Raw(markup string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, markup)
}

// Text writes HTML-escaped text.
func (w *Writer) Text(value string) {
	w.Raw(templ.EscapeString(value))
}

// Attr writes ` name="value"` with the value escaped.
func (w *Writer) Attr(name, value string) {
	w.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// URLAttr writes an attribute holding a URL, replacing unsafe schemes.
func (w *Writer) URLAttr(name, value string) {
	w.Attr(name, string(templ.URL(value)))
}

// Render writes a nested component. Nil components render nothing.
func (w *Writer) Render(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Text returns a component rendering escaped text.
func Text(value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}

// T translates key using the request language.
func T(ctx context.Context, key string) string {
	return i18n.T(ctx, key)
}

// Icon returns the class list for a named icon. Empty names render no icon.
func Icon(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "icon icon-" + name
}

// EntryClass returns catalog entry classes.
func EntryClass(active bool) string {
	if active {
		return "entry active"
	}
	return "entry"
}

// PresenceClass maps a presence value to its indicator class.
func PresenceClass(presence string) string {
	if presence == "" {
		return "presence presence-online"
	}
	return "presence presence-" + strings.ToLower(presence)
}
