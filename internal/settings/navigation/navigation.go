package navigation

import (
	"net/http"
	"strings"

	"finitefield.org/chat-settings/internal/settings/pages"
)

// DefaultBasePath is the mount point of the settings screen.
const DefaultBasePath = "/settings"

// Location is the externally owned path the controller reads and rewrites.
type Location interface {
	Path() string
	// Replace swaps the current history entry for path without pushing a new one.
	Replace(path string)
}

// Controller binds the catalog to the path: it derives the selection and is
// the only component allowed to rewrite the location.
type Controller struct {
	base        string
	defaultPage string
	catalog     pages.Catalog
}

// NewController builds a controller for one render pass.
func NewController(basePath, defaultPage string, catalog pages.Catalog) *Controller {
	return &Controller{
		base:        NormalizeBase(basePath),
		defaultPage: defaultPage,
		catalog:     catalog,
	}
}

// BasePath returns the normalised base path.
func (c *Controller) BasePath() string {
	return c.base
}

// DefaultPage returns the fallback page id.
func (c *Controller) DefaultPage() string {
	return c.defaultPage
}

// CurrentSelection resolves the page id for path. Unknown and hidden ids fall
// back to the default page.
func (c *Controller) CurrentSelection(path string) string {
	if id, ok := c.Match(path); ok {
		return id
	}
	return c.defaultPage
}

// Match reports the visible page id addressed by path, if any. Only a single
// segment directly under the base path addresses a page.
func (c *Controller) Match(path string) (string, bool) {
	segment, ok := c.relative(path)
	if !ok || segment == "" || strings.Contains(segment, "/") {
		return "", false
	}
	if !c.catalog.Visible(segment) {
		return "", false
	}
	return segment, true
}

// NavigateTo replaces the location with the page path, or the bare base path
// when id is empty.
func (c *Controller) NavigateTo(loc Location, id string) {
	if loc == nil {
		return
	}
	loc.Replace(c.Href(id))
}

// Href returns the path addressing id under the base path.
func (c *Controller) Href(id string) string {
	if id == "" {
		return c.base
	}
	return Join(c.base, id)
}

// relative returns path with the base path removed. It reports false when
// path lies outside the base.
func (c *Controller) relative(path string) (string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if c.base == "/" {
		if path == "" {
			return "", true
		}
		return strings.CutPrefix(path, "/")
	}
	if path == c.base {
		return "", true
	}
	return strings.CutPrefix(path, c.base+"/")
}

// Join appends suffix to a normalised base path without doubling the slash
// when the base is the root.
func Join(base, suffix string) string {
	suffix = strings.TrimLeft(suffix, "/")
	if base == "/" || base == "" {
		return "/" + suffix
	}
	return strings.TrimRight(base, "/") + "/" + suffix
}

// NormalizeBase cleans a configured base path. Empty values use DefaultBasePath.
func NormalizeBase(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

// MemoryLocation is an in-process Location.
type MemoryLocation struct {
	path    string
	history []string
}

// NewMemoryLocation starts a location at path.
func NewMemoryLocation(path string) *MemoryLocation {
	return &MemoryLocation{path: path, history: []string{path}}
}

// Path implements Location.
func (m *MemoryLocation) Path() string {
	return m.path
}

// Replace implements Location. The history length never grows past one
// entry; a zero MemoryLocation starts its history here.
func (m *MemoryLocation) Replace(path string) {
	m.path = path
	if len(m.history) == 0 {
		m.history = append(m.history, path)
		return
	}
	m.history[len(m.history)-1] = path
}

// History returns the recorded history entries.
func (m *MemoryLocation) History() []string {
	return append([]string(nil), m.history...)
}

// ReplaceURLHeader instructs htmx to replace the browser URL.
const ReplaceURLHeader = "HX-Replace-Url"

// ResponseLocation reads the path from the request and writes replacements
// back to the browser through the htmx response header.
type ResponseLocation struct {
	w    http.ResponseWriter
	path string
}

// NewResponseLocation wraps a request/response pair.
func NewResponseLocation(w http.ResponseWriter, r *http.Request) *ResponseLocation {
	return &ResponseLocation{w: w, path: r.URL.Path}
}

// Path implements Location.
func (l *ResponseLocation) Path() string {
	return l.path
}

// Replace implements Location. Only the last call before the body is written wins.
func (l *ResponseLocation) Replace(path string) {
	l.path = path
	l.w.Header().Set(ReplaceURLHeader, path)
}
