// Package shell composes the settings screen: optional header, the page
// catalog, the selected page's content and an optional footer.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/chat-settings/internal/settings/navigation"
	"finitefield.org/chat-settings/internal/settings/pages"
	"finitefield.org/chat-settings/internal/settings/templates/helpers"
)

// ContainerID is the element id catalog links swap with htmx.
const ContainerID = "settings-shell"

var (
	// ErrMissingProvider indicates a declared page without content.
	ErrMissingProvider = errors.New("shell: missing content provider")
	// ErrUnknownDefault indicates the default page is not among the descriptors.
	ErrUnknownDefault = errors.New("shell: default page not declared")
	// ErrDuplicateID is returned when two descriptors share an id.
	ErrDuplicateID = pages.ErrDuplicateID
)

// Config wires the shell.
type Config struct {
	BasePath    string
	DefaultPage string
	Descriptors []pages.Descriptor
	Providers   map[string]templ.Component
	// Header and Footer are default slots; either may be nil.
	Header templ.Component
	Footer templ.Component
}

// Shell holds validated configuration. It keeps no per-render state.
type Shell struct {
	base        string
	defaultPage string
	descriptors []pages.Descriptor
	providers   map[string]templ.Component
	header      templ.Component
	footer      templ.Component
}

// New validates cfg. Every declared page needs a provider and the default page
// must be declared.
func New(cfg Config) (*Shell, error) {
	if _, err := pages.Build(cfg.Descriptors, pages.Context{}); err != nil {
		return nil, err
	}

	declared := false
	for _, d := range cfg.Descriptors {
		if d.ID == cfg.DefaultPage {
			declared = true
		}
		if cfg.Providers[d.ID] == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingProvider, d.ID)
		}
	}
	if !declared {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, cfg.DefaultPage)
	}

	providers := make(map[string]templ.Component, len(cfg.Providers))
	for id, c := range cfg.Providers {
		providers[id] = c
	}
	return &Shell{
		base:        navigation.NormalizeBase(cfg.BasePath),
		defaultPage: cfg.DefaultPage,
		descriptors: append([]pages.Descriptor(nil), cfg.Descriptors...),
		providers:   providers,
		header:      cfg.Header,
		footer:      cfg.Footer,
	}, nil
}

// BasePath returns the normalised mount point.
func (s *Shell) BasePath() string {
	return s.base
}

// DefaultPage returns the fallback page id.
func (s *Shell) DefaultPage() string {
	return s.defaultPage
}

// View is one render pass: the catalog and selection derived from the
// visibility context and path.
type View struct {
	Catalog    pages.Catalog
	Controller *navigation.Controller
	// Selected is the page being shown. It is the default page when Matched is false.
	Selected string
	Matched  bool
	Content  templ.Component
	Header   templ.Component
	Footer   templ.Component
}

// Compute rebuilds the catalog and resolves the selection for path.
func (s *Shell) Compute(vis pages.Context, path string) (*View, error) {
	catalog, err := pages.Build(s.descriptors, vis)
	if err != nil {
		return nil, err
	}
	ctrl := navigation.NewController(s.base, s.defaultPage, catalog)

	selected, matched := ctrl.Match(path)
	if !matched {
		selected = s.defaultPage
	}
	content := s.providers[selected]
	if content == nil {
		content = s.providers[s.defaultPage]
	}

	return &View{
		Catalog:    catalog,
		Controller: ctrl,
		Selected:   selected,
		Matched:    matched,
		Content:    content,
		Header:     s.header,
		Footer:     s.footer,
	}, nil
}

// WithSlots returns a copy of the view using the given header and footer.
// Nil arguments keep the configured slot.
func (v *View) WithSlots(header, footer templ.Component) *View {
	out := *v
	if header != nil {
		out.Header = header
	}
	if footer != nil {
		out.Footer = footer
	}
	return &out
}

// Component renders the shell.
func (v *View) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(out)
		w.Raw(`<div class="settings-shell"`)
		w.Attr("id", ContainerID)
		w.Attr("data-selected", v.Selected)
		w.Raw(`>`)

		if v.Header != nil {
			w.Raw(`<div class="shell-header">`)
			w.Render(ctx, v.Header)
			w.Raw(`</div>`)
		}

		w.Raw(`<nav class="catalog"`)
		w.Attr("aria-label", helpers.T(ctx, "app.settings.title"))
		w.Raw(`>`)
		for _, group := range v.Catalog.Groups() {
			v.renderGroup(ctx, w, group)
		}
		w.Raw(`</nav>`)

		w.Raw(`<main class="content"`)
		w.Attr("data-page", v.Selected)
		w.Raw(`>`)
		w.Render(ctx, v.Content)
		w.Raw(`</main>`)

		if v.Footer != nil {
			w.Raw(`<hr class="divider"><div class="shell-footer">`)
			w.Render(ctx, v.Footer)
			w.Raw(`</div>`)
		}

		w.Raw(`</div>`)
		return w.Err()
	})
}

func (v *View) renderGroup(ctx context.Context, w *helpers.Writer, group pages.Group) {
	w.Raw(`<div class="category">`)
	if strings.TrimSpace(group.Category) != "" {
		w.Raw(`<h3>`)
		w.Text(helpers.T(ctx, group.Category))
		w.Raw(`</h3>`)
	}
	w.Raw(`<ul>`)
	for _, entry := range group.Entries {
		active := entry.ID == v.Selected
		href := v.Controller.Href(entry.ID)

		w.Raw(`<li><a`)
		w.Attr("class", helpers.EntryClass(active))
		w.Attr("href", href)
		w.Attr("hx-get", href)
		w.Attr("hx-target", "#"+ContainerID)
		w.Attr("hx-swap", "outerHTML")
		w.Attr("data-page", entry.ID)
		if active {
			w.Attr("aria-current", "page")
		}
		w.Raw(`>`)
		if icon := helpers.Icon(entry.Icon); icon != "" {
			w.Raw(`<span`)
			w.Attr("class", icon)
			w.Raw(` aria-hidden="true"></span>`)
		}
		w.Text(helpers.T(ctx, entry.Title))
		w.Raw(`</a></li>`)
	}
	w.Raw(`</ul></div>`)
}
