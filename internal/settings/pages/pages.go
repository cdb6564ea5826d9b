package pages

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID indicates two descriptors share the same id.
	ErrDuplicateID = errors.New("pages: duplicate descriptor id")
	// ErrInvalidDescriptor indicates a descriptor without a usable id.
	ErrInvalidDescriptor = errors.New("pages: invalid descriptor")
)

// Predicate reports whether a descriptor should be hidden under the given context.
type Predicate func(Context) bool

// Descriptor describes one navigable settings page.
type Descriptor struct {
	// ID is the routing and content-dispatch key.
	ID string
	// Title is an i18n key for the display label.
	Title string
	// Category is an i18n key. Empty continues the previous descriptor's category.
	Category string
	// Icon is an opaque icon reference.
	Icon string
	// Hidden is evaluated on every build; nil means always visible.
	Hidden Predicate
}

// Context carries the external conditions that gate descriptor visibility.
type Context struct {
	Experiments  map[string]bool
	Capabilities map[string]bool
}

// ExperimentEnabled reports whether the named experiment is switched on.
func (c Context) ExperimentEnabled(name string) bool {
	return c.Experiments[name]
}

// Capable reports whether the platform exposes the named capability.
func (c Context) Capable(name string) bool {
	return c.Capabilities[name]
}

// Always hides the descriptor.
func Always(Context) bool { return true }

// Never keeps the descriptor visible.
func Never(Context) bool { return false }

// UnlessExperiment hides the descriptor until the experiment is enabled.
func UnlessExperiment(name string) Predicate {
	return func(ctx Context) bool {
		return !ctx.ExperimentEnabled(name)
	}
}

// UnlessCapability hides the descriptor on platforms lacking the capability.
func UnlessCapability(name string) Predicate {
	return func(ctx Context) bool {
		return !ctx.Capable(name)
	}
}

// AnyOf hides the descriptor when any of the predicates does.
func AnyOf(predicates ...Predicate) Predicate {
	return func(ctx Context) bool {
		for _, p := range predicates {
			if p != nil && p(ctx) {
				return true
			}
		}
		return false
	}
}

// Entry is a visible descriptor together with its resolved category.
type Entry struct {
	Descriptor
	ResolvedCategory string
}

// Group is a run of consecutive entries sharing a category.
type Group struct {
	Category string
	Entries  []Entry
}

// Catalog is the filtered, grouped and ordered set of descriptors for one render pass.
type Catalog struct {
	groups  []Group
	visible map[string]Entry
	known   map[string]struct{}
}

// Build filters and groups descriptors under the provided context.
//
// Categories are resolved in declaration order before filtering, so a category
// declared on a hidden descriptor still applies to the descriptors that follow it.
func Build(descriptors []Descriptor, ctx Context) (Catalog, error) {
	cat := Catalog{
		visible: make(map[string]Entry, len(descriptors)),
		known:   make(map[string]struct{}, len(descriptors)),
	}

	current := ""
	for i, d := range descriptors {
		id := strings.TrimSpace(d.ID)
		if id == "" || id != d.ID || strings.Contains(id, "/") {
			return Catalog{}, fmt.Errorf("%w: index %d id %q", ErrInvalidDescriptor, i, d.ID)
		}
		if _, dup := cat.known[id]; dup {
			return Catalog{}, fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		cat.known[id] = struct{}{}

		if d.Category != "" {
			current = d.Category
		}
		if d.Hidden != nil && d.Hidden(ctx) {
			continue
		}

		entry := Entry{Descriptor: d, ResolvedCategory: current}
		cat.visible[id] = entry

		last := len(cat.groups) - 1
		if last >= 0 && cat.groups[last].Category == current {
			cat.groups[last].Entries = append(cat.groups[last].Entries, entry)
			continue
		}
		cat.groups = append(cat.groups, Group{Category: current, Entries: []Entry{entry}})
	}

	return cat, nil
}

// Groups returns the positional category groups in display order.
func (c Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		out[i] = Group{Category: g.Category, Entries: append([]Entry(nil), g.Entries...)}
	}
	return out
}

// Entries returns the visible entries in display order.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.visible))
	for _, g := range c.groups {
		out = append(out, g.Entries...)
	}
	return out
}

// Len returns the number of visible entries.
func (c Catalog) Len() int {
	return len(c.visible)
}

// Visible reports whether id is part of the visible catalog.
func (c Catalog) Visible(id string) bool {
	_, ok := c.visible[id]
	return ok
}

// Known reports whether id was declared, regardless of visibility.
func (c Catalog) Known(id string) bool {
	_, ok := c.known[id]
	return ok
}

// Lookup returns the visible entry for id.
func (c Catalog) Lookup(id string) (Entry, bool) {
	e, ok := c.visible[id]
	return e, ok
}
