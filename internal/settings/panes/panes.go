// Package panes holds the content providers behind the default settings catalog.
package panes

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/pages"
	"finitefield.org/chat-settings/internal/settings/templates/helpers"
)

// Page ids of the default catalog.
const (
	Account       = "account"
	Profile       = "profile"
	Audio         = "audio"
	Appearance    = "appearance"
	Plugins       = "plugins"
	Notifications = "notifications"
	Language      = "language"
	Native        = "native"
)

// DefaultPage is shown for the bare base path and unknown ids.
const DefaultPage = Account

// Experiment and capability keys consulted by the default catalog.
const (
	ExperimentPlugins = "plugins"
	CapabilityNative  = "native"
)

const (
	categoryKeyPrefix = "app.settings.categories."
	pageKeyPrefix     = "app.settings.pages."
)

// DefaultCatalog returns the descriptors of the chat client settings screen in
// display order. Titles and categories are translation keys.
func DefaultCatalog() []pages.Descriptor {
	return []pages.Descriptor{
		{ID: Account, Title: titleKey(Account), Category: categoryKeyPrefix + "user_settings", Icon: "user"},
		{ID: Profile, Title: titleKey(Profile), Icon: "id-card"},
		{ID: Audio, Title: titleKey(Audio), Category: categoryKeyPrefix + "client_settings", Icon: "speaker"},
		{ID: Appearance, Title: titleKey(Appearance), Icon: "palette"},
		{ID: Plugins, Title: titleKey(Plugins), Icon: "plug", Hidden: pages.UnlessExperiment(ExperimentPlugins)},
		{ID: Notifications, Title: titleKey(Notifications), Icon: "bell"},
		{ID: Language, Title: titleKey(Language), Icon: "globe"},
		{ID: Native, Title: titleKey(Native), Icon: "desktop", Hidden: pages.UnlessCapability(CapabilityNative)},
	}
}

// Providers maps every default page id to its content.
func Providers() map[string]templ.Component {
	return map[string]templ.Component{
		Account:       pane(Account, section("edit"), section("mfa"), section("management")),
		Profile:       pane(Profile, description(Profile)),
		Audio:         pane(Audio, description(Audio)),
		Appearance:    pane(Appearance, themeSection(), section("chat")),
		Plugins:       pane(Plugins, description(Plugins)),
		Notifications: pane(Notifications, description(Notifications)),
		Language:      pane(Language, description(Language), currentLanguage()),
		Native:        pane(Native, description(Native)),
	}
}

func titleKey(id string) string {
	return pageKeyPrefix + id + ".title"
}

type paneSection func(ctx context.Context, id string, w *helpers.Writer)

func pane(id string, sections ...paneSection) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(out)
		w.Raw(`<section class="pane"`)
		w.Attr("data-page", id)
		w.Raw(`><h1>`)
		w.Text(helpers.T(ctx, titleKey(id)))
		w.Raw(`</h1>`)
		for i, s := range sections {
			if i > 0 {
				w.Raw(`<hr class="divider">`)
			}
			s(ctx, id, w)
		}
		w.Raw(`</section>`)
		return w.Err()
	})
}

func description(id string) paneSection {
	return func(ctx context.Context, _ string, w *helpers.Writer) {
		w.Raw(`<p class="description">`)
		w.Text(helpers.T(ctx, pageKeyPrefix+id+".description"))
		w.Raw(`</p>`)
	}
}

func section(name string) paneSection {
	return func(ctx context.Context, id string, w *helpers.Writer) {
		w.Raw(`<div class="section"`)
		w.Attr("data-section", name)
		w.Raw(`><h2>`)
		w.Text(helpers.T(ctx, pageKeyPrefix+id+"."+name))
		w.Raw(`</h2></div>`)
	}
}

func themeSection() paneSection {
	return func(ctx context.Context, id string, w *helpers.Writer) {
		w.Raw(`<div class="section" data-section="theme"><h2>`)
		w.Text(helpers.T(ctx, pageKeyPrefix+id+".theme"))
		w.Raw(`</h2><div class="themes">`)
		for _, theme := range []string{"light", "dark"} {
			w.Raw(`<label class="theme"><input type="radio" name="theme"`)
			w.Attr("value", theme)
			w.Raw(`><span>`)
			w.Text(theme)
			w.Raw(`</span></label>`)
		}
		w.Raw(`</div></div>`)
	}
}

func currentLanguage() paneSection {
	return func(ctx context.Context, _ string, w *helpers.Writer) {
		w.Raw(`<p class="current-language">`)
		w.Text(i18n.Language(ctx))
		w.Raw(`</p>`)
	}
}
