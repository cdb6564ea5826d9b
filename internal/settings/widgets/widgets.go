// Package widgets renders the header and footer slots of the settings shell.
package widgets

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"finitefield.org/chat-settings/internal/settings/account"
	"finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/navigation"
	"finitefield.org/chat-settings/internal/settings/templates/helpers"
)

// AccountHeaderID is the element id the status forms swap.
const AccountHeaderID = "settings-account-header"

// AccountHeader shows the avatar, username and presence of the signed-in user
// together with the status changer.
func AccountHeader(summary account.Summary, base string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(out)
		w.Raw(`<header class="account-header"`)
		w.Attr("id", AccountHeaderID)
		w.Raw(`><div class="account">`)
		writeAvatar(w, summary)
		w.Raw(`<div class="details"><span class="username">@`)
		w.Text(summary.Tag())
		w.Raw(`</span><span class="user-status">`)
		if summary.StatusText != "" {
			w.Text(summary.StatusText)
		} else {
			w.Text(helpers.T(ctx, presenceKey(summary.Presence)))
		}
		w.Raw(`</span></div></div>`)

		w.Raw(`<div class="status-changer">`)
		w.Raw(`<form class="status"`)
		w.Attr("hx-post", navigation.Join(base, "status"))
		w.Attr("hx-target", "#"+AccountHeaderID)
		w.Raw(` hx-swap="outerHTML"><input type="text" name="text"`)
		w.Attr("maxlength", "128")
		w.Attr("placeholder", helpers.T(ctx, "app.settings.status.change"))
		w.Attr("value", summary.StatusText)
		w.Raw(`><button type="submit">`)
		w.Text(helpers.T(ctx, "app.settings.status.save"))
		w.Raw(`</button></form>`)

		if summary.StatusText != "" {
			w.Raw(`<button type="button" class="clear-status"`)
			w.Attr("hx-post", navigation.Join(base, "status/clear"))
			w.Attr("hx-target", "#"+AccountHeaderID)
			w.Attr("hx-swap", "outerHTML")
			w.Attr("title", helpers.T(ctx, "app.settings.status.clear"))
			w.Raw(`><span class="icon icon-trash" aria-hidden="true"></span></button>`)
		}

		w.Raw(`<select name="presence"`)
		w.Attr("hx-post", navigation.Join(base, "presence"))
		w.Attr("hx-target", "#"+AccountHeaderID)
		w.Raw(` hx-swap="outerHTML" hx-trigger="change">`)
		for _, p := range account.Presences() {
			w.Raw(`<option`)
			w.Attr("value", string(p))
			if p == summary.Presence {
				w.Raw(` selected`)
			}
			w.Raw(`>`)
			w.Text(helpers.T(ctx, presenceKey(p)))
			w.Raw(`</option>`)
		}
		w.Raw(`</select></div></header>`)
		return w.Err()
	})
}

func writeAvatar(w *helpers.Writer, summary account.Summary) {
	w.Raw(`<div class="avatar">`)
	if summary.AvatarURL != "" {
		w.Raw(`<img width="64" height="64" alt=""`)
		w.URLAttr("src", summary.AvatarURL)
		w.Raw(`>`)
	} else {
		initial := "?"
		if name := strings.TrimSpace(summary.Username); name != "" {
			initial = strings.ToUpper(string([]rune(name)[:1]))
		}
		w.Raw(`<span class="initial">`)
		w.Text(initial)
		w.Raw(`</span>`)
	}
	w.Raw(`<span`)
	w.Attr("class", helpers.PresenceClass(string(summary.Presence)))
	w.Raw(`></span></div>`)
}

func presenceKey(p account.Presence) string {
	if p == "" {
		p = account.PresenceOnline
	}
	return "app.settings.status.presence." + string(p)
}

// Logout renders the log out action as a plain form post so it works without htmx.
func Logout(base string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(out)
		w.Raw(`<form class="logout" method="post"`)
		w.Attr("action", navigation.Join(base, "logout"))
		w.Raw(`><input type="hidden"`)
		w.Attr("name", middleware.CSRFFormField)
		w.Attr("value", middleware.CSRFTokenFromContext(ctx))
		w.Raw(`><button type="submit" class="entry log-out"><span class="icon icon-log-out" aria-hidden="true"></span>`)
		w.Text(helpers.T(ctx, "app.settings.pages.logOut"))
		w.Raw(`</button></form>`)
		return w.Err()
	})
}

// ExperimentToggle is one per-session experiment switch. Locked experiments
// are on for every session and cannot be switched off.
type ExperimentToggle struct {
	Key     string
	Enabled bool
	Locked  bool
}

// Experiments renders a switch per toggle posting to the experiment route.
// htmx refreshes the page after the toggle so the catalog picks up the change.
func Experiments(base string, toggles []ExperimentToggle) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if len(toggles) == 0 {
			return nil
		}
		w := helpers.NewWriter(out)
		w.Raw(`<div class="experiments"><h2>`)
		w.Text(helpers.T(ctx, "app.settings.experiments.title"))
		w.Raw(`</h2>`)
		for _, t := range toggles {
			w.Raw(`<button type="button" class="experiment-toggle" role="switch" hx-swap="none"`)
			w.Attr("data-experiment", t.Key)
			w.Attr("aria-checked", strconv.FormatBool(t.Enabled || t.Locked))
			w.Attr("hx-post", navigation.Join(base, "experiments/"+t.Key))
			if t.Locked {
				w.Raw(` disabled`)
			}
			w.Raw(`>`)
			w.Text(helpers.T(ctx, "app.settings.experiments."+t.Key))
			w.Raw(`</button>`)
		}
		w.Raw(`</div>`)
		return w.Err()
	})
}
