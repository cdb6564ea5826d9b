package ui

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/templates/helpers"
)

const htmxScript = "https://unpkg.com/htmx.org@1.9.12"

// LayoutData carries per-request values for the full document.
type LayoutData struct {
	// Location is the canonical path written back by the navigation controller.
	Location   string
	CSRFHeader string
	CSRFToken  string
	// Environment is shown as a badge outside production.
	Environment string
	Production  bool
}

// Layout wraps body in the HTML document.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		headers, err := json.Marshal(map[string]string{data.CSRFHeader: data.CSRFToken})
		if err != nil {
			return err
		}
		lang := i18n.Language(ctx)
		if lang == "" {
			lang = "en"
		}

		w := helpers.NewWriter(out)
		w.Raw(`<!DOCTYPE html><html`)
		w.Attr("lang", lang)
		w.Raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.Text(helpers.T(ctx, "app.settings.title"))
		w.Raw(`</title><link rel="stylesheet" href="/public/static/app.css">`)
		w.Raw(`<script defer`)
		w.Attr("src", htmxScript)
		w.Raw(`></script><script defer src="/public/static/settings.js"></script></head><body`)
		w.Attr("data-location", data.Location)
		w.Attr("hx-headers", string(headers))
		w.Raw(`>`)
		w.Render(ctx, body)
		if !data.Production {
			w.Raw(`<span class="env-badge">`)
			w.Text(data.Environment)
			w.Raw(`</span>`)
		}
		w.Raw(`</body></html>`)
		return w.Err()
	})
}
