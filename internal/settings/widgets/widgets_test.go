package widgets

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/chat-settings/internal/settings/account"
	"finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/navigation"
)

func render(t *testing.T, ctx context.Context, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func englishContext(t *testing.T) context.Context {
	t.Helper()
	bundle, err := i18n.Default("en", nil)
	require.NoError(t, err)
	return i18n.WithLanguage(context.Background(), bundle, "en")
}

func TestAccountHeaderWithStatus(t *testing.T) {
	t.Parallel()

	doc := render(t, englishContext(t), AccountHeader(account.Summary{
		Username:      "kit",
		Discriminator: "0042",
		AvatarURL:     "https://cdn.example/a.png",
		Presence:      account.PresenceBusy,
		StatusText:    "<heads down>",
	}, "/settings"))

	require.Equal(t, "@kit#0042", doc.Find(".username").Text())
	require.Equal(t, "<heads down>", doc.Find(".user-status").Text())
	src, _ := doc.Find(".avatar img").Attr("src")
	require.Equal(t, "https://cdn.example/a.png", src)
	require.True(t, doc.Find(".presence").HasClass("presence-busy"))

	post, _ := doc.Find("form.status").Attr("hx-post")
	require.Equal(t, "/settings/status", post)
	clear := doc.Find("button.clear-status")
	require.Equal(t, 1, clear.Length())
	clearPost, _ := clear.Attr("hx-post")
	require.Equal(t, "/settings/status/clear", clearPost)

	selected := doc.Find("select[name=presence] option[selected]")
	require.Equal(t, "Do Not Disturb", selected.Text())
	require.Equal(t, 5, doc.Find("select[name=presence] option").Length())
}

func TestAccountHeaderWithoutStatus(t *testing.T) {
	t.Parallel()

	doc := render(t, englishContext(t), AccountHeader(account.Summary{Username: "kit"}, "/settings"))

	require.Equal(t, "Online", doc.Find(".user-status").Text())
	require.Equal(t, 0, doc.Find("button.clear-status").Length())
	require.Equal(t, "K", doc.Find(".avatar .initial").Text())
	placeholder, _ := doc.Find("input[name=text]").Attr("placeholder")
	require.Equal(t, "Change your status...", placeholder)
}

func TestLogoutCarriesCSRFToken(t *testing.T) {
	t.Parallel()

	var doc *goquery.Document
	handler := middleware.CSRF(middleware.CSRFConfig{CookieName: "csrf"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bundle, err := i18n.Default("en", nil)
		require.NoError(t, err)
		doc = render(t, i18n.WithLanguage(r.Context(), bundle, "ja"), Logout("/settings"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	req.AddCookie(&http.Cookie{Name: "csrf", Value: "tok"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	action, _ := doc.Find("form.logout").Attr("action")
	require.Equal(t, "/settings/logout", action)
	token, _ := doc.Find("input[name=csrf_token]").Attr("value")
	require.Equal(t, "tok", token)
	require.Equal(t, "ログアウト", doc.Find("button").Text())
}

func TestWidgetsUnderRootBase(t *testing.T) {
	t.Parallel()

	ctx := englishContext(t)
	base := navigation.NormalizeBase("/")

	header := render(t, ctx, AccountHeader(account.Summary{Username: "kit", StatusText: "away"}, base))
	post, _ := header.Find("form.status").Attr("hx-post")
	require.Equal(t, "/status", post)
	clearPost, _ := header.Find("button.clear-status").Attr("hx-post")
	require.Equal(t, "/status/clear", clearPost)
	presencePost, _ := header.Find("select[name=presence]").Attr("hx-post")
	require.Equal(t, "/presence", presencePost)

	logout := render(t, ctx, Logout(base))
	action, _ := logout.Find("form.logout").Attr("action")
	require.Equal(t, "/logout", action)
}

func TestExperimentsRendersSwitches(t *testing.T) {
	t.Parallel()

	doc := render(t, englishContext(t), Experiments("/settings", []ExperimentToggle{
		{Key: "plugins", Enabled: true},
		{Key: "threads", Locked: true},
	}))

	require.Equal(t, "Experiments", doc.Find(".experiments h2").Text())
	plugins := doc.Find(`button[data-experiment="plugins"]`)
	require.Equal(t, "Plugins", plugins.Text())
	require.Equal(t, "true", plugins.AttrOr("aria-checked", ""))
	require.Equal(t, "/settings/experiments/plugins", plugins.AttrOr("hx-post", ""))
	_, disabled := plugins.Attr("disabled")
	require.False(t, disabled)

	threads := doc.Find(`button[data-experiment="threads"]`)
	require.Equal(t, "true", threads.AttrOr("aria-checked", ""))
	_, disabled = threads.Attr("disabled")
	require.True(t, disabled)

	root := render(t, englishContext(t), Experiments(navigation.NormalizeBase("/"), []ExperimentToggle{{Key: "plugins"}}))
	require.Equal(t, "/experiments/plugins", root.Find("button").AttrOr("hx-post", ""))
	require.Equal(t, "false", root.Find("button").AttrOr("aria-checked", ""))

	empty := render(t, englishContext(t), Experiments("/settings", nil))
	require.Equal(t, 0, empty.Find(".experiments").Length())
}
