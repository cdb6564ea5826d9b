package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/chat-settings/internal/settings/pages"
	"finitefield.org/chat-settings/internal/settings/templates/helpers"
)

func testConfig() Config {
	return Config{
		BasePath:    "/settings",
		DefaultPage: "account",
		Descriptors: []pages.Descriptor{
			{ID: "account", Title: "Account", Category: "User", Icon: "user"},
			{ID: "appearance", Title: "Appearance", Category: "Client"},
			{ID: "audio", Title: "Audio"},
			{ID: "plugins", Title: "Plugins", Hidden: pages.UnlessExperiment("plugins")},
		},
		Providers: map[string]templ.Component{
			"account":    helpers.Text("account pane"),
			"appearance": helpers.Text("appearance pane"),
			"audio":      helpers.Text("audio pane"),
			"plugins":    helpers.Text("plugins pane"),
		},
		Header: helpers.Text("header slot"),
		Footer: helpers.Text("footer slot"),
	}
}

func renderView(t *testing.T, v *View) (*goquery.Document, string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, v.Component().Render(context.Background(), &buf))
	html := buf.String()
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc, html
}

func TestNewValidatesConfiguration(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	delete(cfg.Providers, "plugins")
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrMissingProvider, "hidden pages still need a provider")

	cfg = testConfig()
	cfg.DefaultPage = "missing"
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrUnknownDefault)

	cfg = testConfig()
	cfg.Descriptors = append(cfg.Descriptors, pages.Descriptor{ID: "audio"})
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = New(testConfig())
	require.NoError(t, err)
}

func TestComputeSelection(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	require.NoError(t, err)

	tests := []struct {
		path     string
		selected string
		matched  bool
	}{
		{path: "/settings/appearance", selected: "appearance", matched: true},
		{path: "/settings", selected: "account", matched: false},
		{path: "/settings/doesnotexist", selected: "account", matched: false},
		{path: "/settings/plugins", selected: "account", matched: false},
	}
	for _, tc := range tests {
		v, err := s.Compute(pages.Context{}, tc.path)
		require.NoError(t, err)
		require.Equal(t, tc.selected, v.Selected, tc.path)
		require.Equal(t, tc.matched, v.Matched, tc.path)
	}

	v, err := s.Compute(pages.Context{Experiments: map[string]bool{"plugins": true}}, "/settings/plugins")
	require.NoError(t, err)
	require.Equal(t, "plugins", v.Selected)
}

func TestComponentRendersInOrder(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	require.NoError(t, err)
	v, err := s.Compute(pages.Context{}, "/settings/audio")
	require.NoError(t, err)

	doc, html := renderView(t, v)

	header := strings.Index(html, "header slot")
	nav := strings.Index(html, `<nav`)
	content := strings.Index(html, "audio pane")
	divider := strings.Index(html, `<hr class="divider">`)
	footer := strings.Index(html, "footer slot")
	require.True(t, header < nav && nav < content && content < divider && divider < footer, html)

	require.Equal(t, 2, doc.Find(".catalog .category").Length())
	require.Equal(t, []string{"User", "Client"}, doc.Find(".catalog h3").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	}))
	require.Equal(t, 0, doc.Find(`a[data-page="plugins"]`).Length())

	active := doc.Find(`a[aria-current="page"]`)
	require.Equal(t, 1, active.Length())
	require.Equal(t, "Audio", active.Text())
	require.True(t, active.HasClass("active"))
	href, _ := active.Attr("href")
	require.Equal(t, "/settings/audio", href)
	target, _ := active.Attr("hx-target")
	require.Equal(t, "#"+ContainerID, target)

	require.Equal(t, 1, doc.Find(`a[data-page="account"] .icon-user`).Length())
}

func TestComponentWithoutSlots(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Header = nil
	cfg.Footer = nil
	s, err := New(cfg)
	require.NoError(t, err)
	v, err := s.Compute(pages.Context{}, "/settings/nowhere")
	require.NoError(t, err)

	doc, _ := renderView(t, v)
	require.Equal(t, 0, doc.Find("hr.divider").Length())
	require.Equal(t, 0, doc.Find(".shell-header").Length())
	require.Equal(t, "account pane", doc.Find("main.content").Text())

	doc, _ = renderView(t, v.WithSlots(helpers.Text("late header"), nil))
	require.Equal(t, "late header", doc.Find(".shell-header").Text())
}

func TestComputeIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := New(testConfig())
	require.NoError(t, err)

	a, err := s.Compute(pages.Context{}, "/settings/appearance")
	require.NoError(t, err)
	b, err := s.Compute(pages.Context{}, "/settings/appearance")
	require.NoError(t, err)

	_, htmlA := renderView(t, a)
	_, htmlB := renderView(t, b)
	require.Equal(t, htmlA, htmlB)
}
