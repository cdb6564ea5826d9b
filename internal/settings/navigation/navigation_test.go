package navigation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/chat-settings/internal/settings/pages"
)

func testController(t *testing.T, ctx pages.Context) *Controller {
	t.Helper()

	catalog, err := pages.Build([]pages.Descriptor{
		{ID: "account", Category: "user"},
		{ID: "appearance", Category: "client"},
		{ID: "audio"},
		{ID: "plugins", Hidden: pages.UnlessExperiment("plugins")},
	}, ctx)
	require.NoError(t, err)
	return NewController("/settings", "account", catalog)
}

func TestCurrentSelection(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{})

	tests := []struct {
		path string
		want string
	}{
		{path: "/settings/appearance", want: "appearance"},
		{path: "/settings/appearance/", want: "appearance"},
		{path: "/settings/audio?tab=input", want: "audio"},
		{path: "/settings/doesnotexist", want: "account"},
		{path: "/settings", want: "account"},
		{path: "/settings/", want: "account"},
		{path: "/settings/Appearance", want: "account"},
		{path: "/settings/plugins", want: "account"},
		{path: "", want: "account"},
		{path: "/settings/appearance/audio", want: "account"},
		{path: "/other/audio", want: "account"},
		{path: "/settingsaudio", want: "account"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, ctrl.CurrentSelection(tc.path), "path %q", tc.path)
	}
}

func TestCurrentSelectionIdSharingBaseSegment(t *testing.T) {
	t.Parallel()

	catalog, err := pages.Build([]pages.Descriptor{
		{ID: "account"},
		{ID: "settings"},
	}, pages.Context{})
	require.NoError(t, err)
	ctrl := NewController("/settings", "account", catalog)

	tests := []struct {
		path string
		want string
	}{
		{path: "/settings", want: "account"},
		{path: "/settings/", want: "account"},
		{path: "/settings/settings", want: "settings"},
		{path: "/x/y/settings", want: "account"},
		{path: "settings", want: "account"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, ctrl.CurrentSelection(tc.path), "path %q", tc.path)
	}

	loc := NewMemoryLocation("/settings/settings")
	ctrl.NavigateTo(loc, "")
	require.Equal(t, "account", ctrl.CurrentSelection(loc.Path()))
}

func TestCurrentSelectionRootBase(t *testing.T) {
	t.Parallel()

	catalog, err := pages.Build([]pages.Descriptor{{ID: "account"}, {ID: "audio"}}, pages.Context{})
	require.NoError(t, err)
	ctrl := NewController("/", "account", catalog)

	require.Equal(t, "audio", ctrl.CurrentSelection("/audio"))
	require.Equal(t, "account", ctrl.CurrentSelection("/"))
	require.Equal(t, "account", ctrl.CurrentSelection("/account/audio"))
}

func TestCurrentSelectionHiddenBecomesVisible(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{Experiments: map[string]bool{"plugins": true}})
	require.Equal(t, "plugins", ctrl.CurrentSelection("/settings/plugins"))
}

func TestNavigateToRoundTrip(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{})
	loc := NewMemoryLocation("/settings/appearance")

	ctrl.NavigateTo(loc, "audio")
	require.Equal(t, "/settings/audio", loc.Path())
	require.Equal(t, "audio", ctrl.CurrentSelection(loc.Path()))

	ctrl.NavigateTo(loc, "")
	require.Equal(t, "/settings", loc.Path())
	require.Equal(t, "account", ctrl.CurrentSelection(loc.Path()))

	require.Len(t, loc.History(), 1, "navigation must replace, not push")
}

func TestNavigateZeroMemoryLocation(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{})
	var loc MemoryLocation
	require.Equal(t, "account", ctrl.CurrentSelection(loc.Path()))

	ctrl.NavigateTo(&loc, "audio")
	require.Equal(t, "/settings/audio", loc.Path())
	ctrl.NavigateTo(&loc, "appearance")
	require.Equal(t, []string{"/settings/appearance"}, loc.History())
}

func TestNavigateLastWriteWins(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{})
	loc := NewMemoryLocation("/settings")
	for _, id := range []string{"audio", "appearance", "account", "audio"} {
		ctrl.NavigateTo(loc, id)
	}
	require.Equal(t, "audio", ctrl.CurrentSelection(loc.Path()))
}

func TestResponseLocationSetsReplaceHeader(t *testing.T) {
	t.Parallel()

	ctrl := testController(t, pages.Context{})
	req := httptest.NewRequest(http.MethodGet, "/settings/appearance", nil)
	rr := httptest.NewRecorder()
	loc := NewResponseLocation(rr, req)

	require.Equal(t, "/settings/appearance", loc.Path())
	ctrl.NavigateTo(loc, "audio")
	require.Equal(t, "/settings/audio", rr.Header().Get(ReplaceURLHeader))
	require.Equal(t, "/settings/audio", loc.Path())
}

func TestHrefAndBase(t *testing.T) {
	t.Parallel()

	catalog, err := pages.Build(nil, pages.Context{})
	require.NoError(t, err)

	root := NewController("/", "account", catalog)
	require.Equal(t, "/audio", root.Href("audio"))
	require.Equal(t, "/", root.Href(""))

	nested := NewController("app//settings/", "account", catalog)
	require.Equal(t, "/app/settings", nested.BasePath())
	require.Equal(t, "/app/settings/audio", nested.Href("audio"))
	require.Equal(t, DefaultBasePath, NormalizeBase("  "))
}

func TestJoin(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/logout", Join(NormalizeBase("/"), "logout"))
	require.Equal(t, "/status/clear", Join("/", "/status/clear"))
	require.Equal(t, "/settings/logout", Join("/settings", "logout"))
	require.Equal(t, "/app/settings/presence", Join(NormalizeBase("app/settings/"), "presence"))
}
