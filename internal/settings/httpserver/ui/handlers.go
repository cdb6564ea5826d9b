package ui

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/account"
	custommw "finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/navigation"
	"finitefield.org/chat-settings/internal/settings/observability"
	"finitefield.org/chat-settings/internal/settings/pages"
	"finitefield.org/chat-settings/internal/settings/shell"
	"finitefield.org/chat-settings/internal/settings/widgets"
)

var experimentKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Dependencies collects what the settings handlers need.
type Dependencies struct {
	Shell          *shell.Shell
	AccountService account.Service
	// Experiments are on for every session.
	Experiments []string
	// Toggles are the experiments a session may switch itself.
	Toggles    []string
	CSRFHeader string
}

// Handlers exposes HTTP handlers for the settings screen and its fragments.
type Handlers struct {
	shell       *shell.Shell
	account     account.Service
	experiments map[string]bool
	toggles     []string
	csrfHeader  string
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	if deps.Shell == nil {
		panic("ui: shell is required")
	}
	service := deps.AccountService
	if service == nil {
		service = account.NewStaticService(nil)
	}
	experiments := make(map[string]bool, len(deps.Experiments))
	for _, key := range deps.Experiments {
		if key = strings.TrimSpace(key); key != "" {
			experiments[key] = true
		}
	}
	var toggles []string
	for _, key := range deps.Toggles {
		if key = strings.TrimSpace(key); experimentKeyPattern.MatchString(key) {
			toggles = append(toggles, key)
		}
	}
	csrfHeader := deps.CSRFHeader
	if csrfHeader == "" {
		csrfHeader = "X-CSRF-Token"
	}
	return &Handlers{
		shell:       deps.Shell,
		account:     service,
		experiments: experiments,
		toggles:     toggles,
		csrfHeader:  csrfHeader,
	}
}

// Settings renders the shell for the base path and every page path. htmx
// requests get the shell fragment; others get the full document.
func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	view, err := h.shell.Compute(h.visibility(r), custommw.RequestPathFromContext(r.Context()))
	if err != nil {
		logger.Error("settings: compute view failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	loc := navigation.NewResponseLocation(w, r)
	if view.Matched {
		view.Controller.NavigateTo(loc, view.Selected)
	} else {
		view.Controller.NavigateTo(loc, "")
	}

	base := h.shell.BasePath()
	footer := templ.Join(widgets.Experiments(base, h.experimentToggles(r)), widgets.Logout(base))
	view = view.WithSlots(h.accountHeader(r), footer)

	w.Header().Add("Vary", "HX-Request")
	if custommw.WantsFragment(r.Context()) {
		templ.Handler(view.Component()).ServeHTTP(w, r)
		return
	}

	page := Layout(LayoutData{
		Location:    loc.Path(),
		CSRFHeader:  h.csrfHeader,
		CSRFToken:   custommw.CSRFTokenFromContext(r.Context()),
		Environment: custommw.EnvironmentFromContext(r.Context()),
		Production:  custommw.IsProduction(r.Context()),
	}, view.Component())
	templ.Handler(page).ServeHTTP(w, r)
}

// StatusUpdate replaces the custom status text and re-renders the account header.
func (h *Handlers) StatusUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, i18n.T(r.Context(), "app.settings.errors.form"), http.StatusBadRequest)
		return
	}
	summary, err := h.account.SetStatusText(r.Context(), user.Token, r.PostFormValue("text"))
	h.renderHeader(w, r, summary, err)
}

// StatusClear removes the custom status text.
func (h *Handlers) StatusClear(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	summary, err := h.account.ClearStatusText(r.Context(), user.Token)
	h.renderHeader(w, r, summary, err)
}

// PresenceUpdate changes the presence shown next to the avatar.
func (h *Handlers) PresenceUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, i18n.T(r.Context(), "app.settings.errors.form"), http.StatusBadRequest)
		return
	}
	presence, err := account.ParsePresence(r.PostFormValue("presence"))
	if err != nil {
		http.Error(w, i18n.T(r.Context(), "app.settings.errors.presence"), http.StatusBadRequest)
		return
	}
	summary, err := h.account.SetPresence(r.Context(), user.Token, presence)
	h.renderHeader(w, r, summary, err)
}

// ToggleExperiment flips a per-session experiment and asks htmx to reload so
// the catalog is rebuilt with the new visibility.
func (h *Handlers) ToggleExperiment(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !experimentKeyPattern.MatchString(key) {
		http.NotFound(w, r)
		return
	}
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	enabled := sess.ToggleExperiment(key)
	observability.FromContext(r.Context()).Info("experiment toggled",
		zap.String("experiment", key),
		zap.Bool("enabled", enabled),
	)
	custommw.HXRefresh(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) visibility(r *http.Request) pages.Context {
	experiments := make(map[string]bool, len(h.experiments))
	for key := range h.experiments {
		experiments[key] = true
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		for key, enabled := range sess.Experiments() {
			if enabled {
				experiments[key] = true
			}
		}
	}
	return pages.Context{
		Experiments:  experiments,
		Capabilities: custommw.CapabilitiesFromContext(r.Context()),
	}
}

// experimentToggles reports the session state of each toggleable experiment.
func (h *Handlers) experimentToggles(r *http.Request) []widgets.ExperimentToggle {
	if len(h.toggles) == 0 {
		return nil
	}
	var flags map[string]bool
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		flags = sess.Experiments()
	}
	out := make([]widgets.ExperimentToggle, 0, len(h.toggles))
	for _, key := range h.toggles {
		out = append(out, widgets.ExperimentToggle{
			Key:     key,
			Enabled: flags[key],
			Locked:  h.experiments[key],
		})
	}
	return out
}

// accountHeader fetches the summary for the header slot. The page still
// renders without it when the backend is unavailable.
func (h *Handlers) accountHeader(r *http.Request) templ.Component {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		return nil
	}
	summary, err := h.account.Summary(r.Context(), user.Token)
	if err != nil {
		observability.FromContext(r.Context()).Warn("settings: account summary unavailable", zap.Error(err))
		return nil
	}
	return widgets.AccountHeader(*summary, h.shell.BasePath())
}

func (h *Handlers) renderHeader(w http.ResponseWriter, r *http.Request, summary *account.Summary, err error) {
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, account.ErrUnauthorized) {
			status = http.StatusUnauthorized
		}
		observability.FromContext(r.Context()).Error("settings: account update failed", zap.Error(err))
		http.Error(w, i18n.T(r.Context(), "app.settings.errors.backend"), status)
		return
	}
	templ.Handler(widgets.AccountHeader(*summary, h.shell.BasePath())).ServeHTTP(w, r)
}

func requireUser(w http.ResponseWriter, r *http.Request) (*custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}
