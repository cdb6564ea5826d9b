package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/account"
	custommw "finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/httpserver/ui"
	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/navigation"
	"finitefield.org/chat-settings/internal/settings/observability"
	"finitefield.org/chat-settings/internal/settings/pages"
	"finitefield.org/chat-settings/internal/settings/panes"
	"finitefield.org/chat-settings/internal/settings/shell"
	"finitefield.org/chat-settings/public"
)

// Config holds runtime options for the settings HTTP server.
type Config struct {
	Address        string
	BasePath       string
	Environment    string
	Logger         *zap.Logger
	Authenticator  custommw.Authenticator
	SessionStore   custommw.SessionStore
	AccountService account.Service
	Locales        *i18n.Bundle

	LoginPath      string
	LogoutRedirect string

	CSRFCookieName   string
	CSRFCookieSecure bool
	CSRFHeaderName   string

	DefaultPage  string
	Descriptors  []pages.Descriptor
	Experiments  []string
	NativeHeader string

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
// Catalog misconfiguration is reported here rather than on first request.
func New(cfg Config) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionStore == nil {
		return nil, fmt.Errorf("httpserver: session store is required")
	}
	locales := cfg.Locales
	if locales == nil {
		bundle, err := i18n.Default("en", nil)
		if err != nil {
			return nil, err
		}
		locales = bundle
	}

	descriptors := cfg.Descriptors
	if descriptors == nil {
		descriptors = panes.DefaultCatalog()
	}
	defaultPage := firstNonEmpty(cfg.DefaultPage, panes.DefaultPage)
	basePath := navigation.NormalizeBase(cfg.BasePath)

	settingsShell, err := shell.New(shell.Config{
		BasePath:    basePath,
		DefaultPage: defaultPage,
		Descriptors: descriptors,
		Providers:   panes.Providers(),
	})
	if err != nil {
		return nil, fmt.Errorf("httpserver: settings shell: %w", err)
	}

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("httpserver: embed static: %w", err)
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.StripSlashes)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger())
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, 60*time.Second)))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/public/static/*", http.StripPrefix("/public/static/", http.FileServer(http.FS(staticContent))))

	csrfCfg := custommw.CSRFConfig{
		CookieName: cfg.CSRFCookieName,
		CookiePath: basePath,
		HeaderName: cfg.CSRFHeaderName,
		Secure:     cfg.CSRFCookieSecure,
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Shell:          settingsShell,
		AccountService: cfg.AccountService,
		Experiments:    cfg.Experiments,
		Toggles:        []string{panes.ExperimentPlugins},
		CSRFHeader:     cfg.CSRFHeaderName,
	})

	mountSettingsRoutes(router, basePath, routeOptions{
		Authenticator: cfg.Authenticator,
		SessionStore:  cfg.SessionStore,
		Locales:       locales,
		LoginPath:     firstNonEmpty(cfg.LoginPath, "/login"),
		CSRF:          csrfCfg,
		Environment:   cfg.Environment,
		NativeHeader:  cfg.NativeHeader,
		Logout:        newLogoutHandler(cfg.LoginPath, cfg.LogoutRedirect),
		UI:            handlers,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

type routeOptions struct {
	Authenticator custommw.Authenticator
	SessionStore  custommw.SessionStore
	Locales       *i18n.Bundle
	LoginPath     string
	CSRF          custommw.CSRFConfig
	Environment   string
	NativeHeader  string
	Logout        logoutHandler
	UI            *ui.Handlers
}

func mountSettingsRoutes(router chi.Router, base string, opts routeOptions) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.Session(opts.SessionStore))
		r.Use(custommw.HTMX())
		r.Use(custommw.RequestInfoMiddleware(base))
		r.Use(i18n.Middleware(opts.Locales))
		r.Use(custommw.Capabilities(opts.NativeHeader))
		r.Use(custommw.Environment(opts.Environment))
		r.Use(custommw.NoStore())
		r.Use(custommw.Auth(opts.Authenticator, opts.LoginPath))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get(base, opts.UI.Settings)
		r.Post(navigation.Join(base, "status"), opts.UI.StatusUpdate)
		r.Post(navigation.Join(base, "status/clear"), opts.UI.StatusClear)
		r.Post(navigation.Join(base, "presence"), opts.UI.PresenceUpdate)
		r.With(custommw.RequireHTMX()).Post(navigation.Join(base, "experiments/{key}"), opts.UI.ToggleExperiment)
		r.Method(http.MethodPost, navigation.Join(base, "logout"), opts.Logout)
		r.Get(navigation.Join(base, "*"), opts.UI.Settings)
	})
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
