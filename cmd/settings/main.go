package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/account"
	"finitefield.org/chat-settings/internal/settings/config"
	"finitefield.org/chat-settings/internal/settings/httpserver"
	"finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/i18n"
	"finitefield.org/chat-settings/internal/settings/observability"
	"finitefield.org/chat-settings/internal/settings/session"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("settings server failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := buildSessionManager(cfg, logger)
	if err != nil {
		return err
	}
	accounts, err := buildAccountService(cfg, logger)
	if err != nil {
		return err
	}
	locales, err := i18n.Default(cfg.Locale.Fallback, cfg.Locale.Supported)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	authenticator, err := buildAuthenticator(ctx, cfg, logger, initFirebase)
	if err != nil {
		return err
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		Environment:      cfg.Environment,
		Logger:           logger,
		Authenticator:    authenticator,
		SessionStore:     sessions,
		AccountService:   accounts,
		Locales:          locales,
		LoginPath:        cfg.Auth.LoginPath,
		LogoutRedirect:   cfg.Auth.LogoutRedirect,
		CSRFCookieName:   cfg.CSRF.CookieName,
		CSRFCookieSecure: cfg.Session.Secure,
		CSRFHeaderName:   cfg.CSRF.HeaderName,
		DefaultPage:      cfg.Settings.DefaultPage,
		Experiments:      cfg.Settings.Experiments,
		NativeHeader:     cfg.Settings.NativeHeader,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		RequestTimeout:   cfg.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("settings server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("basePath", cfg.Server.BasePath),
		zap.String("environment", cfg.Environment),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("settings server stopped")
	return nil
}

func buildSessionManager(cfg config.Config, logger *zap.Logger) (*session.Manager, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		// Development only; validation rejects an empty key elsewhere.
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("SETTINGS_SESSION_HASH_KEY not set; sessions will not survive a restart")
	}
	var blockKey []byte
	if cfg.Session.BlockKey != "" {
		blockKey = []byte(cfg.Session.BlockKey)
	}
	httpOnly := true
	return session.NewManager(session.Config{
		CookieName:     cfg.Session.CookieName,
		HashKey:        hashKey,
		BlockKey:       blockKey,
		CookiePath:     "/",
		CookieSecure:   cfg.Session.Secure,
		CookieHTTPOnly: &httpOnly,
		CookieSameSite: http.SameSiteLaxMode,
		IdleTimeout:    cfg.Session.IdleTimeout,
		Lifetime:       cfg.Session.Lifetime,
	})
}

func buildAccountService(cfg config.Config, logger *zap.Logger) (account.Service, error) {
	if cfg.Account.BackendURL == "" {
		logger.Warn("SETTINGS_ACCOUNT_API_URL not set; using in-memory account")
		return account.NewStaticService(nil), nil
	}
	svc, err := account.NewHTTPService(cfg.Account.BackendURL, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	logger.Info("account backend configured", zap.String("url", cfg.Account.BackendURL))
	return svc, nil
}

// firebaseInit builds the token verifier for a Firebase project.
type firebaseInit func(ctx context.Context, projectID string) (middleware.Authenticator, error)

func initFirebase(ctx context.Context, projectID string) (middleware.Authenticator, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("initialise Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise Firebase auth client: %w", err)
	}
	return middleware.NewFirebaseAuthenticator(client), nil
}

// buildAuthenticator only falls back to the passthrough authenticator in
// development. Elsewhere a missing or broken Firebase setup stops the server.
func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger, newFirebase firebaseInit) (middleware.Authenticator, error) {
	projectID := cfg.Auth.FirebaseProjectID
	if projectID == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required in %s", cfg.Environment)
		}
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
		return middleware.DefaultAuthenticator(), nil
	}

	auth, err := newFirebase(ctx, projectID)
	if err != nil {
		if !cfg.IsDevelopment() {
			return nil, err
		}
		logger.Error("Firebase unavailable; using passthrough authenticator", zap.Error(err))
		return middleware.DefaultAuthenticator(), nil
	}

	logger.Info("Firebase authenticator enabled", zap.String("project", projectID))
	return auth, nil
}
