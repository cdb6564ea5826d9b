package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultAddress         = ":8080"
	defaultBasePath        = "/settings"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultRequestTimeout  = 60 * time.Second
	defaultEnvironment     = "Development"
	defaultSessionCookie   = "settings_session"
	defaultSessionIdle     = 30 * time.Minute
	defaultSessionLifetime = 12 * time.Hour
	defaultCSRFCookie      = "settings_csrf"
	defaultCSRFHeader      = "X-CSRF-Token"
	defaultLoginPath       = "/login"
	defaultLogoutRedirect  = "/login?status=logged_out"
	defaultPage            = "account"
	defaultNativeHeader    = "X-Native-Client"
	defaultLocale          = "en"
)

// Config captures runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Session     SessionConfig
	CSRF        CSRFConfig
	Auth        AuthConfig
	Account     AccountConfig
	Settings    SettingsConfig
	Locale      LocaleConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address        string
	BasePath       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	CookieName  string
	HashKey     string
	BlockKey    string
	Secure      bool
	IdleTimeout time.Duration
	Lifetime    time.Duration
}

// CSRFConfig configures double-submit protection.
type CSRFConfig struct {
	CookieName string
	HeaderName string
}

// AuthConfig configures token verification and the login/logout targets.
type AuthConfig struct {
	LoginPath         string
	LogoutRedirect    string
	FirebaseProjectID string
}

// AccountConfig points at the chat backend serving the current user.
type AccountConfig struct {
	BackendURL string
}

// SettingsConfig controls the page catalog.
type SettingsConfig struct {
	DefaultPage string
	// Experiments are enabled for every session in addition to per-session toggles.
	Experiments []string
	// NativeHeader marks requests from the desktop client.
	NativeHeader string
}

// LocaleConfig lists UI languages.
type LocaleConfig struct {
	Fallback  string
	Supported []string
}

// IsDevelopment reports whether the configured environment is a development one.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "development", "dev", "local":
		return true
	}
	return false
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. Empty disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values which take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles configuration from defaults, .env, the process environment and
// explicit overrides, then validates it.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Environment: stringWithDefault(lookup, "SETTINGS_ENVIRONMENT", defaultEnvironment),
		Server: ServerConfig{
			Address:        stringWithDefault(lookup, "SETTINGS_HTTP_ADDR", defaultAddress),
			BasePath:       stringWithDefault(lookup, "SETTINGS_BASE_PATH", defaultBasePath),
			ReadTimeout:    durationWithDefault(lookup, "SETTINGS_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "SETTINGS_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "SETTINGS_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "SETTINGS_HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Session: SessionConfig{
			CookieName:  stringWithDefault(lookup, "SETTINGS_SESSION_COOKIE", defaultSessionCookie),
			HashKey:     stringWithDefault(lookup, "SETTINGS_SESSION_HASH_KEY", ""),
			BlockKey:    stringWithDefault(lookup, "SETTINGS_SESSION_BLOCK_KEY", ""),
			Secure:      boolWithDefault(lookup, "SETTINGS_SESSION_SECURE", false),
			IdleTimeout: durationWithDefault(lookup, "SETTINGS_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
			Lifetime:    durationWithDefault(lookup, "SETTINGS_SESSION_LIFETIME", defaultSessionLifetime),
		},
		CSRF: CSRFConfig{
			CookieName: stringWithDefault(lookup, "SETTINGS_CSRF_COOKIE", defaultCSRFCookie),
			HeaderName: stringWithDefault(lookup, "SETTINGS_CSRF_HEADER", defaultCSRFHeader),
		},
		Auth: AuthConfig{
			LoginPath:         stringWithDefault(lookup, "SETTINGS_LOGIN_PATH", defaultLoginPath),
			LogoutRedirect:    stringWithDefault(lookup, "SETTINGS_LOGOUT_REDIRECT", defaultLogoutRedirect),
			FirebaseProjectID: stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
		},
		Account: AccountConfig{
			BackendURL: stringWithDefault(lookup, "SETTINGS_ACCOUNT_API_URL", ""),
		},
		Settings: SettingsConfig{
			DefaultPage:  stringWithDefault(lookup, "SETTINGS_DEFAULT_PAGE", defaultPage),
			Experiments:  csvWithDefault(lookup, "SETTINGS_EXPERIMENTS"),
			NativeHeader: stringWithDefault(lookup, "SETTINGS_NATIVE_HEADER", defaultNativeHeader),
		},
		Locale: LocaleConfig{
			Fallback:  stringWithDefault(lookup, "SETTINGS_LOCALE_FALLBACK", defaultLocale),
			Supported: csvWithDefault(lookup, "SETTINGS_LOCALES"),
		},
	}
	if len(cfg.Locale.Supported) == 0 {
		cfg.Locale.Supported = []string{"en", "ja"}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Address) == "" {
		missing = append(missing, "Server.Address")
	}
	if strings.TrimSpace(cfg.Settings.DefaultPage) == "" {
		missing = append(missing, "Settings.DefaultPage")
	}
	if !cfg.IsDevelopment() && cfg.Session.HashKey == "" {
		missing = append(missing, "Session.HashKey")
	}
	if n := len(cfg.Session.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Session.IdleTimeout <= 0 {
		missing = append(missing, "Session.IdleTimeout")
	}
	if cfg.Server.RequestTimeout <= 0 {
		missing = append(missing, "Server.RequestTimeout")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
