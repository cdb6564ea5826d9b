package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Bundle holds flattened translations per language.
type Bundle struct {
	dict      map[string]map[string]string
	fallback  string
	supported []string
	matcher   language.Matcher
}

// Default loads the locales shipped with the binary.
func Default(fallback string, supported []string) (*Bundle, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: locales: %w", err)
	}
	return Load(sub, fallback, supported)
}

// Load reads <lang>.yaml files from fsys. Missing files are tolerated for every
// language except the fallback.
func Load(fsys fs.FS, fallback string, supported []string) (*Bundle, error) {
	if fallback == "" {
		fallback = "en"
	}
	if len(supported) == 0 {
		supported = []string{"en", "ja"}
	}

	// The matcher treats the first tag as default, so the fallback leads.
	ordered := []string{fallback}
	for _, l := range supported {
		if l != fallback {
			ordered = append(ordered, l)
		}
	}

	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		raw, err := fs.ReadFile(fsys, path.Join(".", l+".yaml"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("i18n: load locale %s: %w", l, err)
			}
			continue
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", l, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		b.dict[l] = flat
		b.supported = append(b.supported, l)
		tags = append(tags, language.Make(l))
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		case string:
			out[full] = v
		case nil:
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}

// Supported lists loaded languages in sorted order.
func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.supported...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// T returns the translation for key in lang, falling back to the fallback
// language and finally the key itself.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Resolve chooses the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	if strings.TrimSpace(acceptLang) == "" {
		return b.fallback
	}
	_, idx := language.MatchStrings(b.matcher, acceptLang)
	if idx < 0 || idx >= len(b.supported) {
		return b.fallback
	}
	return b.supported[idx]
}

type contextKey struct{}

type localized struct {
	bundle *Bundle
	lang   string
}

// WithLanguage stores the bundle and resolved language on ctx.
func WithLanguage(ctx context.Context, bundle *Bundle, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, localized{bundle: bundle, lang: lang})
}

// Language returns the language attached to ctx, or empty.
func Language(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(localized); ok {
		return v.lang
	}
	return ""
}

// T translates key using the bundle on ctx. Without a bundle the key is returned.
func T(ctx context.Context, key string) string {
	v, ok := ctx.Value(contextKey{}).(localized)
	if !ok || v.bundle == nil {
		return key
	}
	return v.bundle.T(v.lang, key)
}

// Middleware resolves the request language and varies responses on it.
func Middleware(bundle *Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Language")
			lang := bundle.Resolve(r.Header.Get("Accept-Language"))
			ctx := WithLanguage(r.Context(), bundle, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
