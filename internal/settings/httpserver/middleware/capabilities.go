package middleware

import (
	"context"
	"net/http"
	"strings"
)

type capabilitiesContextKey struct{}

// CapabilityNative is set when the request comes from the desktop shell.
const CapabilityNative = "native"

// Capabilities records what the requesting client can do. A non-empty value in
// nativeHeader marks the desktop client.
func Capabilities(nativeHeader string) func(http.Handler) http.Handler {
	header := strings.TrimSpace(nativeHeader)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caps := map[string]bool{}
			if header != "" {
				if strings.TrimSpace(r.Header.Get(header)) != "" {
					caps[CapabilityNative] = true
				}
				w.Header().Add("Vary", header)
			}
			ctx := context.WithValue(r.Context(), capabilitiesContextKey{}, caps)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CapabilitiesFromContext returns a copy of the client capabilities.
func CapabilitiesFromContext(ctx context.Context) map[string]bool {
	caps, _ := ctx.Value(capabilitiesContextKey{}).(map[string]bool)
	out := make(map[string]bool, len(caps))
	for k, v := range caps {
		out[k] = v
	}
	return out
}
