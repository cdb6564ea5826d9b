package middleware

import (
	"context"
	"net/http"
	"strings"

	"finitefield.org/chat-settings/internal/settings/navigation"
)

type requestInfoKey struct{}

// RequestInfo is the settings location a request addresses.
type RequestInfo struct {
	BasePath string
	// Path is the request path without trailing slashes. chi's StripSlashes
	// only rewrites the routing path, not the URL.
	Path string
}

// RequestInfoMiddleware stores the mount point and the cleaned request path.
func RequestInfoMiddleware(basePath string) func(http.Handler) http.Handler {
	base := navigation.NormalizeBase(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimRight(r.URL.Path, "/")
			if path == "" {
				path = "/"
			}
			info := RequestInfo{BasePath: base, Path: path}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))
		})
	}
}

// RequestInfoFromContext returns the stored location. Outside the middleware
// the base is navigation.DefaultBasePath.
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	if !ok {
		return RequestInfo{BasePath: navigation.DefaultBasePath, Path: navigation.DefaultBasePath}
	}
	return info
}

// RequestPathFromContext returns the cleaned request path.
func RequestPathFromContext(ctx context.Context) string {
	return RequestInfoFromContext(ctx).Path
}

// BasePathFromContext returns the settings mount point.
func BasePathFromContext(ctx context.Context) string {
	return RequestInfoFromContext(ctx).BasePath
}
