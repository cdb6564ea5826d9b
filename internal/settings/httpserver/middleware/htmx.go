package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxKey struct{}

// HTMXRequest is the htmx state of a request as sent in its HX-* headers.
type HTMXRequest struct {
	Enabled    bool
	Target     string
	CurrentURL string
	// HistoryRestore is set when htmx missed its history cache and needs the
	// whole document.
	HistoryRestore bool
}

// Partial reports whether the response should be a fragment.
func (h HTMXRequest) Partial() bool {
	return h.Enabled && !h.HistoryRestore
}

// HTMX reads the HX-* request headers into the context.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := HTMXRequest{
				Enabled:        headerTrue(r, "HX-Request"),
				Target:         strings.TrimPrefix(r.Header.Get("HX-Target"), "#"),
				CurrentURL:     r.Header.Get("HX-Current-URL"),
				HistoryRestore: headerTrue(r, "HX-History-Restore-Request"),
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxKey{}, req)))
		})
	}
}

// HTMXFromContext returns the htmx state, or the zero value outside the middleware.
func HTMXFromContext(ctx context.Context) HTMXRequest {
	req, _ := ctx.Value(htmxKey{}).(HTMXRequest)
	return req
}

// IsHTMXRequest reports whether htmx issued the request.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXFromContext(ctx).Enabled
}

// WantsFragment reports whether the handler should answer with a fragment.
func WantsFragment(ctx context.Context) bool {
	return HTMXFromContext(ctx).Partial()
}

// HXRedirect asks htmx to load target as a full page.
func HXRedirect(w http.ResponseWriter, target string) {
	w.Header().Set("HX-Redirect", target)
}

// HXRefresh asks htmx to reload the current page.
func HXRefresh(w http.ResponseWriter) {
	w.Header().Set("HX-Refresh", "true")
}

// RequireHTMX answers 404 to requests htmx did not issue.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			w.Header().Add("Vary", "HX-Request")
			next.ServeHTTP(w, r)
		})
	}
}

func headerTrue(r *http.Request, name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(name)), "true")
}
