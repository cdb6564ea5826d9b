package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/chat-settings/internal/settings/observability"
	appsession "finitefield.org/chat-settings/internal/settings/session"
)

type sessionKey struct{}

// SessionStore loads and persists sessions. *session.Manager implements it.
type SessionStore interface {
	Load(*http.Request) (*appsession.Session, error)
	Save(http.ResponseWriter, *appsession.Session) error
}

// Session puts the request's session on the context and writes it back
// before the response headers are sent.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("middleware: session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := observability.FromContext(r.Context())
			sess, err := store.Load(r)
			switch {
			case errors.Is(err, appsession.ErrExpired):
				logger.Debug("session expired; issued a new one")
			case err != nil:
				logger.Warn("session load failed", zap.Error(err))
			}
			if sess == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			sw := &sessionWriter{ResponseWriter: w, persist: func() {
				if err := store.Save(w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
			sw.commit()
		})
	}
}

// sessionWriter saves the session once, right before the status line, so the
// cookie makes it into the headers.
type sessionWriter struct {
	http.ResponseWriter
	persist   func()
	committed bool
}

func (w *sessionWriter) commit() {
	if !w.committed {
		w.committed = true
		w.persist()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(p []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(p)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// SessionFromContext returns the request's session.
func SessionFromContext(ctx context.Context) (*appsession.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*appsession.Session)
	return sess, ok && sess != nil
}
