package httpserver

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	custommw "finitefield.org/chat-settings/internal/settings/httpserver/middleware"
	"finitefield.org/chat-settings/internal/settings/observability"
)

// authCookies hold ID tokens set by the login page.
var authCookies = []string{"Authorization", "__session", "idToken"}

// logoutHandler ends the session and sends the browser to target.
type logoutHandler struct {
	target string
}

func newLogoutHandler(loginPath, target string) logoutHandler {
	if target == "" {
		target = withQuery(firstNonEmpty(loginPath, "/login"), "status", "logged_out")
	}
	return logoutHandler{target: target}
}

func (h logoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}
	for _, name := range authCookies {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if user, ok := custommw.UserFromContext(r.Context()); ok {
		observability.FromContext(r.Context()).Info("signed out", zap.String("uid", user.UID))
	}

	if custommw.IsHTMXRequest(r.Context()) {
		custommw.HXRedirect(w, h.target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, h.target, http.StatusSeeOther)
}

// withQuery sets key=value on the query of path, leaving path untouched when
// it does not parse.
func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
