package session

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/observability"
)

// SignInPath is where anonymous visitors are sent to establish an identity.
const SignInPath = "/sign-in"

// SignOutPath accepts the sign-out form.
const SignOutPath = "/sign-out"

// Handlers exposes the sign-in and sign-out endpoints of the session collaborator.
type Handlers struct {
	auth Authenticator
}

// NewHandlers wires the handler set. A nil authenticator falls back to DevAuthenticator.
func NewHandlers(auth Authenticator) *Handlers {
	if auth == nil {
		auth = DevAuthenticator{}
	}
	return &Handlers{auth: auth}
}

// SignIn verifies the posted token and binds the resulting user to the session.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	sess, ok := FromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	next := SafeRedirect(r.PostForm.Get("next"), "/")
	user, err := h.auth.Authenticate(r.Context(), r.PostForm.Get("token"))
	if err != nil || user == nil {
		reason := ReasonOf(err)
		logger.Info("sign-in rejected", zap.String("reason", reason), zap.Error(err))
		q := url.Values{"error": {reason}}
		if next != "/" {
			q.Set("next", next)
		}
		redirect(w, r, SignInPath+"?"+q.Encode())
		return
	}

	sess.RegenerateID()
	sess.SetUser(user)
	observability.SetUserID(r.Context(), user.UID)
	logger.Info("signed in", zap.String("user_id", user.UID))
	redirect(w, r, next)
}

// SignOut destroys the session.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := FromContext(r.Context()); ok {
		sess.Destroy()
	}
	redirect(w, r, "/")
}

// SafeRedirect accepts only same-origin absolute paths.
func SafeRedirect(target, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
