package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/session"
)

const (
	// CSRFHeader carries the token on htmx and fetch requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFField carries the token on plain form posts.
	CSRFField = "_csrf"
)

// CSRF verifies that modifying requests echo the token bound to the caller's session.
// It must run inside session.Provider. The token is exposed to templates via CSRFTokenFromContext.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusInternalServerError, "session unavailable")
			return
		}
		token := sess.CSRFToken()

		// Skip the check for programmatic clients sending Authorization Bearer (non-browser)
		if !isSafeMethod(r.Method) && !hasBearer(r) {
			submitted := r.Header.Get(CSRFHeader)
			if submitted == "" {
				submitted = r.PostFormValue(CSRFField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				observability.FromContext(r.Context()).Warn("csrf token mismatch",
					zap.String("path", r.URL.Path),
					zap.Bool("token_present", submitted != ""),
				)
				writeError(w, r, http.StatusForbidden, "invalid CSRF token")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithCSRFToken(r.Context(), token)))
	})
}

func hasBearer(r *http.Request) bool {
	auth := strings.ToLower(strings.TrimSpace(r.Header.Get("Authorization")))
	return strings.HasPrefix(auth, "bearer ")
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
