package middleware

import (
	"net/http"

	"sukoonai.org/sukoon-web/internal/nav"
)

// RequestInfoMiddleware annotates the context with the current request path. It is the location source
// the shell reads to compute the active navigation item.
func RequestInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := RequestInfo{
			Path:   nav.Normalize(r.URL.Path),
			Method: r.Method,
		}
		next.ServeHTTP(w, r.WithContext(WithRequestInfo(r.Context(), info)))
	})
}
