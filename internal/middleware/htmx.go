package middleware

import (
	"net/http"
	"strings"
)

// HTMX marks requests coming from htmx so handlers/middlewares can adapt responses
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := HTMXInfo{
			IsHTMX:     strings.EqualFold(r.Header.Get("HX-Request"), "true"),
			IsBoosted:  strings.EqualFold(r.Header.Get("HX-Boosted"), "true"),
			CurrentURL: r.Header.Get("HX-Current-URL"),
			Target:     r.Header.Get("HX-Target"),
		}
		if info.IsHTMX {
			w.Header().Add("Vary", "HX-Request")
		}
		next.ServeHTTP(w, r.WithContext(WithHTMX(r.Context(), info)))
	})
}
