// Package httpserver assembles the router, the provider chain and the HTTP server.
package httpserver

import (
	"io"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/config"
	"sukoonai.org/sukoon-web/internal/handlers"
	mw "sukoonai.org/sukoon-web/internal/middleware"
	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/pages"
	"sukoonai.org/sukoon-web/internal/session"
	"sukoonai.org/sukoon-web/internal/shell"
	"sukoonai.org/sukoon-web/internal/theme"
)

const requestTimeout = 30 * time.Second

// Deps are the collaborators the router mounts. Logger, Metrics, Pages and Assets are optional.
type Deps struct {
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Store         session.Store
	Authenticator session.Authenticator
	Shell         *shell.Shell
	Theme         *theme.Provider
	Pages         *pages.Library
	Assets        fs.FS
}

// New constructs the HTTP server with the middleware stack, provider chain and routes.
func New(cfg config.Config, deps Deps) *http.Server {
	return &http.Server{
		Addr:              cfg.Address(),
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// NewRouter builds the chi router. Every page route renders inside Session(Theme(content)).
func NewRouter(deps Deps) chi.Router {
	if deps.Store == nil || deps.Shell == nil || deps.Theme == nil {
		panic("httpserver: session store, shell and theme are required")
	}
	library := deps.Pages
	if library == nil {
		library = pages.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// RealIP trusts X-Forwarded-For; only deploy behind a proxy that overwrites it.
	r.Use(chimw.RealIP)
	r.Use(observability.Trace)
	r.Use(observability.InjectLogger(deps.Logger))
	r.Use(observability.RequestLogger)
	r.Use(observability.Recovery)
	r.Use(metrics.Middleware)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if deps.Assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets", mw.AssetsWithCache(deps.Assets)))
		r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/assets/favicon.svg", http.StatusMovedPermanently)
		})
	}

	providers := shell.Providers{
		Session: session.Provider(deps.Store, deps.Authenticator),
		Theme:   deps.Theme.Middleware,
	}
	pageHandlers := handlers.NewPages(deps.Shell, library)
	auth := session.NewHandlers(deps.Authenticator)

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(mw.RequestInfoMiddleware)
		r.Use(providers.Wrap)
		r.Use(mw.CSRF)

		r.Post(theme.SetPath, deps.Theme.SetHandler)
		r.Get(session.SignInPath, handlers.SignInPage(deps.Shell))
		r.Post(session.SignInPath, auth.SignIn)
		r.Post(session.SignOutPath, auth.SignOut)

		r.Get("/", pageHandlers.Page)
		r.Get("/*", pageHandlers.Page)
		r.NotFound(pageHandlers.NotFound)
	})
	return r
}

// Route is a registered method and pattern.
type Route struct {
	Method  string
	Pattern string
}

// Routes lists the routes registered on r, sorted by pattern then method.
func Routes(r chi.Routes) ([]Route, error) {
	var out []Route
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{Method: method, Pattern: route})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}
