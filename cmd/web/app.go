package main

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/config"
	"sukoonai.org/sukoon-web/internal/httpserver"
	"sukoonai.org/sukoon-web/internal/nav"
	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/pages"
	"sukoonai.org/sukoon-web/internal/seo"
	"sukoonai.org/sukoon-web/internal/session"
	"sukoonai.org/sukoon-web/internal/shell"
	"sukoonai.org/sukoon-web/internal/theme"
	"sukoonai.org/sukoon-web/public"
)

// app owns the collaborators handed to the router and anything that needs closing.
type app struct {
	deps  httpserver.Deps
	redis *redis.Client
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	store, err := a.sessionStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	authenticator, err := buildAuthenticator(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := shell.ThemeOptions()
	opts.CookieName = cfg.Theme.CookieName
	opts.Secure = cfg.Session.Secure
	tp := theme.Configure(opts)

	brand := shell.DefaultBrand()
	brand.ImageURL = cfg.Site.BrandImageURL

	a.deps = httpserver.Deps{
		Logger:        logger,
		Metrics:       observability.NewMetrics(),
		Store:         store,
		Authenticator: authenticator,
		Theme:         tp,
		Pages:         pages.Default(),
		Assets:        public.Assets(),
		Shell: shell.New(shell.Config{
			Brand:   brand,
			Site:    seo.Site{BaseURL: cfg.Site.BaseURL},
			Theme:   tp,
			Matcher: nav.MatcherByName(cfg.Nav.Match),
		}),
	}
	return a, nil
}

// Close releases the redis connection pool when one was opened.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

func (a *app) sessionStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		// config rejects this in prod; elsewhere sessions just won't survive a restart
		logger.Warn("SUKOON_WEB_SESSION_HASH_KEY not set; using an ephemeral key")
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, errors.New("generate session hash key")
		}
	}
	cookie := session.CookieConfig{
		Name:     cfg.Session.CookieName,
		HashKey:  hashKey,
		BlockKey: []byte(cfg.Session.BlockKey),
		Secure:   cfg.Session.Secure,
	}
	lifecycle := session.Lifecycle{
		IdleTimeout: cfg.Session.Idle,
		Lifetime:    cfg.Session.Lifetime,
	}

	if cfg.Session.Store != "redis" {
		store, err := session.NewCookieStore(cookie, lifecycle)
		if err != nil {
			return nil, fmt.Errorf("cookie session store: %w", err)
		}
		return store, nil
	}

	client, err := session.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	store, err := session.NewRedisStore(client, cookie, lifecycle)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis session store: %w", err)
	}
	logger.Info("redis session store enabled", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	return store, nil
}

func buildAuthenticator(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Authenticator, error) {
	projectID := cfg.Auth.FirebaseProjectID
	if projectID == "" {
		if cfg.IsProduction() {
			return nil, errors.New("FIREBASE_PROJECT_ID is required in production")
		}
		logger.Warn("FIREBASE_PROJECT_ID not set; accepting debug:<uid> sign-in tokens")
		return session.DevAuthenticator{}, nil
	}

	fb, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := fb.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	logger.Info("firebase authenticator enabled", zap.String("project", projectID))
	return session.NewFirebaseAuthenticator(client), nil
}
