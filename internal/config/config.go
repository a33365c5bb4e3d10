package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultEnvironment     = "local"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSessionCookie   = "SUKOON_SESSION"
	defaultSessionIdle     = 30 * time.Minute
	defaultSessionLifetime = 12 * time.Hour
	defaultThemeCookie     = "theme"
	defaultNavMatch        = "prefix"
	defaultLogLevel        = "info"
	defaultRedisAddr       = "localhost:6379"
	defaultBrandImageURL   = "https://hebbkx1anhila5yf.public.blob.vercel-storage.com/sukoonAI%20logo-HcziUhbd1eIKlUo474fj9tI9blzLeT.png"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Auth    AuthConfig
	Theme   ThemeConfig
	Nav     NavConfig
	Redis   RedisConfig
	Site    SiteConfig
	Log     LogConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string `validate:"required,numeric"`
	Environment     string `validate:"oneof=local dev staging prod"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SessionConfig controls the session collaborator.
type SessionConfig struct {
	Store      string `validate:"oneof=cookie redis"`
	CookieName string `validate:"required"`
	HashKey    string `validate:"omitempty,min=32"`
	BlockKey   string `validate:"omitempty,len=16|len=24|len=32"`
	Secure     bool
	Idle       time.Duration
	Lifetime   time.Duration
}

// AuthConfig selects the identity verifier.
type AuthConfig struct {
	FirebaseProjectID string
}

// ThemeConfig carries the theme collaborator persistence settings.
type ThemeConfig struct {
	CookieName string `validate:"required"`
}

// NavConfig picks the active-link matching rule.
type NavConfig struct {
	Match string `validate:"oneof=prefix exact"`
}

// RedisConfig configures the optional server-side session store.
type RedisConfig struct {
	Addr     string `validate:"required_if=Enabled true"`
	Password string
	DB       int `validate:"gte=0"`
	Enabled  bool
}

// SiteConfig holds static asset references surfaced by the shell.
type SiteConfig struct {
	BaseURL       string `validate:"omitempty,url"`
	BrandImageURL string `validate:"required,url"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "prod"
}

// Address returns the listen address derived from the port.
func (c Config) Address() string {
	return ":" + c.Server.Port
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the dotenv file consulted before the process environment. Empty disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies explicit values that take precedence over every other source.
func WithEnvMap(env map[string]string) Option {
	return func(o *loaderOptions) {
		if o.envMap == nil {
			o.envMap = map[string]string{}
		}
		for k, v := range env {
			o.envMap[k] = v
		}
	}
}

// WithoutSystemEnv ignores the process environment, mainly for tests.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// Load resolves configuration from (lowest to highest precedence) the dotenv file, the process
// environment and an explicit map, applies defaults and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	env, err := collectEnv(options)
	if err != nil {
		return Config{}, err
	}
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	lookup := func(key, fallback string) string {
		if v := strings.TrimSpace(env[key]); v != "" {
			return v
		}
		return fallback
	}

	var problems []string
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := lookup(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			problems = append(problems, key)
			return fallback
		}
		return d
	}
	boolean := func(key string, fallback bool) bool {
		raw := lookup(key, "")
		if raw == "" {
			return fallback
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, key)
			return fallback
		}
		return b
	}
	integer := func(key string, fallback int) int {
		raw := lookup(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, key)
			return fallback
		}
		return n
	}

	// Cloud Run injects PORT; the prefixed variable wins when both are set.
	port := lookup("SUKOON_WEB_PORT", lookup("PORT", defaultPort))
	environment := strings.ToLower(lookup("SUKOON_WEB_ENV", defaultEnvironment))

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			Environment:     environment,
			ReadTimeout:     duration("SUKOON_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    duration("SUKOON_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     duration("SUKOON_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: duration("SUKOON_WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Session: SessionConfig{
			Store:      strings.ToLower(lookup("SUKOON_WEB_SESSION_STORE", "cookie")),
			CookieName: lookup("SUKOON_WEB_SESSION_COOKIE", defaultSessionCookie),
			HashKey:    lookup("SUKOON_WEB_SESSION_HASH_KEY", ""),
			BlockKey:   lookup("SUKOON_WEB_SESSION_BLOCK_KEY", ""),
			Secure:     boolean("SUKOON_WEB_SESSION_SECURE", environment == "prod"),
			Idle:       duration("SUKOON_WEB_SESSION_IDLE", defaultSessionIdle),
			Lifetime:   duration("SUKOON_WEB_SESSION_LIFETIME", defaultSessionLifetime),
		},
		Auth: AuthConfig{
			FirebaseProjectID: lookup("FIREBASE_PROJECT_ID", ""),
		},
		Theme: ThemeConfig{
			CookieName: lookup("SUKOON_WEB_THEME_COOKIE", defaultThemeCookie),
		},
		Nav: NavConfig{
			Match: strings.ToLower(lookup("SUKOON_WEB_NAV_MATCH", defaultNavMatch)),
		},
		Redis: RedisConfig{
			Addr:     lookup("SUKOON_WEB_REDIS_ADDR", defaultRedisAddr),
			Password: lookup("SUKOON_WEB_REDIS_PASSWORD", ""),
			DB:       integer("SUKOON_WEB_REDIS_DB", 0),
		},
		Site: SiteConfig{
			BaseURL:       lookup("SUKOON_WEB_BASE_URL", ""),
			BrandImageURL: lookup("SUKOON_WEB_BRAND_IMAGE_URL", defaultBrandImageURL),
		},
		Log: LogConfig{
			Level: lookup("LOG_LEVEL", defaultLogLevel),
		},
	}
	cfg.Redis.Enabled = cfg.Session.Store == "redis"

	if err := validatorInstance().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Config{}, fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, fe.Namespace())
		}
	}
	if cfg.IsProduction() && cfg.Session.HashKey == "" {
		problems = append(problems, "Config.Session.HashKey")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return Config{}, &ValidationError{fields: problems}
	}
	return cfg, nil
}

func collectEnv(opts loaderOptions) (map[string]string, error) {
	env := map[string]string{}
	if path := strings.TrimSpace(opts.envFile); path != "" {
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			for k, v := range values {
				env[k] = v
			}
		case errors.Is(err, os.ErrNotExist):
			// optional
		default:
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
	}
	if opts.useSystemEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}
	}
	for k, v := range opts.envMap {
		env[k] = v
	}
	return env, nil
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validateInst
}
