// Package theme owns the colour-scheme preference: it resolves the stored mode per request,
// exposes it on the context and renders the toggle and bootstrap script the layout embeds.
package theme

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Mode is the user's colour-scheme preference.
type Mode string

const (
	Light  Mode = "light"
	Dark   Mode = "dark"
	System Mode = "system"
)

// ParseMode accepts the three known modes, case-insensitively.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	case System:
		return System, true
	default:
		return "", false
	}
}

// Next returns the mode the toggle switches to: light → dark → system → light.
func (m Mode) Next(enableSystem bool) Mode {
	switch m {
	case Light:
		return Dark
	case Dark:
		if enableSystem {
			return System
		}
		return Light
	default:
		return Light
	}
}

const (
	// ClientHintHeader is the user-agent client hint carrying the OS colour scheme.
	ClientHintHeader = "Sec-CH-Prefers-Color-Scheme"

	defaultCookieName = "theme"
	cookieMaxAge      = 365 * 24 * time.Hour
)

// Options are the construction flags of the theme provider.
type Options struct {
	// Attribute is the <html> attribute receiving the resolved appearance: "class" or a data-* name.
	Attribute string
	// DefaultMode applies when no preference is stored.
	DefaultMode Mode
	// EnableSystem lets "system" follow the operating-system preference.
	EnableSystem bool
	// DisableTransitionOnChange suppresses CSS transitions while the appearance switches.
	DisableTransitionOnChange bool
	// CookieName stores the preference; defaults to "theme".
	CookieName string
	// Secure marks the preference cookie Secure.
	Secure bool
}

// State is the theme value read by descendants of the provider.
type State struct {
	// Mode is the stored preference, or the default when none is stored.
	Mode Mode
	// Resolved is the concrete appearance (light or dark). Empty when the mode is system and
	// the browser has not reported its preference; the bootstrap script resolves it client-side.
	Resolved Mode
	// Stored reports whether Mode came from a saved preference.
	Stored bool
}

// Provider establishes the theme state for every request it wraps.
type Provider struct {
	opts Options
}

// Configure builds a Provider. Unknown or empty fields fall back to class attribute and system mode.
func Configure(opts Options) *Provider {
	if strings.TrimSpace(opts.Attribute) == "" {
		opts.Attribute = "class"
	}
	if _, ok := ParseMode(string(opts.DefaultMode)); !ok {
		opts.DefaultMode = System
	}
	if opts.DefaultMode == System && !opts.EnableSystem {
		opts.DefaultMode = Light
	}
	if strings.TrimSpace(opts.CookieName) == "" {
		opts.CookieName = defaultCookieName
	}
	return &Provider{opts: opts}
}

// Options returns the effective construction flags.
func (p *Provider) Options() Options {
	return p.opts
}

// Resolve derives the theme state from the request. It never fails: anything unreadable yields the default.
func (p *Provider) Resolve(r *http.Request) State {
	state := State{Mode: p.opts.DefaultMode}
	if c, err := r.Cookie(p.opts.CookieName); err == nil {
		if mode, ok := ParseMode(c.Value); ok && (mode != System || p.opts.EnableSystem) {
			state.Mode = mode
			state.Stored = true
		}
	}
	state.Resolved = p.resolve(state.Mode, r.Header.Get(ClientHintHeader))
	return state
}

func (p *Provider) resolve(mode Mode, hint string) Mode {
	if mode != System {
		return mode
	}
	switch strings.Trim(strings.ToLower(strings.TrimSpace(hint)), `"`) {
	case "dark":
		return Dark
	case "light":
		return Light
	default:
		return ""
	}
}

// Middleware resolves the theme and exposes it on the request context.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if p.opts.EnableSystem {
			h.Set("Accept-CH", ClientHintHeader)
			h.Add("Vary", ClientHintHeader)
		}
		h.Add("Vary", "Cookie")
		ctx := WithState(r.Context(), p.Resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RootAttribute returns the <html> attribute name and value that carry the resolved appearance.
// The value is empty while the appearance is still unresolved.
func (p *Provider) RootAttribute(state State) (string, string) {
	return p.opts.Attribute, string(state.Resolved)
}

func (p *Provider) cookie(mode Mode) *http.Cookie {
	return &http.Cookie{
		Name:     p.opts.CookieName,
		Value:    string(mode),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Secure:   p.opts.Secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}

type contextKey struct{}

// WithState attaches a theme state to ctx.
func WithState(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// FromContext returns the state placed by Middleware.
func FromContext(ctx context.Context) (State, bool) {
	if ctx == nil {
		return State{}, false
	}
	state, ok := ctx.Value(contextKey{}).(State)
	return state, ok
}

// Current returns the request's theme state, or the system default outside the provider.
func Current(ctx context.Context) State {
	if state, ok := FromContext(ctx); ok {
		return state
	}
	return State{Mode: System}
}
