// Package shell renders the persistent page frame: sticky header with brand, feature navigation,
// urgent-support action, theme toggle and profile widget; the main content slot; and the footer.
package shell

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/middleware"
	"sukoonai.org/sukoon-web/internal/nav"
	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/profile"
	"sukoonai.org/sukoon-web/internal/seo"
	"sukoonai.org/sukoon-web/internal/theme"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var layout = template.Must(template.New("_root").ParseFS(templateFS, "templates/*.tmpl"))

// Footer is the fixed disclaimer rendered on every page.
var Footer = []string{
	"SukoonAI is an AI assistant for mental wellness support. Not a replacement for professional help.",
	"If you're experiencing a crisis, please contact a mental health professional or crisis hotline.",
}

// ThemeOptions are the construction flags the shell passes to the theme collaborator.
func ThemeOptions() theme.Options {
	return theme.Options{
		Attribute:                 "class",
		DefaultMode:               theme.System,
		EnableSystem:              true,
		DisableTransitionOnChange: true,
	}
}

// Providers is the ordered provider chain. Session is always the outer layer and Theme the inner one,
// so theme state is readable anywhere inside the session subtree and content runs only after both
// have placed their context values.
type Providers struct {
	Session func(http.Handler) http.Handler
	Theme   func(http.Handler) http.Handler
}

// Wrap nests next inside the chain: Session(Theme(next)).
func (p Providers) Wrap(next http.Handler) http.Handler {
	if p.Session == nil || p.Theme == nil {
		panic("shell: session and theme providers are required")
	}
	return p.Session(p.Theme(next))
}

// Metadata is the static document metadata.
type Metadata struct {
	Title          string
	Description    string
	Favicon        string
	Lang           string
	Preconnect     []string
	FontStylesheet string
}

// DefaultMetadata returns the application's document metadata.
func DefaultMetadata() Metadata {
	return Metadata{
		Title:          "SukoonAI - Mental Health Assistant",
		Description:    "Your AI companion for mental wellness support",
		Favicon:        "/favicon.ico",
		Lang:           "en",
		Preconnect:     []string{"https://openrouter.ai", "https://api.dicebear.com"},
		FontStylesheet: "https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600;700&subset=latin&display=swap",
	}
}

// Brand is the header brand mark. The image is externally hosted.
type Brand struct {
	Name     string
	ImageURL string
	Alt      string
	Width    int
	Height   int
}

// DefaultBrandImageURL is the hosted SukoonAI logo.
const DefaultBrandImageURL = "https://hebbkx1anhila5yf.public.blob.vercel-storage.com/sukoonAI%20logo-HcziUhbd1eIKlUo474fj9tI9blzLeT.png"

// DefaultBrand returns the SukoonAI brand mark.
func DefaultBrand() Brand {
	return Brand{
		Name:     "SukoonAI",
		ImageURL: DefaultBrandImageURL,
		Alt:      "SukoonAI Logo",
		Width:    32,
		Height:   32,
	}
}

// LocationFunc yields the current navigation location for a request.
type LocationFunc func(ctx context.Context) string

// Config assembles a Shell. Zero fields take defaults.
type Config struct {
	Metadata Metadata
	Brand    Brand
	Site     seo.Site
	Theme    *theme.Provider
	Matcher  nav.Matcher
	Location LocationFunc
	Profile  templ.Component
	Assets   string
}

// Shell renders full HTML documents around page content. It holds no mutable state.
type Shell struct {
	meta     Metadata
	brand    Brand
	site     seo.Site
	theme    *theme.Provider
	matcher  nav.Matcher
	location LocationFunc
	profile  templ.Component
	assets   string
}

// New builds a Shell from cfg.
func New(cfg Config) *Shell {
	s := &Shell{
		meta:     cfg.Metadata,
		brand:    cfg.Brand,
		site:     cfg.Site,
		theme:    cfg.Theme,
		matcher:  cfg.Matcher,
		location: cfg.Location,
		profile:  cfg.Profile,
		assets:   strings.TrimRight(cfg.Assets, "/"),
	}
	if s.meta.Title == "" {
		s.meta = DefaultMetadata()
	}
	if s.brand.ImageURL == "" {
		name := s.brand.Name
		s.brand = DefaultBrand()
		if name != "" {
			s.brand.Name = name
		}
	}
	if s.site.Name == "" {
		s.site.Name = s.brand.Name
	}
	if s.site.Title == "" {
		s.site.Title = s.meta.Title
	}
	if s.site.Description == "" {
		s.site.Description = s.meta.Description
	}
	if s.site.LogoURL == "" {
		s.site.LogoURL = s.brand.ImageURL
	}
	if s.theme == nil {
		s.theme = theme.Configure(ThemeOptions())
	}
	if s.matcher == nil {
		s.matcher = nav.PrefixMatch
	}
	if s.location == nil {
		s.location = middleware.RequestPathFromContext
	}
	if s.profile == nil {
		s.profile = profile.Widget()
	}
	if s.assets == "" {
		s.assets = "/assets"
	}
	return s
}

// Page carries per-page head overrides.
type Page struct {
	Title       string
	Description string
	NoIndex     bool
}

type layoutView struct {
	Lang           string
	RootAttrs      template.HTMLAttr
	Meta           seo.Meta
	Favicon        string
	Preconnect     []string
	FontStylesheet string
	Assets         string
	CSRF           string
	ThemeScript    template.HTML
	Brand          Brand
	Nav            []nav.RenderedItem
	Urgent         nav.Item
	Toggle         template.HTML
	Profile        template.HTML
	Content        template.HTML
	ContentOK      bool
	Footer         []string
}

// Render writes the full document around content. Collaborator failures degrade to placeholders;
// the returned error reports only a failure to write the response.
func (s *Shell) Render(ctx context.Context, w io.Writer, content templ.Component, page Page) error {
	ctx, span := observability.Tracer().Start(ctx, "shell.Render")
	defer span.End()
	logger := observability.FromContext(ctx)

	path := nav.Normalize(s.location(ctx))
	state := theme.Current(ctx)
	span.SetAttributes(
		attribute.String("shell.path", path),
		attribute.String("shell.theme", string(state.Mode)),
	)

	view := layoutView{
		Lang:           s.meta.Lang,
		RootAttrs:      s.rootAttrs(state),
		Meta:           seo.Build(s.site, seo.Page{Path: path, Title: page.Title, Description: page.Description, NoIndex: page.NoIndex}),
		Favicon:        s.meta.Favicon,
		Preconnect:     s.meta.Preconnect,
		FontStylesheet: s.meta.FontStylesheet,
		Assets:         s.assets,
		CSRF:           middleware.CSRFTokenFromContext(ctx),
		ThemeScript:    s.widget(ctx, logger, "theme-script", s.theme.Script()),
		Brand:          s.brand,
		Nav:            nav.Build(path, s.matcher),
		Urgent:         nav.UrgentSupport,
		Toggle:         s.widget(ctx, logger, "theme-toggle", s.theme.Toggle()),
		Profile:        s.widget(ctx, logger, "profile", s.profile),
		Footer:         Footer,
	}
	view.Content, view.ContentOK = s.content(ctx, logger, content)

	var buf bytes.Buffer
	if err := layout.ExecuteTemplate(&buf, "base", view); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "layout")
		return fmt.Errorf("shell: execute layout: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write")
		return fmt.Errorf("shell: write response: %w", err)
	}
	return nil
}

// Handler serves content inside the shell with the given status code.
func (s *Shell) Handler(status int, content templ.Component, page Page) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Serve(w, r, status, content, page)
	})
}

// Serve renders content inside the shell onto an HTTP response.
func (s *Shell) Serve(w http.ResponseWriter, r *http.Request, status int, content templ.Component, page Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == 0 {
		status = http.StatusOK
	}
	var buf bytes.Buffer
	if err := s.Render(r.Context(), &buf, content, page); err != nil {
		observability.FromContext(r.Context()).Error("shell render failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		observability.FromContext(r.Context()).Debug("shell write aborted", zap.Error(err))
	}
}

func (s *Shell) widget(ctx context.Context, logger *zap.Logger, name string, c templ.Component) template.HTML {
	if c == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		logger.Warn("shell widget render failed", zap.String("widget", name), zap.Error(err))
		return template.HTML(`<span data-widget-unavailable="` + html.EscapeString(name) + `"></span>`)
	}
	return template.HTML(buf.String())
}

func (s *Shell) content(ctx context.Context, logger *zap.Logger, c templ.Component) (template.HTML, bool) {
	if c == nil {
		return "", true
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		logger.Error("page content render failed", zap.Error(err))
		return "", false
	}
	return template.HTML(buf.String()), true
}

var attrName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func (s *Shell) rootAttrs(state theme.State) template.HTMLAttr {
	name, value := s.theme.RootAttribute(state)
	if !attrName.MatchString(name) {
		name = "class"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `data-theme-mode="%s"`, html.EscapeString(string(state.Mode)))
	if value != "" {
		fmt.Fprintf(&b, ` %s="%s" style="color-scheme: %s"`, name, html.EscapeString(value), html.EscapeString(value))
	}
	return template.HTMLAttr(b.String())
}
