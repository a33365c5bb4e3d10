// Package pages serves the static page content rendered inside the shell's main slot.
// Pages are markdown files with YAML front matter, embedded in the binary.
package pages

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

//go:embed content/*.md
var embedded embed.FS

// ErrNotFound is returned when no page exists for a slug.
var ErrNotFound = errors.New("pages: not found")

const (
	// HomeSlug is the page served at "/".
	HomeSlug = "home"
	// NotFoundSlug is rendered for unknown paths.
	NotFoundSlug = "not-found"

	defaultCacheTTL = 5 * time.Minute
)

// Page is a rendered content page.
type Page struct {
	Slug        string
	Title       string
	Summary     string
	Description string
	Body        template.HTML
	UpdatedAt   time.Time
	Banner      *Banner
}

// Banner models an optional callout displayed above the body.
type Banner struct {
	Variant  string
	Title    string
	Message  string
	LinkText string
	LinkURL  string
}

type frontMatter struct {
	Title       string             `yaml:"title"`
	Summary     string             `yaml:"summary"`
	Description string             `yaml:"description"`
	UpdatedAt   string             `yaml:"updated_at"`
	Banner      *frontMatterBanner `yaml:"banner"`
}

type frontMatterBanner struct {
	Variant  string `yaml:"variant"`
	Title    string `yaml:"title"`
	Message  string `yaml:"message"`
	LinkText string `yaml:"link_text"`
	LinkURL  string `yaml:"link_url"`
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Library loads, renders and caches pages from a file system.
type Library struct {
	fsys   fs.FS
	md     goldmark.Markdown
	policy *bluemonday.Policy
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option customises a Library.
type Option func(*Library)

// WithCacheTTL overrides how long rendered pages are kept.
func WithCacheTTL(d time.Duration) Option {
	return func(l *Library) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Library) {
		if now != nil {
			l.now = now
		}
	}
}

// New builds a Library reading "<slug>.md" files from the root of fsys.
func New(fsys fs.FS, opts ...Option) *Library {
	l := &Library{
		fsys: fsys,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: newPolicy(),
		ttl:    defaultCacheTTL,
		now:    time.Now,
		cache:  map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Default returns a Library over the embedded content.
func Default(opts ...Option) *Library {
	sub, err := fs.Sub(embedded, "content")
	if err != nil {
		panic(fmt.Sprintf("pages: embedded content: %v", err))
	}
	return New(sub, opts...)
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span", "div")
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4")
	policy.AllowURLSchemes("mailto", "http", "https", "tel")
	policy.RequireNoFollowOnFullyQualifiedLinks(true)
	return policy
}

// SlugForPath maps a request path to a page slug: "/" is the home page, "/urgent-support" is
// "urgent-support". Nested or unsafe paths yield an empty slug.
func SlugForPath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return HomeSlug
	}
	return sanitizeSlug(p)
}

// ForPath is Get(SlugForPath(path)).
func (l *Library) ForPath(ctx context.Context, p string) (Page, error) {
	return l.Get(ctx, SlugForPath(p))
}

// Get returns the rendered page for slug, or ErrNotFound.
func (l *Library) Get(ctx context.Context, slug string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	if page, ok := l.cached(slug); ok {
		return page, nil
	}
	page, err := l.load(slug)
	if err != nil {
		return Page{}, err
	}
	l.store(slug, page)
	return clonePage(page), nil
}

// Slugs lists every page available in the library.
func (l *Library) Slugs() ([]string, error) {
	matches, err := fs.Glob(l.fsys, "*.md")
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		slugs = append(slugs, strings.TrimSuffix(m, ".md"))
	}
	return slugs, nil
}

func (l *Library) load(slug string) (Page, error) {
	file := slug + ".md"
	data, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("pages: read %s: %w", file, err)
	}

	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("pages: parse front matter %s: %w", file, err)
		}
	}

	var buf bytes.Buffer
	if err := l.md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("pages: render %s: %w", file, err)
	}

	page := Page{
		Slug:        slug,
		Title:       strings.TrimSpace(front.Title),
		Summary:     strings.TrimSpace(front.Summary),
		Description: strings.TrimSpace(front.Description),
		Body:        template.HTML(l.policy.SanitizeBytes(buf.Bytes())),
		UpdatedAt:   parseDate(front.UpdatedAt),
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if page.Description == "" {
		page.Description = page.Summary
	}
	if front.Banner != nil {
		page.Banner = &Banner{
			Variant:  strings.TrimSpace(front.Banner.Variant),
			Title:    strings.TrimSpace(front.Banner.Title),
			Message:  strings.TrimSpace(front.Banner.Message),
			LinkText: strings.TrimSpace(front.Banner.LinkText),
			LinkURL:  strings.TrimSpace(front.Banner.LinkURL),
		}
	}
	return page, nil
}

func (l *Library) cached(slug string) (Page, bool) {
	l.mu.RLock()
	entry, ok := l.cache[slug]
	l.mu.RUnlock()
	if !ok || l.now().After(entry.expires) {
		return Page{}, false
	}
	return clonePage(entry.page), true
}

func (l *Library) store(slug string, page Page) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[slug] = cacheEntry{page: clonePage(page), expires: l.now().Add(l.ttl)}
}

func clonePage(src Page) Page {
	cp := src
	if src.Banner != nil {
		b := *src.Banner
		cp.Banner = &b
	}
	return cp
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	if path.Base(slug) != slug {
		return ""
	}
	return slug
}
