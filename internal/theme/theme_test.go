package theme

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"sukoonai.org/sukoon-web/internal/middleware"
)

func defaultProvider() *Provider {
	return Configure(Options{
		Attribute:                 "class",
		DefaultMode:               System,
		EnableSystem:              true,
		DisableTransitionOnChange: true,
	})
}

func TestConfigureDefaults(t *testing.T) {
	t.Parallel()

	p := Configure(Options{})
	require.Equal(t, "class", p.Options().Attribute)
	require.Equal(t, Light, p.Options().DefaultMode, "system default requires EnableSystem")
	require.Equal(t, "theme", p.Options().CookieName)

	p = Configure(Options{DefaultMode: "sepia", EnableSystem: true})
	require.Equal(t, System, p.Options().DefaultMode)
}

func TestResolveWithoutPreferenceIsSystem(t *testing.T) {
	t.Parallel()

	state := defaultProvider().Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, System, state.Mode)
	require.False(t, state.Stored)
	require.Empty(t, state.Resolved)
}

func TestResolveUsesClientHintForSystem(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClientHintHeader, "dark")
	state := defaultProvider().Resolve(req)
	require.Equal(t, System, state.Mode)
	require.Equal(t, Dark, state.Resolved)
}

func TestResolveStoredPreference(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "Dark"})
	req.Header.Set(ClientHintHeader, "light")
	state := defaultProvider().Resolve(req)
	require.Equal(t, State{Mode: Dark, Resolved: Dark, Stored: true}, state)
}

func TestResolveUnknownCookieFallsBackToDefault(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "solarized"})
	state := defaultProvider().Resolve(req)
	require.Equal(t, System, state.Mode)
	require.False(t, state.Stored)
}

func TestMiddlewareExposesState(t *testing.T) {
	t.Parallel()

	var got State
	var ok bool
	handler := defaultProvider().Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "light"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, ok)
	require.Equal(t, Light, got.Mode)
	require.Equal(t, ClientHintHeader, rec.Header().Get("Accept-CH"))
	require.Contains(t, rec.Header().Values("Vary"), ClientHintHeader)
}

func TestCurrentOutsideProvider(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)
	require.Equal(t, System, Current(context.Background()).Mode)
}

func TestModeNextCycles(t *testing.T) {
	t.Parallel()

	require.Equal(t, Dark, Light.Next(true))
	require.Equal(t, System, Dark.Next(true))
	require.Equal(t, Light, System.Next(true))
	require.Equal(t, Light, Dark.Next(false))
}

func renderToggle(t *testing.T, p *Provider, ctx context.Context) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Toggle().Render(ctx, &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestToggleRendersNextMode(t *testing.T) {
	t.Parallel()

	p := defaultProvider()
	ctx := WithState(context.Background(), State{Mode: Dark, Resolved: Dark})
	ctx = middleware.WithCSRFToken(ctx, "tok-1")
	ctx = middleware.WithRequestInfo(ctx, middleware.RequestInfo{Path: "/mood"})

	doc := renderToggle(t, p, ctx)
	form := doc.Find("form[data-theme-toggle]")
	require.Equal(t, 1, form.Length())
	require.Equal(t, "dark", form.AttrOr("data-theme-mode", ""))
	require.Equal(t, SetPath, form.AttrOr("hx-post", ""))
	require.Equal(t, "system", doc.Find(`input[name="theme"]`).AttrOr("value", ""))
	require.Equal(t, "tok-1", doc.Find(`input[name="_csrf"]`).AttrOr("value", ""))
	require.Equal(t, "/mood", doc.Find(`input[name="next"]`).AttrOr("value", ""))
}

func TestScriptEmbedsOptions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, defaultProvider().Script().Render(context.Background(), &buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<script data-theme-bootstrap>"))
	require.Contains(t, out, `attr="class",sys=true,noTx=true`)
	require.Contains(t, out, `"sukoon:theme"`)
	require.True(t, strings.HasSuffix(out, "</script>"))
}

func postTheme(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, SetPath, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSetHandlerRedirectsBack(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	defaultProvider().SetHandler(rec, postTheme(url.Values{"theme": {"dark"}, "next": {"/journal"}}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/journal", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "theme", cookies[0].Name)
	require.Equal(t, "dark", cookies[0].Value)
}

func TestSetHandlerRejectsUnsafeNext(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	defaultProvider().SetHandler(rec, postTheme(url.Values{"theme": {"light"}, "next": {"//evil.example"}}))
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSetHandlerHTMXReturnsToggle(t *testing.T) {
	t.Parallel()

	req := postTheme(url.Values{"theme": {"light"}})
	req = req.WithContext(middleware.WithHTMX(req.Context(), middleware.HTMXInfo{IsHTMX: true}))
	rec := httptest.NewRecorder()
	defaultProvider().SetHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"sukoon:theme":{"mode":"light"}}`, rec.Header().Get("HX-Trigger"))
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	require.Equal(t, "light", doc.Find("form[data-theme-toggle]").AttrOr("data-theme-mode", ""))
	require.Equal(t, "dark", doc.Find(`input[name="theme"]`).AttrOr("value", ""))
}

func TestSetHandlerRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	defaultProvider().SetHandler(rec, postTheme(url.Values{"theme": {"neon"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}
