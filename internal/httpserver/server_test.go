package httpserver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/config"
	"sukoonai.org/sukoon-web/internal/observability"
	"sukoonai.org/sukoon-web/internal/session"
	"sukoonai.org/sukoon-web/internal/shell"
	"sukoonai.org/sukoon-web/internal/theme"
	"sukoonai.org/sukoon-web/public"
)

const testCookie = "test_session"

type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T) (*client, *observability.Metrics) {
	t.Helper()

	store, err := session.NewCookieStore(session.CookieConfig{
		Name:    testCookie,
		HashKey: []byte("12345678901234567890123456789012"),
	}, session.Lifecycle{IdleTimeout: time.Hour})
	require.NoError(t, err)

	tp := theme.Configure(shell.ThemeOptions())
	metrics := observability.NewMetrics()
	router := NewRouter(Deps{
		Logger:        zap.NewNop(),
		Metrics:       metrics,
		Store:         store,
		Authenticator: session.DevAuthenticator{},
		Shell:         shell.New(shell.Config{Theme: tp}),
		Theme:         tp,
		Assets:        public.Assets(),
	})
	return &client{t: t, handler: router, cookies: map[string]*http.Cookie{}}, metrics
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) (*httptest.ResponseRecorder, *goquery.Document) {
	c.t.Helper()
	rec := c.do(httptest.NewRequest(http.MethodGet, path, nil))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(c.t, err)
	return rec, doc
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func TestHealthz(t *testing.T) {
	c, _ := newClient(t)
	rec := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHomeRendersInsideProviders(t *testing.T) {
	c, _ := newClient(t)
	rec, doc := c.get("/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, c.cookies, testCookie)
	require.Equal(t, theme.ClientHintHeader, rec.Header().Get("Accept-CH"))
	require.Equal(t, 1, doc.Find("main[data-shell-main] article[data-page]").Length())
	require.Equal(t, 7, doc.Find("nav[data-shell-nav] a[data-nav-item]").Length())
	require.NotEmpty(t, doc.Find(`meta[name="csrf-token"]`).AttrOr("content", ""))
}

func TestFeatureRouteMarksActiveLink(t *testing.T) {
	c, _ := newClient(t)
	rec, doc := c.get("/mood/history")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "/mood", doc.Find(`nav a[aria-current="page"]`).AttrOr("href", ""))

	rec, doc = c.get("/community")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/community", doc.Find(`nav a[aria-current="page"]`).AttrOr("href", ""))
}

func TestAssetsAndFavicon(t *testing.T) {
	c, _ := newClient(t)

	rec := c.do(httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, c.do(req).Code)

	rec = c.do(httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/assets/favicon.svg", rec.Header().Get("Location"))
}

func TestSignInFlow(t *testing.T) {
	c, _ := newClient(t)

	_, doc := c.get("/sign-in?next=%2Fjournal")
	token := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")
	require.NotEmpty(t, token)
	require.Equal(t, "anonymous", doc.Find("[data-profile]").AttrOr("data-profile-state", ""))

	rec := c.post("/sign-in", url.Values{"token": {"debug:amna"}, "next": {"/journal"}, "_csrf": {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/journal", rec.Header().Get("Location"))

	rec, doc = c.get("/journal")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "signed-in", doc.Find("[data-profile]").AttrOr("data-profile-state", ""))
	require.Equal(t, "amna", strings.TrimSpace(doc.Find("[data-profile-name]").Text()))

	rotated := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")
	require.NotEqual(t, token, rotated)

	rec = c.post("/sign-out", url.Values{"_csrf": {rotated}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, doc = c.get("/")
	require.Equal(t, "anonymous", doc.Find("[data-profile]").AttrOr("data-profile-state", ""))
}

func TestModifyingRequestsRequireCSRF(t *testing.T) {
	c, _ := newClient(t)
	c.get("/")

	rec := c.post(theme.SetPath, url.Values{"theme": {"dark"}})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestThemeSwitchPersists(t *testing.T) {
	c, _ := newClient(t)
	_, doc := c.get("/chat")
	token := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")

	rec := c.post(theme.SetPath, url.Values{"theme": {"dark"}, "next": {"/chat"}, "_csrf": {token}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/chat", rec.Header().Get("Location"))

	_, doc = c.get("/chat")
	require.Equal(t, "dark", doc.Find("html").AttrOr("data-theme-mode", ""))
	require.Equal(t, "dark", doc.Find("html").AttrOr("class", ""))
}

func TestMetricsEndpoint(t *testing.T) {
	c, metrics := newClient(t)
	require.NotNil(t, metrics)
	c.get("/breathing")

	rec := c.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `sukoon_web_http_requests_total{method="GET",route="/*",status="200"} 1`)
}

func TestRoutes(t *testing.T) {
	c, _ := newClient(t)
	routes, err := Routes(c.handler.(chi.Routes))
	require.NoError(t, err)

	want := []Route{
		{Method: http.MethodGet, Pattern: "/"},
		{Method: http.MethodGet, Pattern: "/healthz"},
		{Method: http.MethodGet, Pattern: "/metrics"},
		{Method: http.MethodGet, Pattern: "/sign-in"},
		{Method: http.MethodPost, Pattern: "/sign-in"},
		{Method: http.MethodPost, Pattern: "/sign-out"},
		{Method: http.MethodPost, Pattern: "/theme"},
	}
	for _, route := range want {
		require.Contains(t, routes, route)
	}
}

func TestNewUsesConfiguredAddress(t *testing.T) {
	store, err := session.NewCookieStore(session.CookieConfig{HashKey: []byte("12345678901234567890123456789012")}, session.Lifecycle{})
	require.NoError(t, err)
	tp := theme.Configure(shell.ThemeOptions())
	srv := New(config.Config{Server: config.ServerConfig{Port: "9090", ReadTimeout: time.Second}}, Deps{
		Store: store,
		Shell: shell.New(shell.Config{Theme: tp}),
		Theme: tp,
	})
	require.Equal(t, ":9090", srv.Addr)
	require.Equal(t, time.Second, srv.ReadTimeout)
}

func TestNewRouterRequiresCollaborators(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewRouter(Deps{}) })
}
