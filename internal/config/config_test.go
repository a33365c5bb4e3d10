package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("unexpected address %s", cfg.Address())
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Session.Store != "cookie" {
		t.Errorf("expected cookie session store, got %s", cfg.Session.Store)
	}
	if cfg.Session.Secure {
		t.Errorf("expected insecure cookies outside prod")
	}
	if cfg.Theme.CookieName != "theme" {
		t.Errorf("unexpected theme cookie %s", cfg.Theme.CookieName)
	}
	if cfg.Nav.Match != "prefix" {
		t.Errorf("expected prefix nav matching, got %s", cfg.Nav.Match)
	}
	if cfg.Redis.Enabled {
		t.Errorf("redis must be disabled for the cookie store")
	}
	if cfg.Site.BrandImageURL != defaultBrandImageURL {
		t.Errorf("unexpected brand image %s", cfg.Site.BrandImageURL)
	}
	if cfg.IsProduction() {
		t.Errorf("default environment must not be production")
	}
}

func TestLoadPrefersExplicitPortOverPlatformPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"PORT":            "9000",
		"SUKOON_WEB_PORT": "9100",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Fatalf("expected 9100, got %s", cfg.Server.Port)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SUKOON_WEB_NAV_MATCH=exact\nSUKOON_WEB_SESSION_STORE=redis\nSUKOON_WEB_REDIS_ADDR=redis:6379\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{
		"SUKOON_WEB_REDIS_DB": "2",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Nav.Match != "exact" {
		t.Errorf("expected exact matching from env file, got %s", cfg.Nav.Match)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"SUKOON_WEB_ENV":           "prod",
		"SUKOON_WEB_NAV_MATCH":     "fuzzy",
		"SUKOON_WEB_READ_TIMEOUT":  "soon",
		"SUKOON_WEB_SESSION_STORE": "memcached",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	want := map[string]bool{
		"Config.Nav.Match":        false,
		"Config.Session.Store":    false,
		"Config.Session.HashKey":  false,
		"SUKOON_WEB_READ_TIMEOUT": false,
	}
	for _, f := range verr.Fields() {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s in %v", field, verr.Fields())
		}
	}
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, WithoutSystemEnv(), WithEnvFile("")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
