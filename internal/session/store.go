package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "SUKOON_SESSION"
	defaultCookiePath = "/"
)

// Store loads and persists sessions for the Provider middleware.
type Store interface {
	Load(*http.Request) (*Session, error)
	New() *Session
	Save(context.Context, http.ResponseWriter, *Session) error
}

// CookieConfig controls cookie encoding shared by every store.
type CookieConfig struct {
	Name     string
	HashKey  []byte
	BlockKey []byte
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) withDefaults() (CookieConfig, error) {
	if len(c.HashKey) == 0 {
		return c, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if c.Name == "" {
		c.Name = defaultCookieName
	}
	if c.Path == "" {
		c.Path = defaultCookiePath
	}
	if c.SameSite == http.SameSiteDefaultMode {
		c.SameSite = http.SameSiteLaxMode
	}
	return c, nil
}

func (c CookieConfig) codec() *securecookie.SecureCookie {
	codec := securecookie.New(c.HashKey, c.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return codec
}

func (c CookieConfig) cookie(value string, expires time.Time, now time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
		remaining := expires.Sub(now)
		if remaining <= 0 {
			cookie.MaxAge = -1
		} else {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		}
	}
	return cookie
}

func (c CookieConfig) expired() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	}
}

// CookieStore keeps the whole session payload in a signed (and optionally encrypted) cookie.
type CookieStore struct {
	cookie    CookieConfig
	lifecycle Lifecycle
	codec     *securecookie.SecureCookie
}

// NewCookieStore constructs a CookieStore using the provided configuration.
func NewCookieStore(cookie CookieConfig, lifecycle Lifecycle) (*CookieStore, error) {
	cookie, err := cookie.withDefaults()
	if err != nil {
		return nil, err
	}
	return &CookieStore{
		cookie:    cookie,
		lifecycle: lifecycle.withDefaults(),
		codec:     cookie.codec(),
	}, nil
}

// Load decodes the session cookie. Missing or tampered cookies yield a fresh session.
func (s *CookieStore) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		return s.New(), nil
	}
	var stored Data
	if err := s.codec.Decode(s.cookie.Name, c.Value, &stored); err != nil {
		return s.New(), nil
	}
	return s.lifecycle.fromData(stored)
}

// New returns a pristine session.
func (s *CookieStore) New() *Session {
	return s.lifecycle.newSession()
}

// Save writes the session back as a cookie. Destroyed sessions clear the cookie.
func (s *CookieStore) Save(_ context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		http.SetCookie(w, s.cookie.expired())
		return nil
	}
	now := s.lifecycle.Now()
	sess.touch(now)
	data := sess.snapshot()
	encoded, err := s.codec.Encode(s.cookie.Name, data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, s.cookie.cookie(encoded, data.ExpiresAt, now))
	return nil
}
