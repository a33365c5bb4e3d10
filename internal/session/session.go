package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLifetime    = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

// ErrExpired indicates the stored session is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates a store was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// User captures the identity established by an Authenticator.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar,omitempty"`
}

// Name returns the best human-readable label for the user.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return u.UID
	}
}

// Data represents the full persisted session payload.
type Data struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
	CSRFToken  string    `json:"csrf,omitempty"`
	User       *User     `json:"user,omitempty"`
}

// Session holds mutable state for the current request lifecycle.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
	previous  string
}

// Lifecycle controls expiry limits shared by every store.
type Lifecycle struct {
	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

func (l Lifecycle) withDefaults() Lifecycle {
	if l.IdleTimeout <= 0 {
		l.IdleTimeout = defaultIdleTimeout
	}
	if l.Lifetime <= 0 {
		l.Lifetime = defaultLifetime
	}
	if l.Now == nil {
		l.Now = time.Now
	}
	return l
}

func (l Lifecycle) newSession() *Session {
	now := l.Now().UTC()
	return &Session{
		data: Data{
			ID:         uuid.NewString(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(l.Lifetime),
			CSRFToken:  uuid.NewString(),
		},
		dirty: true,
	}
}

func (l Lifecycle) fromData(d Data) (*Session, error) {
	if d.ID == "" {
		return l.newSession(), nil
	}
	now := l.Now().UTC()
	if !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt.UTC()) {
		return nil, ErrExpired
	}
	last := d.LastActive
	if last.IsZero() {
		last = d.CreatedAt
	}
	if !last.IsZero() && now.Sub(last) > l.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{data: d}, nil
}

// ID returns the stable session identifier.
func (s *Session) ID() string {
	return s.data.ID
}

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time {
	return s.data.CreatedAt
}

// ExpiresAt returns the absolute expiry timestamp for the session.
func (s *Session) ExpiresAt() time.Time {
	return s.data.ExpiresAt
}

// User returns the signed-in user, or nil for anonymous sessions.
func (s *Session) User() *User {
	if s == nil {
		return nil
	}
	return s.data.User
}

// Authenticated reports whether the session carries a user.
func (s *Session) Authenticated() bool {
	return s.User() != nil
}

// SetUser updates the session user.
func (s *Session) SetUser(user *User) {
	if user == nil {
		if s.data.User != nil {
			s.data.User = nil
			s.dirty = true
		}
		return
	}
	if s.data.User != nil && *s.data.User == *user {
		return
	}
	copied := *user
	s.data.User = &copied
	s.dirty = true
}

// CSRFToken returns the stored CSRF token, generating one on demand.
func (s *Session) CSRFToken() string {
	if s.data.CSRFToken == "" {
		s.data.CSRFToken = uuid.NewString()
		s.dirty = true
	}
	return s.data.CSRFToken
}

// RegenerateID assigns a new identifier and CSRF token to prevent fixation after sign-in.
func (s *Session) RegenerateID() {
	if s.previous == "" {
		s.previous = s.data.ID
	}
	s.data.ID = uuid.NewString()
	s.data.CSRFToken = uuid.NewString()
	s.dirty = true
}

// Destroy marks the session for deletion at the end of the request.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed exposes the destroy marker.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

// Dirty reports whether the session changed during this request.
func (s *Session) Dirty() bool {
	return s.dirty
}

func (s *Session) touch(now time.Time) {
	s.data.LastActive = now.UTC()
}

func (s *Session) snapshot() Data {
	d := s.data
	if d.User != nil {
		u := *d.User
		d.User = &u
	}
	return d
}
