package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/securecookie"
)

const (
	redisKeyPrefix          = "sukoon:session:"
	defaultOperationTimeout = 3 * time.Second
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps session payloads in Redis; the cookie only carries the signed session id.
type RedisStore struct {
	client    RedisClient
	cookie    CookieConfig
	lifecycle Lifecycle
	codec     *securecookie.SecureCookie
}

// NewRedisStore wires a RedisStore on top of an existing client.
func NewRedisStore(client RedisClient, cookie CookieConfig, lifecycle Lifecycle) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	cookie, err := cookie.withDefaults()
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:    client,
		cookie:    cookie,
		lifecycle: lifecycle.withDefaults(),
		codec:     cookie.codec(),
	}, nil
}

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

// Load resolves the session id from the cookie and fetches its payload.
// A missing key means the session was evicted or never existed; a fresh session is returned.
func (s *RedisStore) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(s.cookie.Name)
	if err != nil || c.Value == "" {
		return s.New(), nil
	}
	var id string
	if err := s.codec.Decode(s.cookie.Name, c.Value, &id); err != nil || id == "" {
		return s.New(), nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultOperationTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var stored Data
	if err := json.Unmarshal(raw, &stored); err != nil {
		return s.New(), nil
	}
	return s.lifecycle.fromData(stored)
}

// New returns a pristine session.
func (s *RedisStore) New() *Session {
	return s.lifecycle.newSession()
}

// Save persists the payload with a TTL matching the absolute expiry and refreshes the id cookie.
func (s *RedisStore) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	ctx, cancel := context.WithTimeout(ctx, defaultOperationTimeout)
	defer cancel()

	if sess.previous != "" && sess.previous != sess.data.ID {
		if err := s.client.Del(ctx, redisKeyPrefix+sess.previous).Err(); err != nil {
			return fmt.Errorf("delete rotated session: %w", err)
		}
	}
	if sess.destroyed {
		http.SetCookie(w, s.cookie.expired())
		if err := s.client.Del(ctx, redisKeyPrefix+sess.data.ID).Err(); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	}

	now := s.lifecycle.Now()
	sess.touch(now)
	data := sess.snapshot()
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := data.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, redisKeyPrefix+data.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	encoded, err := s.codec.Encode(s.cookie.Name, data.ID)
	if err != nil {
		return fmt.Errorf("encode session id: %w", err)
	}
	http.SetCookie(w, s.cookie.cookie(encoded, data.ExpiresAt, now))
	return nil
}
