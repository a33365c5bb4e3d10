package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.values[k]; ok {
			n++
		}
		delete(m.values, k)
		m.deleted = append(m.deleted, k)
	}
	return redis.NewIntResult(n, nil)
}

func newTestRedisStore(t *testing.T, client RedisClient) (*RedisStore, *fixedClock) {
	t.Helper()
	clock := &fixedClock{current: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewRedisStore(client, CookieConfig{Name: "sid", HashKey: testHashKey}, Lifecycle{
		IdleTimeout: 30 * time.Minute,
		Lifetime:    time.Hour,
		Now:         clock.Now,
	})
	require.NoError(t, err)
	return store, clock
}

func TestRedisStoreRoundTrip(t *testing.T) {
	client := newMemoryRedis()
	store, clock := newTestRedisStore(t, client)

	sess := store.New()
	sess.SetUser(&User{UID: "u-9", DisplayName: "Sara"})
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(context.Background(), rec, sess))

	require.Contains(t, client.values, redisKeyPrefix+sess.ID())
	require.Equal(t, time.Hour, client.ttls[redisKeyPrefix+sess.ID()])

	cookie := cookieFrom(t, rec, "sid")
	require.NotContains(t, cookie.Value, "Sara", "cookie must carry only the signed id")

	clock.current = clock.current.Add(10 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := store.Load(req)
	require.NoError(t, err)
	require.Equal(t, sess.ID(), loaded.ID())
	require.Equal(t, "Sara", loaded.User().Name())
}

func TestRedisStoreEvictedKeyYieldsFreshSession(t *testing.T) {
	client := newMemoryRedis()
	store, _ := newTestRedisStore(t, client)

	sess := store.New()
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(context.Background(), rec, sess))
	delete(client.values, redisKeyPrefix+sess.ID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec, "sid"))
	loaded, err := store.Load(req)
	require.NoError(t, err)
	require.NotEqual(t, sess.ID(), loaded.ID())
}

func TestRedisStoreLoadErrorPropagates(t *testing.T) {
	client := newMemoryRedis()
	store, _ := newTestRedisStore(t, client)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(context.Background(), rec, store.New()))
	client.getErr = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookieFrom(t, rec, "sid"))
	_, err := store.Load(req)
	require.Error(t, err)
}

func TestRedisStoreRotationDeletesPreviousKey(t *testing.T) {
	client := newMemoryRedis()
	store, _ := newTestRedisStore(t, client)

	sess := store.New()
	require.NoError(t, store.Save(context.Background(), httptest.NewRecorder(), sess))
	oldID := sess.ID()

	sess.RegenerateID()
	require.NoError(t, store.Save(context.Background(), httptest.NewRecorder(), sess))

	require.NotContains(t, client.values, redisKeyPrefix+oldID)
	require.Contains(t, client.values, redisKeyPrefix+sess.ID())
}

func TestRedisStoreDestroy(t *testing.T) {
	client := newMemoryRedis()
	store, _ := newTestRedisStore(t, client)

	sess := store.New()
	require.NoError(t, store.Save(context.Background(), httptest.NewRecorder(), sess))

	sess.Destroy()
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(context.Background(), rec, sess))
	require.Empty(t, client.values)
	require.Less(t, cookieFrom(t, rec, "sid").MaxAge, 0)
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	_, err := NewRedisStore(nil, CookieConfig{HashKey: testHashKey}, Lifecycle{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
