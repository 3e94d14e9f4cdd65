package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// StateCookieName is the cookie that binds a login nonce to the browser that
// started the login.
const StateCookieName = "oauth_state"

// StateStore remembers login nonces between the redirect to GitHub and the
// callback.
//
// A nonce is single use: Consume returns true at most once per Save, and never
// after the TTL has passed. That is what turns the OAuth "state" parameter into
// real CSRF protection instead of a constant string.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}

// NewState returns a fresh login nonce.
//
// WHY xid?
// xid values are globally unique, URL-safe and carry a random component, which is
// all the state parameter needs: the nonce is only ever compared for
// equality, never decoded.
func NewState() string {
	return xid.New().String()
}

// =========================================================================
// IN-MEMORY STORE
// =========================================================================

// MemoryStateStore keeps nonces in a map guarded by a mutex.
// It is the default when no Redis URL is configured and is fine for a single
// server process. Nonces saved in one process are invisible to another.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // state → expiry
	now     func() time.Time
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Save records state until ttl elapses. Expired entries are swept on each
// Save so abandoned logins cannot grow the map forever.
func (m *MemoryStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	if state == "" {
		return errors.New("auth: empty state")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for s, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, s)
		}
	}
	m.entries[state] = now.Add(ttl)
	return nil
}

// Consume removes state and reports whether it was present and unexpired.
func (m *MemoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[state]
	if !ok {
		return false, nil
	}
	delete(m.entries, state)
	return m.now().Before(exp), nil
}

// =========================================================================
// REDIS STORE
// =========================================================================

const redisStatePrefix = "devsnap:oauth_state:"

// RedisStateStore keeps nonces in Redis so any server replica can finish a
// login another replica started. Redis expires keys on its own, and GETDEL
// makes Consume atomic across replicas.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore parses a redis:// URL and returns a store backed by it.
// The connection is checked with PING so a bad URL fails at startup.
func NewRedisStateStore(ctx context.Context, redisURL string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("auth: parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auth: connecting to redis: %w", err)
	}
	return &RedisStateStore{client: client}, nil
}

func (r *RedisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if state == "" {
		return errors.New("auth: empty state")
	}
	if err := r.client.Set(ctx, redisStatePrefix+state, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: saving state: %w", err)
	}
	return nil
}

func (r *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	err := r.client.GetDel(ctx, redisStatePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: consuming state: %w", err)
	}
	return true, nil
}

// Close releases the Redis connection pool.
func (r *RedisStateStore) Close() error {
	return r.client.Close()
}

var (
	_ StateStore = (*MemoryStateStore)(nil)
	_ StateStore = (*RedisStateStore)(nil)
)
