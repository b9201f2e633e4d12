// Package exchangecache implements C3: a bounded TTL cache for exchanged
// bearer tokens, keyed by token_id.
//
// Grounded on spec §3/§4.3's "bounded TTL map" requirement and the
// teacher's `pkg/authserver/storage` Redis/in-memory dual-backend
// pattern: New builds an in-process cache over
// github.com/dgraph-io/ristretto (per-key TTL, cost-bounded eviction,
// no hand-rolled sweeper); NewRedis builds the same surface over
// github.com/redis/go-redis/v9 for deployments that share the cache
// across processes.
package exchangecache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
)

// DefaultTTL is the cache entry lifetime used by Set when no override is
// given.
const DefaultTTL = 5 * time.Minute

const sep = ":"

// backend is the pluggable storage surface Cache delegates to.
type backend interface {
	set(key, value string, ttl time.Duration)
	get(key string) (string, bool)
	remove(key string)
}

// Cache is C3's get/set/remove surface (spec §4.3).
type Cache struct {
	backend backend
	ttl     time.Duration
}

type ristrettoBackend struct {
	rc *ristretto.Cache
}

func (b *ristrettoBackend) set(key, value string, ttl time.Duration) {
	b.rc.SetWithTTL(key, value, int64(len(value)), ttl)
	b.rc.Wait()
}

func (b *ristrettoBackend) get(key string) (string, bool) {
	v, ok := b.rc.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (b *ristrettoBackend) remove(key string) { b.rc.Del(key) }

// New builds an in-process Cache sized for typical per-process exchange
// traffic.
func New() (*Cache, error) {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("new ristretto cache: %w", err)
	}
	return &Cache{backend: &ristrettoBackend{rc: rc}, ttl: DefaultTTL}, nil
}

type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) set(key, value string, ttl time.Duration) {
	b.client.Set(context.Background(), key, value, ttl)
}

func (b *redisBackend) get(key string) (string, bool) {
	v, err := b.client.Get(context.Background(), key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (b *redisBackend) remove(key string) {
	b.client.Del(context.Background(), key)
}

// NewRedis builds a Cache backed by an existing Redis client, so the
// exchange cache can be shared across replicas of the same process
// rather than held in-memory per instance.
func NewRedis(client *redis.Client) *Cache {
	return &Cache{backend: &redisBackend{client: client}, ttl: DefaultTTL}
}

// ExchangeAccessTokenKey builds the cache key for an exchanged access
// token, per spec §3: "exchange-access-token-{token_id}".
func ExchangeAccessTokenKey(tokenID string) string {
	return "exchange-access-token-" + tokenID
}

// ExchangeRefreshTokenKey builds the cache key for the refresh token
// cached alongside an exchanged access token (spec §4.5.1 step 5).
func ExchangeRefreshTokenKey(tokenID string) string {
	return "exchange-refresh-token-" + tokenID
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key, value string) {
	c.backend.set(key, value, c.ttl)
}

// Remove evicts key.
func (c *Cache) Remove(key string) { c.backend.remove(key) }

// GetBoundToHash retrieves the value stored under key, enforcing spec
// §4.3's binding rule: the stored entry is formatted "{value}:{hash}"; if
// the stored trailing hash does not equal expectedHash, this is a cache
// miss (ok=false) — the entry is NOT evicted, so a stale entry cannot
// authenticate a different token that happens to reuse the same token_id.
// A malformed entry (missing the ":" separator) IS removed on read.
func (c *Cache) GetBoundToHash(key, expectedHash string) (value string, ok bool) {
	raw, found := c.backend.get(key)
	if !found {
		return "", false
	}
	idx := strings.LastIndex(raw, sep)
	if idx < 0 {
		c.Remove(key)
		return "", false
	}
	storedValue, storedHash := raw[:idx], raw[idx+1:]
	if !crypto.ConstantTimeEqualHex(storedHash, expectedHash) {
		return "", false
	}
	return storedValue, true
}

// SetBoundToHash stores value alongside the sha256 hex hash it is bound
// to, in the "{value}:{hash}" format GetBoundToHash expects.
func (c *Cache) SetBoundToHash(key, value, hash string) {
	c.Set(key, value+sep+hash)
}
