// Package redis implements the profile cache. Fan-outs read one profile per
// recipient; caching them keeps large broadcasts from hammering the document
// store. Everything here is best effort: a cache failure falls back to the
// store and a TTL backstops missed invalidations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// MaxRetries is the maximum number of retries before giving up.
	MaxRetries int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when serialization/deserialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS AND TTLs
// ══════════════════════════════════════════════════════════════════════════════

// PrefixProfile is the prefix for cached user profiles.
const PrefixProfile = "profile:"

// TTLProfileCache backstops missed invalidations. Profiles change rarely
// (settings screen, token rotation), so a short TTL costs little.
const TTLProfileCache = 10 * time.Minute

// ProfileKey returns the cache key for an entrant's profile.
func ProfileKey(entrantID string) string {
	return PrefixProfile + entrantID
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache provides JSON-serialized caching on top of Redis.
type Cache struct {
	client *redis.Client
	config Config
}

// NewCache creates a new Cache instance with the given configuration.
func NewCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client, config: cfg}, nil
}

// Client returns the underlying Redis client for advanced operations.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores a value with the given key and TTL.
// The value is serialized to JSON before storage.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get retrieves a value by key and deserializes it into dest.
// Returns ErrCacheMiss if the key does not exist.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return nil
}

// Delete removes a key from the cache. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	return c.client.Del(ctx, key).Err()
}
