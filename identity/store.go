package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sitestats/api/models"
)

// Store is the durable client-side key-value storage identifiers are kept in.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to every key
	Prefix string

	DialTimeout time.Duration
}

// DefaultRedisStoreOptions returns sensible defaults.
func DefaultRedisStoreOptions() RedisStoreOptions {
	return RedisStoreOptions{
		Prefix:      "sitestats:",
		DialTimeout: 5 * time.Second,
	}
}

// RedisStore persists identifiers in Redis without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", models.ErrConfigurationMissing)
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.DialTimeout > 0 {
		redisOpts.DialTimeout = opts.DialTimeout
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: opts.Prefix}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SessionRecord is the persisted session identifier and its last activity.
type SessionRecord struct {
	ID           string
	LastActivity time.Time
}

type sessionJSON struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// EncodeSession serializes a session record for storage.
func EncodeSession(r SessionRecord) (string, error) {
	b, err := json.Marshal(sessionJSON{ID: r.ID, Timestamp: r.LastActivity.UnixMilli()})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSession parses a stored session record. Anything unparsable, or a
// record without an identifier, yields ErrMalformedState.
func DecodeSession(raw string) (SessionRecord, error) {
	var s sessionJSON
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return SessionRecord{}, fmt.Errorf("%w: %v", models.ErrMalformedState, err)
	}
	if s.ID == "" {
		return SessionRecord{}, fmt.Errorf("%w: empty session id", models.ErrMalformedState)
	}
	return SessionRecord{ID: s.ID, LastActivity: time.UnixMilli(s.Timestamp)}, nil
}
