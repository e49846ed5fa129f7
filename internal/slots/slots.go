// Package slots provides the named durable slots that mirror per-user client
// state (saved jobs, applied jobs, session identity).
package slots

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// 槽位名称。
const (
	SavedJobs   = "savedJobs"
	AppliedJobs = "appliedJobs"
	User        = "user"
)

// Store reads and writes opaque slot values. A missing slot is reported with
// ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, owner, name string) (value []byte, ok bool, err error)
	Set(ctx context.Context, owner, name string, value []byte) error
	Delete(ctx context.Context, owner, name string) error
}

const keyPrefix = "hiredup:slots:"

// Key 返回 Redis 中的槽位键。
func Key(owner, name string) string {
	return keyPrefix + owner + ":" + name
}

type redisSlotClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps slots in Redis. A zero ttl keeps values forever.
type RedisStore struct {
	client redisSlotClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, owner, name string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, Key(owner, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", name, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, owner, name string, value []byte) error {
	if err := s.client.Set(ctx, Key(owner, name), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set slot %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner, name string) error {
	if err := s.client.Del(ctx, Key(owner, name)).Err(); err != nil {
		return fmt.Errorf("delete slot %s: %w", name, err)
	}
	return nil
}

// MemoryStore is a process-local Store used by tests and single-node setups.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, owner, name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[Key(owner, name)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, owner, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.values[Key(owner, name)] = v
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, Key(owner, name))
	return nil
}
