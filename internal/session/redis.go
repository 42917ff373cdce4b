package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "feedsync:session:%s"

// RedisStore keeps the record under a per-project key. The key expires with the session.
type RedisStore struct {
	client  *redis.Client
	project string
}

// NewRedisClient builds a client from a REDIS_URL-like string: plain host:port or a redis:// URL.
func NewRedisClient(addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client, project string) *RedisStore {
	return &RedisStore{client: client, project: project}
}

func (s *RedisStore) key() string {
	return fmt.Sprintf(redisKeyPrefix, s.project)
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	raw, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNoSession
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis get session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	if rec.Secret == "" {
		return Record{}, ErrNoSession
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !rec.ExpiresAt.IsZero() {
		ttl = time.Until(rec.ExpiresAt)
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}
	return s.client.Set(ctx, s.key(), b, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

var _ Store = (*RedisStore)(nil)
