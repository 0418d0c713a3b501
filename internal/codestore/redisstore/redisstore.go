package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andymarkow/botmarket/internal/codestore"
	"github.com/redis/go-redis/v9"
)

var _ codestore.Store = (*Store)(nil)

// Store keeps codes in Redis. Keys expire natively, so Sweep has nothing to do.
type Store struct {
	client *redis.Client
	prefix string
}

type Config struct {
	addr     string
	password string
	db       int
	prefix   string
}

type Option func(c *Config)

func WithPassword(password string) Option {
	return func(c *Config) {
		c.password = password
	}
}

func WithDB(db int) Option {
	return func(c *Config) {
		c.db = db
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.prefix = prefix
	}
}

// New connects to addr and verifies the connection with PING.
func New(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	cfg := &Config{
		addr:   addr,
		prefix: "botmarket:",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.addr,
		Password: cfg.password,
		DB:       cfg.db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("client.Ping: %w", err)
	}

	return &Store{client: client, prefix: cfg.prefix}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", codestore.ErrNotFound
		}

		return "", fmt.Errorf("client.Get: %w", err)
	}

	return val, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("client.Del: %w", err)
	}

	return nil
}

// Incr is a fixed-window counter. INCR and TTL run in one MULTI; any key found without an
// expiry gets one, so a lost EXPIRE is repaired on the next hit.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := s.key(key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("client.TxPipelined: %w", err)
	}

	// TTL is -1 when the key has no expiry.
	if ttl.Val() < 0 {
		if err := s.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, fmt.Errorf("client.Expire: %w", err)
		}
	}

	return incr.Val(), nil
}

func (s *Store) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
