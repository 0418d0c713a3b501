// Package codestore keeps short-lived secrets such as email verification codes and password
// reset tokens.
package codestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/andymarkow/botmarket/internal/logger"
)

var ErrNotFound = errors.New("code not found or expired")

type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// Incr bumps a counter that resets window after its first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Sweep drops expired entries and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
	Close() error
}

// Key prefixes.
const (
	VerificationPrefix = "verify:"
	ResetPrefix        = "reset:"
	ThrottlePrefix     = "throttle:"
)

// Sweeper periodically drops expired codes.
type Sweeper struct {
	log      *slog.Logger
	store    Store
	interval time.Duration
}

type SweeperOption func(s *Sweeper)

func WithLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.log = logger
	}
}

func WithInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = interval
	}
}

func NewSweeper(store Store, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		log:      logger.Nop(),
		store:    store,
		interval: 10 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(slog.String("module", "code_sweeper"))

	return s
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Start code sweeper", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Context done, stopping code sweeper")

			return nil

		case <-ticker.C:
			n, err := s.store.Sweep(ctx)
			if err != nil {
				s.log.Error("store.Sweep", slog.Any("error", err))

				continue
			}

			if n > 0 {
				s.log.Info("Expired codes removed", slog.Int("count", n))
			}
		}
	}
}
