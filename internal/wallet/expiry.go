package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/andymarkow/botmarket/internal/logger"
)

// ExpiryDaemon periodically expires pending deposits past their timeout.
type ExpiryDaemon struct {
	log      *slog.Logger
	manager  *Manager
	interval time.Duration
}

type ExpiryOption func(d *ExpiryDaemon)

func WithExpiryLogger(logger *slog.Logger) ExpiryOption {
	return func(d *ExpiryDaemon) {
		d.log = logger
	}
}

func WithExpiryInterval(interval time.Duration) ExpiryOption {
	return func(d *ExpiryDaemon) {
		d.interval = interval
	}
}

func NewExpiryDaemon(manager *Manager, opts ...ExpiryOption) *ExpiryDaemon {
	d := &ExpiryDaemon{
		log:      logger.Nop(),
		manager:  manager,
		interval: time.Minute,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.log = d.log.With(slog.String("module", "deposit_expiry"))

	return d
}

func (d *ExpiryDaemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("Start deposit expiry daemon", slog.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Context done, stopping deposit expiry daemon")

			return nil

		case <-ticker.C:
			n, err := d.manager.ExpireOverdue(ctx)
			if err != nil {
				d.log.Error("manager.ExpireOverdue", slog.Any("error", err))

				continue
			}

			if n > 0 {
				d.log.Info("Overdue deposits expired", slog.Int("count", n))
			}
		}
	}
}
