// Package payments prepares payment instructions for pending deposits.
package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/shopspring/decimal"
)

// Instructions tell the depositor where to send funds.
type Instructions struct {
	WalletAddress string
	NetworkFee    decimal.Decimal
}

type Processor interface {
	Name() deposits.Processor
	Prepare(ctx context.Context, dep *deposits.Deposit) (Instructions, error)
}

// Registry resolves processors by name.
type Registry struct {
	processors map[deposits.Processor]Processor
}

func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{processors: make(map[deposits.Processor]Processor, len(processors))}

	for _, p := range processors {
		r.processors[p.Name()] = p
	}

	return r
}

func (r *Registry) Get(name deposits.Processor) (Processor, error) {
	p, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", deposits.ErrProcessorUnsupported, name)
	}

	return p, nil
}

// Manual hands out operator-owned addresses configured per currency.
type Manual struct {
	log       *slog.Logger
	addresses map[string]string
}

type ManualOption func(m *Manual)

func WithLogger(logger *slog.Logger) ManualOption {
	return func(m *Manual) {
		m.log = logger
	}
}

func NewManual(addresses map[string]string, opts ...ManualOption) *Manual {
	m := &Manual{
		log:       logger.Nop(),
		addresses: make(map[string]string, len(addresses)),
	}

	for cur, addr := range addresses {
		m.addresses[deposits.NormalizeCurrency(cur)] = strings.TrimSpace(addr)
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With(slog.String("module", "payments"))

	return m
}

func (m *Manual) Name() deposits.Processor {
	return deposits.ProcessorManual
}

// Prepare returns the configured address. An unconfigured currency yields an empty address; the
// operator then has to share one out of band.
func (m *Manual) Prepare(_ context.Context, dep *deposits.Deposit) (Instructions, error) {
	addr, ok := m.addresses[dep.Currency()]
	if !ok {
		m.log.Warn("no manual wallet address configured", slog.String("currency", dep.Currency()))
	}

	return Instructions{WalletAddress: addr, NetworkFee: decimal.Zero}, nil
}

// NowPayments is a sandbox stand-in for the NOWPayments gateway. It derives a stable pay-in
// address from the deposit id and charges no network fee.
type NowPayments struct{}

func NewNowPayments() *NowPayments {
	return &NowPayments{}
}

func (n *NowPayments) Name() deposits.Processor {
	return deposits.ProcessorNowPayments
}

func (n *NowPayments) Prepare(ctx context.Context, dep *deposits.Deposit) (Instructions, error) {
	if err := ctx.Err(); err != nil {
		return Instructions{}, err
	}

	sum := sha256.Sum256([]byte(dep.ID()))

	return Instructions{
		WalletAddress: "np_" + strings.ToLower(dep.Currency()) + "_" + hex.EncodeToString(sum[:16]),
		NetworkFee:    decimal.Zero,
	}, nil
}
