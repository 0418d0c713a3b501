// Package rates quotes USD exchange rates for the crypto currencies deposits can be paid in.
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyUnsupported = errors.New("no exchange rate for currency")
	ErrRateInvalid         = errors.New("exchange rate must be positive")
)

// Provider returns how many USD one unit of currency is worth.
type Provider interface {
	Quote(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Quote is a USD amount converted into a crypto amount at a fixed rate.
type Quote struct {
	Currency     string
	USDAmount    decimal.Decimal
	Rate         decimal.Decimal
	CryptoAmount decimal.Decimal
}

// Coins quoted with 8 decimal places. Everything else is treated as a stablecoin with 2.
var highPrecision = map[string]struct{}{
	"BTC": {},
	"ETH": {},
	"LTC": {},
	"XMR": {},
	"SOL": {},
}

// Precision returns the number of decimal places crypto amounts are rounded to.
func Precision(currency string) int32 {
	if _, ok := highPrecision[deposits.NormalizeCurrency(currency)]; ok {
		return 8
	}

	return 2
}

// Convert turns a USD amount into the crypto amount at rate.
func Convert(usd, rate decimal.Decimal, currency string) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, ErrRateInvalid
	}

	return usd.DivRound(rate, 16).Round(Precision(currency)), nil
}

// Lock fetches the current rate and computes the crypto amount for usd.
func Lock(ctx context.Context, p Provider, usd decimal.Decimal, currency string) (Quote, error) {
	currency = deposits.NormalizeCurrency(currency)

	rate, err := p.Quote(ctx, currency)
	if err != nil {
		return Quote{}, fmt.Errorf("provider.Quote: %w", err)
	}

	amount, err := Convert(usd, rate, currency)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Currency:     currency,
		USDAmount:    usd,
		Rate:         rate,
		CryptoAmount: amount,
	}, nil
}

// Static serves rates from a fixed table.
type Static struct {
	table map[string]decimal.Decimal
}

var _ Provider = (*Static)(nil)

// DefaultTable holds reference USD prices used when no rates service is configured.
func DefaultTable() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC":  decimal.NewFromInt(65000),
		"ETH":  decimal.NewFromInt(3500),
		"USDT": decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(1),
		"LTC":  decimal.NewFromInt(80),
		"XMR":  decimal.NewFromInt(160),
		"SOL":  decimal.NewFromInt(150),
	}
}

func NewStatic(table map[string]decimal.Decimal) *Static {
	if table == nil {
		table = DefaultTable()
	}

	norm := make(map[string]decimal.Decimal, len(table))
	for cur, rate := range table {
		norm[deposits.NormalizeCurrency(cur)] = rate
	}

	return &Static{table: norm}
}

func (s *Static) Quote(_ context.Context, currency string) (decimal.Decimal, error) {
	rate, ok := s.table[deposits.NormalizeCurrency(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrCurrencyUnsupported, currency)
	}

	return rate, nil
}
