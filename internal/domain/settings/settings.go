// Package settings holds the administrator-editable wallet configuration.
package settings

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMinimumDepositInvalid = errors.New("minimum deposit must be positive")
	ErrCurrenciesEmpty       = errors.New("supported currencies must not be empty")
)

type WalletSettings struct {
	MinimumDeposit      decimal.Decimal
	SupportedCurrencies []string
	UpdatedAt           time.Time
	UpdatedBy           string
}

// New validates and normalizes the settings. Currencies are upper-cased and de-duplicated,
// keeping their first-seen order.
func New(minimum decimal.Decimal, currencies []string) (WalletSettings, error) {
	if !minimum.IsPositive() {
		return WalletSettings{}, ErrMinimumDepositInvalid
	}

	norm := NormalizeCurrencies(currencies)
	if len(norm) == 0 {
		return WalletSettings{}, ErrCurrenciesEmpty
	}

	return WalletSettings{
		MinimumDeposit:      minimum,
		SupportedCurrencies: norm,
	}, nil
}

func NormalizeCurrencies(currencies []string) []string {
	seen := make(map[string]struct{}, len(currencies))
	out := make([]string, 0, len(currencies))

	for _, c := range currencies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}

		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		out = append(out, c)
	}

	return out
}

// Supports reports whether the (already normalized) currency is accepted.
func (s WalletSettings) Supports(currency string) bool {
	for _, c := range s.SupportedCurrencies {
		if c == currency {
			return true
		}
	}

	return false
}
