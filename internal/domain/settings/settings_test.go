package settings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New(decimal.NewFromInt(50), []string{"btc", " ETH", "btc", ""})
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, s.SupportedCurrencies)
	assert.True(t, s.Supports("ETH"))
	assert.False(t, s.Supports("DOGE"))
}

func TestNewInvalid(t *testing.T) {
	_, err := New(decimal.Zero, []string{"BTC"})
	assert.ErrorIs(t, err, ErrMinimumDepositInvalid)

	_, err = New(decimal.NewFromInt(1), []string{" "})
	assert.ErrorIs(t, err, ErrCurrenciesEmpty)
}
