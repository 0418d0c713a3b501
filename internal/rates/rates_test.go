package rates

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecision(t *testing.T) {
	assert.Equal(t, int32(8), Precision("btc"))
	assert.Equal(t, int32(8), Precision("SOL"))
	assert.Equal(t, int32(2), Precision("USDT"))
	assert.Equal(t, int32(2), Precision("unknown"))
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		usd      string
		rate     string
		currency string
		want     string
	}{
		{name: "btc rounds to 8 places", usd: "100", rate: "65000", currency: "BTC", want: "0.00153846"},
		{name: "eth", usd: "50", rate: "3500", currency: "eth", want: "0.01428571"},
		{name: "stablecoin rounds to 2 places", usd: "75.555", rate: "1", currency: "USDT", want: "75.56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(decimal.RequireFromString(tt.usd), decimal.RequireFromString(tt.rate), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := Convert(decimal.NewFromInt(10), decimal.Zero, "BTC")
	assert.ErrorIs(t, err, ErrRateInvalid)
}

func TestStaticLock(t *testing.T) {
	p := NewStatic(nil)

	q, err := Lock(context.Background(), p, decimal.NewFromInt(130), "btc")
	require.NoError(t, err)
	assert.Equal(t, "BTC", q.Currency)
	assert.Equal(t, "65000", q.Rate.String())
	assert.Equal(t, "0.002", q.CryptoAmount.String())

	_, err = p.Quote(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrCurrencyUnsupported)
}
