package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, time.Hour, cfg.DepositTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CodeSweepInterval)
	assert.Equal(t, []string{"BTC", "ETH", "USDT"}, cfg.Currencies())

	minDep, err := cfg.MinDeposit()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(minDep))
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("MIN_DEPOSIT_AMOUNT", "25.5")
	t.Setenv("SUPPORTED_CURRENCIES", "btc, sol,BTC,")
	t.Setenv("DEPOSIT_TIMEOUT", "30m")
	t.Setenv("MANUAL_WALLET_ADDRESSES", "btc=bc1qexample,ETH=0xabc")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "SOL"}, cfg.Currencies())
	assert.Equal(t, 30*time.Minute, cfg.DepositTimeout)

	minDep, err := cfg.MinDeposit()
	require.NoError(t, err)
	assert.Equal(t, "25.5", minDep.String())

	addrs, err := cfg.WalletAddresses()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "bc1qexample", "ETH": "0xabc"}, addrs)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		JWTSecretKey:          "",
		MinDepositAmount:      "-1",
		ManualWalletAddresses: []string{"BTC"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJWTSecretEmpty)
	assert.ErrorIs(t, err, ErrMinDepositInvalid)
	assert.ErrorIs(t, err, ErrCurrenciesEmpty)
	assert.ErrorIs(t, err, ErrWalletAddressMalformed)
}
