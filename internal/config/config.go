package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var (
	ErrJWTSecretEmpty         = errors.New("jwt secret key is empty")
	ErrMinDepositInvalid      = errors.New("minimum deposit amount is invalid")
	ErrCurrenciesEmpty        = errors.New("supported currencies list is empty")
	ErrWalletAddressMalformed = errors.New("manual wallet address entry is malformed")
)

type Config struct {
	ServerAddr string `env:"RUN_ADDRESS" envDefault:"0.0.0.0:8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseURI string `env:"DATABASE_URI"`

	JWTSecretKey string        `env:"JWT_SECRET_KEY" envDefault:"secretkey"`
	JWTTokenTTL  time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	MinDepositAmount      string        `env:"MIN_DEPOSIT_AMOUNT" envDefault:"50.00"`
	SupportedCurrencies   []string      `env:"SUPPORTED_CURRENCIES" envDefault:"BTC,ETH,USDT" envSeparator:","`
	DepositTimeout        time.Duration `env:"DEPOSIT_TIMEOUT" envDefault:"1h"`
	DepositExpiryInterval time.Duration `env:"DEPOSIT_EXPIRY_INTERVAL" envDefault:"1m"`
	ManualWalletAddresses []string      `env:"MANUAL_WALLET_ADDRESSES" envSeparator:","`

	CodeSweepInterval time.Duration `env:"CODE_SWEEP_INTERVAL" envDefault:"10m"`

	RatesURI          string        `env:"RATES_URI"`
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPSender   string `env:"SMTP_SENDER" envDefault:"no-reply@botmarket.local"`

	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`
}

// NewConfig loads an optional .env file and parses the environment.
func NewConfig() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.JWTSecretKey == "" {
		errs = append(errs, ErrJWTSecretEmpty)
	}

	if _, err := c.MinDeposit(); err != nil {
		errs = append(errs, err)
	}

	if len(c.Currencies()) == 0 {
		errs = append(errs, ErrCurrenciesEmpty)
	}

	if _, err := c.WalletAddresses(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// MinDeposit returns MIN_DEPOSIT_AMOUNT as a positive decimal.
func (c Config) MinDeposit() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.MinDepositAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMinDepositInvalid, c.MinDepositAmount)
	}

	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMinDepositInvalid, c.MinDepositAmount)
	}

	return amount, nil
}

// Currencies returns the supported currency list upper-cased with blanks and duplicates removed.
func (c Config) Currencies() []string {
	seen := make(map[string]struct{}, len(c.SupportedCurrencies))
	out := make([]string, 0, len(c.SupportedCurrencies))

	for _, cur := range c.SupportedCurrencies {
		cur = strings.ToUpper(strings.TrimSpace(cur))
		if cur == "" {
			continue
		}

		if _, ok := seen[cur]; ok {
			continue
		}

		seen[cur] = struct{}{}
		out = append(out, cur)
	}

	return out
}

// WalletAddresses parses MANUAL_WALLET_ADDRESSES entries of the form CURRENCY=address.
func (c Config) WalletAddresses() (map[string]string, error) {
	addrs := make(map[string]string, len(c.ManualWalletAddresses))

	for _, entry := range c.ManualWalletAddresses {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		cur, addr, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(cur) == "" || strings.TrimSpace(addr) == "" {
			return nil, fmt.Errorf("%w: %q", ErrWalletAddressMalformed, entry)
		}

		addrs[strings.ToUpper(strings.TrimSpace(cur))] = strings.TrimSpace(addr)
	}

	return addrs, nil
}
