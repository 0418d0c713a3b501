// Package ratesclient fetches exchange rates from a remote rates service.
package ratesclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/andymarkow/botmarket/internal/domain/deposits"
	"github.com/andymarkow/botmarket/internal/httpclient"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/rates"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

var (
	ErrTooManyRequests    = errors.New("too many requests")
	ErrSomethingWentWrong = errors.New("something went wrong")
)

var _ rates.Provider = (*RatesClient)(nil)

type RatesClient struct {
	log    *slog.Logger
	client *resty.Client
}

func New(opts ...Option) *RatesClient {
	c := &RatesClient{
		log:    logger.Nop(),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With(slog.String("module", "ratesclient"))

	return c
}

type Option func(c *RatesClient)

func WithLogger(logger *slog.Logger) Option {
	return func(c *RatesClient) {
		c.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(c *RatesClient) {
		c.client = client
	}
}

// Quote calls GET /rates/{currency}.
func (c *RatesClient) Quote(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = deposits.NormalizeCurrency(currency)
	result := new(RateModel)

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetPathParams(map[string]string{
			"currency": currency,
		}).
		Get("/rates/{currency}")
	if err != nil {
		return decimal.Zero, fmt.Errorf("client.R: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return decimal.Zero, fmt.Errorf("%w: %s", rates.ErrCurrencyUnsupported, currency)
	case http.StatusTooManyRequests:
		return decimal.Zero, ErrTooManyRequests
	default:
		c.log.Error("unexpected rates response",
			slog.String("currency", currency), slog.Int("status", resp.StatusCode()))

		return decimal.Zero, ErrSomethingWentWrong
	}

	if !result.Rate.IsPositive() {
		return decimal.Zero, rates.ErrRateInvalid
	}

	return result.Rate, nil
}
