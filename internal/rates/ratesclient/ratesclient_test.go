package ratesclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andymarkow/botmarket/internal/httpclient"
	"github.com/andymarkow/botmarket/internal/rates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RatesClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(WithClient(httpclient.New(httpclient.WithBaseURL(srv.URL), httpclient.WithRetryCount(0))))
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rates/ETH":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"currency":"ETH","rate":"3412.55"}`))
		case "/rates/BUSY":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rate, err := c.Quote(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "3412.55", rate.String())

	_, err = c.Quote(context.Background(), "DOGE")
	assert.ErrorIs(t, err, rates.ErrCurrencyUnsupported)

	_, err = c.Quote(context.Background(), "BUSY")
	assert.ErrorIs(t, err, ErrTooManyRequests)
}

func TestQuoteRejectsNonPositiveRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currency":"BTC","rate":"0"}`))
	})

	_, err := c.Quote(context.Background(), "BTC")
	assert.ErrorIs(t, err, rates.ErrRateInvalid)
}
