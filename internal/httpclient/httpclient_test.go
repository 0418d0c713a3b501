package httpclient

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("boom")))
	assert.True(t, isRetryableError(syscall.ECONNREFUSED))
	assert.True(t, isRetryableError(&net.DNSError{Err: "no such host", Name: "rates.invalid"}))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(
		WithBaseURL(srv.URL),
		WithRetryCount(3),
		WithRetryWaitTime(time.Millisecond),
		WithRetryMaxWaitTime(5*time.Millisecond),
		// A negative retry-after delay is clamped by resty to the max wait time.
		WithRetryAfterInterval(0),
	)

	resp, err := client.R().Get("/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(3), calls.Load())
}
