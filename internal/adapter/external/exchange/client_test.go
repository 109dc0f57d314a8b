package exchange_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/adapter/external/exchange"
	"invoicing/internal/apperr"
	"invoicing/internal/platform/httpclient"
)

type calls struct {
	mu      sync.Mutex
	results []string
}

func (c *calls) RecordExternalCall(_ context.Context, service, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, service+":"+result)
}

func newClient(t *testing.T, h http.HandlerFunc) (*exchange.Client, *calls, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	rec := &calls{}
	hc := httpclient.New(httpclient.WithRetries(1, time.Millisecond))
	return exchange.New(srv.URL+"/", hc, rec), rec, srv.URL
}

func TestRate(t *testing.T) {
	c, rec, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates/EUR", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","currency":"EUR","rate":0.92}`))
	})

	rate, err := c.Rate(context.Background(), "eur")
	require.NoError(t, err)
	assert.Equal(t, 0.92, rate)
	assert.Equal(t, []string{"exchange-rates:ok"}, rec.results)
}

func TestRateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad payload", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"rate":`)) }},
		{"zero rate", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"rate":0}`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, base := newClient(t, tt.handler)

			_, err := c.Rate(context.Background(), "EUR")
			var ee *apperr.ExternalServiceError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, exchange.ServiceName, ee.ServiceName())
			assert.Equal(t, base+"/rates/EUR", ee.Endpoint())
			assert.Equal(t, 502, ee.HTTPStatus())
			assert.Equal(t, []string{"exchange-rates:error"}, rec.results)
		})
	}
}

type refusingTransport struct {
	mu       sync.Mutex
	attempts int
}

func (rt *refusingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.attempts++
	return nil, fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)
}

func TestRateUnreachable(t *testing.T) {
	rt := &refusingTransport{}
	hc := httpclient.New(httpclient.WithTransport(rt), httpclient.WithRetries(1, time.Millisecond))
	rec := &calls{}
	c := exchange.New("http://rates.internal", hc, rec)

	_, err := c.Rate(context.Background(), "EUR")

	var ee *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "http://rates.internal/rates/EUR", ee.Endpoint())
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 2, rt.attempts)
	assert.Equal(t, []string{"exchange-rates:error"}, rec.results)
}
