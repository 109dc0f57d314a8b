// Package exchange fetches currency conversion rates from the rates
// service. Every failure is reported as an ExternalService error.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"invoicing/internal/apperr"
	"invoicing/internal/platform/httpclient"
)

// ServiceName identifies the rates service in errors and metrics.
const ServiceName = "exchange-rates"

const maxBody = 64 << 10

// CallRecorder records the outcome of outbound calls.
type CallRecorder interface {
	RecordExternalCall(ctx context.Context, service, result string)
}

// Doer sends HTTP requests; *httpclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

var _ Doer = (*httpclient.Client)(nil)

// Client calls GET {base}/rates/{currency}.
type Client struct {
	base    string
	http    Doer
	metrics CallRecorder
}

// New returns a client for the service at baseURL. metrics may be nil.
func New(baseURL string, doer Doer, metrics CallRecorder) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: doer, metrics: metrics}
}

type rateResponse struct {
	Base     string  `json:"base"`
	Currency string  `json:"currency"`
	Rate     float64 `json:"rate"`
}

// Rate returns how many units of currency one unit of the base currency buys.
func (c *Client) Rate(ctx context.Context, currency string) (float64, error) {
	endpoint := c.base + "/rates/" + url.PathEscape(strings.ToUpper(currency))

	rate, err := c.fetch(ctx, endpoint, currency)
	result := "ok"
	if err != nil {
		result = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordExternalCall(ctx, ServiceName, result)
	}
	return rate, err
}

func (c *Client) fetch(ctx context.Context, endpoint, currency string) (float64, error) {
	fail := func(cause error, internal string) error {
		return apperr.NewExternalService(ServiceName, endpoint,
			apperr.WithCause(cause),
			apperr.WithInternalMessage(internal),
			apperr.WithData(map[string]any{"currency": currency}),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fail(err, "build rates request: "+err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return 0, fail(err, "rates request failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		return 0, fail(err, fmt.Sprintf("rates service answered %d for %s", resp.StatusCode, currency))
	}

	var body rateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return 0, fail(err, "decode rates response: "+err.Error())
	}
	if body.Rate <= 0 {
		err := fmt.Errorf("non-positive rate %v", body.Rate)
		return 0, fail(err, fmt.Sprintf("rates service returned invalid rate %v for %s", body.Rate, currency))
	}
	return body.Rate, nil
}
