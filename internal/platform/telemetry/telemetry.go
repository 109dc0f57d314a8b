package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider owns the meter provider and the registry scraped on /metrics.
type Provider struct {
	meters   *sdkmetric.MeterProvider
	registry *promclient.Registry
	name     string
}

// Setup initializes OpenTelemetry with a Prometheus exporter backed by a
// private registry, and installs the provider globally.
func Setup(ctx context.Context, serviceName string) (*Provider, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return &Provider{meters: provider, registry: registry, name: serviceName}, nil
}

// Shutdown flushes and releases the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meters.Shutdown(ctx)
}

// Meter returns the service meter.
func (p *Provider) Meter() otelmetric.Meter {
	return p.meters.Meter(p.name)
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Metrics holds all OTel instruments of the service.
type Metrics struct {
	httpRequestsTotal   otelmetric.Int64Counter
	httpRequestDuration otelmetric.Float64Histogram
	errorsTotal         otelmetric.Int64Counter
	jobRunsTotal        otelmetric.Int64Counter
	externalCallsTotal  otelmetric.Int64Counter
}

// NewMetrics creates the service instruments on meter.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	latencyBuckets := otelmetric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
	)

	if m.httpRequestsTotal, err = meter.Int64Counter("invoicing_http_requests_total",
		otelmetric.WithDescription("Total HTTP requests")); err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}
	if m.httpRequestDuration, err = meter.Float64Histogram("invoicing_http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request duration"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}
	if m.errorsTotal, err = meter.Int64Counter("invoicing_errors_total",
		otelmetric.WithDescription("Failed requests by error code, kind and severity")); err != nil {
		return nil, fmt.Errorf("creating errors_total: %w", err)
	}
	if m.jobRunsTotal, err = meter.Int64Counter("invoicing_job_runs_total",
		otelmetric.WithDescription("Background job runs by result")); err != nil {
		return nil, fmt.Errorf("creating job_runs_total: %w", err)
	}
	if m.externalCallsTotal, err = meter.Int64Counter("invoicing_external_calls_total",
		otelmetric.WithDescription("Calls to external services by result")); err != nil {
		return nil, fmt.Errorf("creating external_calls_total: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric. route is the matched
// route template, not the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, durationSec float64) {
	attrs := otelmetric.WithAttributes(
		methodAttr(method),
		routeAttr(route),
		statusAttr(status),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, durationSec, attrs)
}

// RecordError counts one failed request.
func (m *Metrics) RecordError(ctx context.Context, code, kind, severity string) {
	m.errorsTotal.Add(ctx, 1, otelmetric.WithAttributes(
		codeAttr(code),
		kindAttr(kind),
		severityAttr(severity),
	))
}

// RecordJobRun counts one background job execution.
func (m *Metrics) RecordJobRun(ctx context.Context, job, result string) {
	m.jobRunsTotal.Add(ctx, 1, otelmetric.WithAttributes(jobAttr(job), resultAttr(result)))
}

// RecordExternalCall counts one call to a remote dependency.
func (m *Metrics) RecordExternalCall(ctx context.Context, service, result string) {
	m.externalCallsTotal.Add(ctx, 1, otelmetric.WithAttributes(serviceAttr(service), resultAttr(result)))
}
