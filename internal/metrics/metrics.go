package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/loggo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/SigNoz/ecommerce-go-storefront/pkg/config"
)

var logger = loggo.GetLogger("storefront.metrics")

// AppMetrics holds all application metrics. A nil *AppMetrics is valid and
// records nothing.
type AppMetrics struct {
	// Storefront client
	APIRequestsTotal      metric.Int64Counter
	APIRequestErrors      metric.Int64Counter
	APIRequestDuration    metric.Float64Histogram
	StaleResponses        metric.Int64Counter
	CheckoutTransitions   metric.Int64Counter
	PaymentAuthorizations metric.Int64Counter
	OrdersCreated         metric.Int64Counter

	// Mock API server
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	CartItemsCount      metric.Int64Gauge
	RevenueTotal        metric.Float64Counter

	// Service name for adding to all metrics
	serviceName string
}

// InitMetrics initializes OpenTelemetry metrics. The OTLP exporter is only
// attached when cfg.OTELMetricsEnabled is set.
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	// Explicit attributes take precedence over environment variables.
	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.OTELMetricsEnabled {
		// WithEndpoint expects host:port without a scheme.
		exporterOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
		}
		if cfg.OTELExporterOTLPHeaders != "" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
		}
		if cfg.OTELExporterOTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)))
		logger.Infof("exporting metrics every 10s to %s/v1/metrics", cfg.OTELExporterOTLPEndpoint)
	} else {
		logger.Debugf("metrics export disabled")
	}

	meterProvider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := newAppMetrics(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// NewNoop returns metrics backed by a no-op meter.
func NewNoop() *AppMetrics {
	m, err := newAppMetrics(noop.NewMeterProvider().Meter("storefront"), "storefront")
	if err != nil {
		// The no-op meter never fails to create instruments.
		panic(err)
	}
	return m
}

func newAppMetrics(meter metric.Meter, serviceName string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName}
	var err error

	if m.APIRequestsTotal, err = meter.Int64Counter(
		"storefront.api.request.count",
		metric.WithDescription("Total number of outbound API requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create api requests counter: %w", err)
	}
	if m.APIRequestErrors, err = meter.Int64Counter(
		"storefront.api.request.error.count",
		metric.WithDescription("Total number of failed outbound API requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create api errors counter: %w", err)
	}
	if m.APIRequestDuration, err = meter.Float64Histogram(
		"storefront.api.request.duration",
		metric.WithDescription("Outbound API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create api duration histogram: %w", err)
	}
	if m.StaleResponses, err = meter.Int64Counter(
		"storefront.store.stale_responses",
		metric.WithDescription("Responses discarded because a newer request of the same kind was issued"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stale responses counter: %w", err)
	}
	if m.CheckoutTransitions, err = meter.Int64Counter(
		"storefront.checkout.transitions",
		metric.WithDescription("Checkout wizard step transitions"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create checkout transitions counter: %w", err)
	}
	if m.PaymentAuthorizations, err = meter.Int64Counter(
		"storefront.payment.authorizations",
		metric.WithDescription("Card payment authorization attempts"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create payment authorizations counter: %w", err)
	}
	if m.OrdersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of items in user carts"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}
	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue generated"),
		metric.WithUnit("USD"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}
	return m, nil
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordAPIRequest records one outbound API call. status is 0 when no
// response was received.
func (m *AppMetrics) RecordAPIRequest(ctx context.Context, method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	})
	m.APIRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if status == 0 || status >= 400 {
		m.APIRequestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.APIRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordStale records a discarded out-of-order response.
func (m *AppMetrics) RecordStale(ctx context.Context, store, kind string) {
	if m == nil {
		return
	}
	m.StaleResponses.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("store", store),
		attribute.String("kind", kind),
	})...))
}

// RecordTransition records a checkout step change.
func (m *AppMetrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.CheckoutTransitions.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("from", from),
		attribute.String("to", to),
	})...))
}

// RecordAuthorization records a card authorization attempt and its outcome.
func (m *AppMetrics) RecordAuthorization(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.PaymentAuthorizations.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("outcome", outcome),
	})...))
}

// RecordOrderCreated records a placed order.
func (m *AppMetrics) RecordOrderCreated(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	m.OrdersCreated.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("payment_method", paymentMethod),
	})...))
}

// RecordHTTPRequest records one request served by the mock API.
func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	attrs := m.WithServiceName([]attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	})
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if status >= 400 {
		m.HTTPRequestsErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.HTTPRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
