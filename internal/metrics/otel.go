package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const meterName = "scoreboard-feed-service"

var (
	promReaderFactory = prometheusComponents
	otlpReaderFactory = buildOTLPReader
	instrumentFactory = newOtelInstruments
)

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	Port         string
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and optional OTLP exporter.
// It returns a Recorder, the Prometheus HTTP handler, and a shutdown function.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = meterName
	}

	promReader, promHandler, err := promReaderFactory()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if cfg.OtlpEndpoint != "" {
		otlpReader, err := otlpReaderFactory(ctx, cfg.OtlpEndpoint, cfg.OtlpInsecure)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(otlpReader))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)

	otelInst, err := instrumentFactory(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	rec := newRecorder(otelInst)
	shutdown := func(c context.Context) error {
		return provider.Shutdown(c)
	}

	return rec, promHandler, shutdown, nil
}

func buildOTLPReader(ctx context.Context, endpoint string, insecure bool) (sdkmetric.Reader, error) {
	otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
	}
	otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second)), nil
}

type otelInstruments struct {
	ctx              context.Context
	meter            metric.Meter
	requests         metric.Int64Counter
	requestLatencyMs metric.Float64Histogram
	fetches          metric.Int64Counter
	fetchErrors      metric.Int64Counter
	fetchLatencyMs   metric.Float64Histogram
	rateLimitHits    metric.Int64Counter
	retryAfterMs     metric.Float64Histogram
	pollerCycles     metric.Int64Counter
	pollerErrors     metric.Int64Counter
	pollerLatencyMs  metric.Float64Histogram
	reloads          metric.Int64Counter
	parseErrors      metric.Int64Counter
	broadcasts       metric.Int64Counter
	broadcastGames   metric.Int64Histogram
	subscribers      metric.Int64UpDownCounter
	sinkErrors       metric.Int64Counter
	configReloads    metric.Int64Counter
}

func prometheusComponents() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	return promExp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func newOtelInstruments(provider metric.MeterProvider) (*otelInstruments, error) {
	meter := provider.Meter(meterName)
	o := &otelInstruments{ctx: context.Background(), meter: meter}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
	}{
		{&o.requests, "http_requests_total"},
		{&o.fetches, "feed_fetches_total"},
		{&o.fetchErrors, "feed_fetch_errors_total"},
		{&o.rateLimitHits, "feed_rate_limit_hits_total"},
		{&o.pollerCycles, "poller_cycles_total"},
		{&o.pollerErrors, "poller_errors_total"},
		{&o.reloads, "feed_reloads_total"},
		{&o.parseErrors, "feed_parse_errors_total"},
		{&o.broadcasts, "broadcasts_total"},
		{&o.sinkErrors, "sink_errors_total"},
		{&o.configReloads, "config_reloads_total"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
	}{
		{&o.requestLatencyMs, "http_request_duration_ms"},
		{&o.fetchLatencyMs, "feed_fetch_duration_ms"},
		{&o.retryAfterMs, "feed_retry_after_ms"},
		{&o.pollerLatencyMs, "poller_cycle_duration_ms"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name); err != nil {
			return nil, err
		}
	}

	if o.broadcastGames, err = meter.Int64Histogram("broadcast_games"); err != nil {
		return nil, err
	}
	if o.subscribers, err = meter.Int64UpDownCounter("subscribers"); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *otelInstruments) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
		attribute.Int(AttrStatus, status),
	}
	o.recordCounter(o.requests, 1, attrs...)
	o.recordHistogram(o.requestLatencyMs, float64(duration.Milliseconds()), attrs...)
}

func (o *otelInstruments) recordFetch(feed string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrFeed, feed)}
	o.recordCounter(o.fetches, 1, attrs...)
	o.recordHistogram(o.fetchLatencyMs, float64(duration.Milliseconds()), attrs...)
	if err != nil {
		o.recordCounter(o.fetchErrors, 1, attrs...)
	}
}

func (o *otelInstruments) recordRateLimit(feed string, retryAfter time.Duration) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrFeed, feed)}
	o.recordCounter(o.rateLimitHits, 1, attrs...)
	if retryAfter > 0 {
		o.recordHistogram(o.retryAfterMs, float64(retryAfter.Milliseconds()), attrs...)
	}
}

func (o *otelInstruments) recordPoller(feed string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrFeed, feed)}
	o.recordCounter(o.pollerCycles, 1, attrs...)
	o.recordHistogram(o.pollerLatencyMs, float64(duration.Milliseconds()), attrs...)
	if err != nil {
		o.recordCounter(o.pollerErrors, 1, attrs...)
	}
}

func (o *otelInstruments) recordReload(feed string, err error) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrFeed, feed)}
	o.recordCounter(o.reloads, 1, attrs...)
	if err != nil {
		o.recordCounter(o.parseErrors, 1, attrs...)
	}
}

func (o *otelInstruments) recordBroadcast(games int) {
	if o == nil {
		return
	}
	o.recordCounter(o.broadcasts, 1)
	o.broadcastGames.Record(o.ctx, int64(games))
}

func (o *otelInstruments) recordSubscribers(delta int) {
	if o == nil {
		return
	}
	o.subscribers.Add(o.ctx, int64(delta))
}

func (o *otelInstruments) recordSinkError(sink string) {
	if o == nil {
		return
	}
	o.recordCounter(o.sinkErrors, 1, attribute.String(AttrSink, sink))
}

func (o *otelInstruments) recordConfigReload(err error) {
	if o == nil {
		return
	}
	result := "applied"
	if err != nil {
		result = "rejected"
	}
	o.recordCounter(o.configReloads, 1, attribute.String(AttrResult, result))
}

func (o *otelInstruments) recordCounter(counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	counter.Add(o.ctx, value, metric.WithAttributes(attrs...))
}

func (o *otelInstruments) recordHistogram(hist metric.Float64Histogram, value float64, attrs ...attribute.KeyValue) {
	if o == nil {
		return
	}
	hist.Record(o.ctx, value, metric.WithAttributes(attrs...))
}
