// Package otel provides OpenTelemetry integration for scintilla cache metrics.
//
// # Overview
//
// This package implements the scintilla.MetricsCollector interface using
// OpenTelemetry, exposing percentile-aware latency histograms and
// hit/miss/eviction/expiration/rejection counters to any OTEL-compatible
// backend (Prometheus, Jaeger, DataDog, Grafana).
//
// It is a separate module so the scintilla core carries no OTEL
// dependency; applications that don't configure a MetricsCollector pay
// nothing beyond the default NoOpMetricsCollector's empty method calls.
//
// # Quick Start
//
//	import (
//	    "github.com/vektra-labs/scintilla"
//	    scintillaotel "github.com/vektra-labs/scintilla/otel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, err := prometheus.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//	defer provider.Shutdown(context.Background())
//
//	collector, err := scintillaotel.NewOTelMetricsCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := scintilla.DefaultConfig[string, User]()
//	cfg.MetricsCollector = collector
//	cache, _ := scintilla.New[string, User](cfg)
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":2112", nil))
//
// # Metrics Exposed
//
// Histograms:
//   - scintilla_get_latency_ns
//   - scintilla_put_latency_ns
//   - scintilla_delete_latency_ns
//
// Counters:
//   - scintilla_get_hits_total
//   - scintilla_get_misses_total
//   - scintilla_evictions_total
//   - scintilla_expirations_total
//   - scintilla_rejections_total
//
// # Configuration
//
// Custom meter name, useful when running multiple cache instances in one
// process:
//
//	collector, err := scintillaotel.NewOTelMetricsCollector(
//	    provider,
//	    scintillaotel.WithMeterName("user_cache"),
//	)
//
// # Prometheus Queries
//
//	histogram_quantile(0.95, rate(scintilla_get_latency_ns_bucket[5m]))
//
//	rate(scintilla_get_hits_total[5m]) /
//	(rate(scintilla_get_hits_total[5m]) + rate(scintilla_get_misses_total[5m]))
//
// # Thread Safety
//
// Every method is safe for concurrent use; the underlying OTEL
// instruments are themselves lock-free.
package otel
