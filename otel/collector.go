// Package otel provides OpenTelemetry integration for scintilla cache metrics.
//
// This package implements the scintilla.MetricsCollector interface using
// OpenTelemetry, enabling percentile-aware observability (p50, p95, p99)
// with any OTEL-compatible backend (Prometheus, Jaeger, DataDog, Grafana).
//
// # Usage
//
//	import (
//	    "github.com/vektra-labs/scintilla"
//	    scintillaotel "github.com/vektra-labs/scintilla/otel"
//	    "go.opentelemetry.io/otel/exporters/prometheus"
//	    "go.opentelemetry.io/otel/sdk/metric"
//	)
//
//	exporter, _ := prometheus.New()
//	provider := metric.NewMeterProvider(metric.WithReader(exporter))
//
//	collector, _ := scintillaotel.NewOTelMetricsCollector(provider)
//
//	cfg := scintilla.DefaultConfig[string, string]()
//	cfg.MetricsCollector = collector
//	cache, _ := scintilla.New[string, string](cfg)
//
// # Metrics Exposed
//
//   - scintilla_get_latency_ns, scintilla_put_latency_ns, scintilla_delete_latency_ns: histograms
//   - scintilla_get_hits_total, scintilla_get_misses_total: counters
//   - scintilla_evictions_total, scintilla_expirations_total, scintilla_rejections_total: counters
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0
package otel

import (
	"context"
	"errors"

	"github.com/vektra-labs/scintilla"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector implements scintilla.MetricsCollector using
// OpenTelemetry. Safe for concurrent use; the underlying OTEL instruments
// are themselves thread-safe.
type OTelMetricsCollector struct {
	getLatency    metric.Int64Histogram
	putLatency    metric.Int64Histogram
	deleteLatency metric.Int64Histogram
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	evictions     metric.Int64Counter
	expirations   metric.Int64Counter
	rejections    metric.Int64Counter
}

// Options configures an OTelMetricsCollector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/vektra-labs/scintilla"
	MeterName string
}

// Option is a functional option for configuring OTelMetricsCollector.
type Option func(*Options)

// WithMeterName sets a custom meter name, useful when distinguishing
// metrics from multiple cache instances.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewOTelMetricsCollector builds a collector bound to provider. provider
// must not be nil.
func NewOTelMetricsCollector(provider metric.MeterProvider, opts ...Option) (*OTelMetricsCollector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/vektra-labs/scintilla"}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	collector := &OTelMetricsCollector{}

	var err error
	collector.getLatency, err = meter.Int64Histogram(
		"scintilla_get_latency_ns",
		metric.WithDescription("Latency of Get operations in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	collector.putLatency, err = meter.Int64Histogram(
		"scintilla_put_latency_ns",
		metric.WithDescription("Latency of Put operations in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	collector.deleteLatency, err = meter.Int64Histogram(
		"scintilla_delete_latency_ns",
		metric.WithDescription("Latency of Delete operations in nanoseconds"),
		metric.WithUnit("ns"),
	)
	if err != nil {
		return nil, err
	}

	collector.hits, err = meter.Int64Counter(
		"scintilla_get_hits_total",
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	collector.misses, err = meter.Int64Counter(
		"scintilla_get_misses_total",
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	collector.evictions, err = meter.Int64Counter(
		"scintilla_evictions_total",
		metric.WithDescription("Total number of evictions"),
	)
	if err != nil {
		return nil, err
	}

	collector.expirations, err = meter.Int64Counter(
		"scintilla_expirations_total",
		metric.WithDescription("Total number of TTL-based expirations"),
	)
	if err != nil {
		return nil, err
	}

	collector.rejections, err = meter.Int64Counter(
		"scintilla_rejections_total",
		metric.WithDescription("Total number of admission rejections"),
	)
	if err != nil {
		return nil, err
	}

	return collector, nil
}

// RecordGet records a Get operation's latency and hit/miss outcome.
func (c *OTelMetricsCollector) RecordGet(latencyNs int64, hit bool) {
	ctx := context.Background()
	c.getLatency.Record(ctx, latencyNs)
	if hit {
		c.hits.Add(ctx, 1)
	} else {
		c.misses.Add(ctx, 1)
	}
}

// RecordPut records a Put operation's latency.
func (c *OTelMetricsCollector) RecordPut(latencyNs int64) {
	c.putLatency.Record(context.Background(), latencyNs)
}

// RecordDelete records a Delete operation's latency.
func (c *OTelMetricsCollector) RecordDelete(latencyNs int64) {
	c.deleteLatency.Record(context.Background(), latencyNs)
}

// RecordEviction increments the evictions counter.
func (c *OTelMetricsCollector) RecordEviction() {
	c.evictions.Add(context.Background(), 1)
}

// RecordExpiration increments the expirations counter.
func (c *OTelMetricsCollector) RecordExpiration() {
	c.expirations.Add(context.Background(), 1)
}

// RecordRejection increments the admission-rejection counter.
func (c *OTelMetricsCollector) RecordRejection() {
	c.rejections.Add(context.Background(), 1)
}

var _ scintilla.MetricsCollector = (*OTelMetricsCollector)(nil)
