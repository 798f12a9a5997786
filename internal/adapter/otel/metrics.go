package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskforge"

// Metrics holds all TaskForge metric instruments.
type Metrics struct {
	SettingsSaves   metric.Int64Counter
	WebhookCreates  metric.Int64Counter
	WebhookDeletes  metric.Int64Counter
	StatusFetches   metric.Int64Counter
	CacheHits       metric.Int64Counter
	CacheMisses     metric.Int64Counter
	UpstreamLatency metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SettingsSaves, err = meter.Int64Counter("taskforge.settings.saves",
		metric.WithDescription("Number of settings save requests"))
	if err != nil {
		return nil, err
	}

	m.WebhookCreates, err = meter.Int64Counter("taskforge.webhook.creates",
		metric.WithDescription("Number of webhook create requests"))
	if err != nil {
		return nil, err
	}

	m.WebhookDeletes, err = meter.Int64Counter("taskforge.webhook.deletes",
		metric.WithDescription("Number of webhook delete requests"))
	if err != nil {
		return nil, err
	}

	m.StatusFetches, err = meter.Int64Counter("taskforge.webhook.status_fetches",
		metric.WithDescription("Number of webhook status fetches"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("taskforge.cache.hits",
		metric.WithDescription("Cache hits across tiers"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("taskforge.cache.misses",
		metric.WithDescription("Cache misses across tiers"))
	if err != nil {
		return nil, err
	}

	m.UpstreamLatency, err = meter.Float64Histogram("taskforge.upstream.duration_seconds",
		metric.WithDescription("Upstream Asana API call duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
