package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application. A disabled app is safe to use;
// every recorder turns into a no-op.
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return Disabled(), nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// Disabled returns an app that records nothing
func Disabled() *NewRelicApp {
	return &NewRelicApp{nil, false}
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if nr == nil || !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// RecordMatchingLatency records nearby-driver query latency
func (nr *NewRelicApp) RecordMatchingLatency(latencyMs float64, candidates int) {
	nr.RecordCustomMetric("custom/matching/latency_ms", latencyMs)
	nr.RecordCustomMetric("custom/matching/candidates", float64(candidates))
}

// RecordLocationUpdate records a position push for the given key-space
func (nr *NewRelicApp) RecordLocationUpdate(role string) {
	nr.RecordCustomMetric(fmt.Sprintf("custom/location/update/%s", role), 1)
}

// RecordBookingCreated records booking creation, rebooks included
func (nr *NewRelicApp) RecordBookingCreated(rebooked bool) {
	nr.RecordCustomEvent("BookingCreated", map[string]interface{}{
		"rebooked":  rebooked,
		"timestamp": time.Now().Unix(),
	})
}

// RecordBookingTransition records a status change and the size of any cascade
func (nr *NewRelicApp) RecordBookingTransition(bookingID, to string, cascaded int64) {
	nr.RecordCustomEvent("BookingTransition", map[string]interface{}{
		"booking_id": bookingID,
		"to":         to,
		"cascaded":   cascaded,
	})
	if cascaded > 0 {
		nr.RecordCustomMetric("custom/booking/cascade_cancelled", float64(cascaded))
	}
}

// RecordRedisPoolStats records Redis pool statistics
func (nr *NewRelicApp) RecordRedisPoolStats(stats map[string]interface{}) {
	if hits, ok := stats["hits"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_hits", float64(hits))
	}
	if misses, ok := stats["misses"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/cache_misses", float64(misses))
	}
	if timeouts, ok := stats["timeouts"].(uint32); ok {
		nr.RecordCustomMetric("custom/redis/timeouts", float64(timeouts))
	}
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr != nil && nr.enabled
}
