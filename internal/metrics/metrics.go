// Package metrics collects and exposes Prometheus metrics
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records Share client and glucose metrics. It satisfies
// dexcom.Recorder.
type Collector struct {
	handshakes    *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	retries       prometheus.Counter
	fetchLatency  prometheus.Histogram
	lastGlucose   prometheus.Gauge
	lastReadingTS prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glucoshare_handshakes_total",
			Help: "Share session handshakes by result",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glucoshare_fetch_total",
			Help: "Glucose requests by result",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glucoshare_session_retries_total",
			Help: "Glucose requests repeated after the session was rejected",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "glucoshare_fetch_latency_seconds",
			Help:    "Glucose request latency including re-authentication",
			Buckets: prometheus.DefBuckets,
		}),
		lastGlucose: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glucoshare_last_glucose_mgdl",
			Help: "Most recent glucose value in mg/dL",
		}),
		lastReadingTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glucoshare_last_reading_timestamp_seconds",
			Help: "Unix time of the most recent glucose reading",
		}),
	}

	reg.MustRegister(
		c.handshakes,
		c.fetches,
		c.retries,
		c.fetchLatency,
		c.lastGlucose,
		c.lastReadingTS,
	)

	return c
}

// RecordHandshake counts a handshake outcome
func (c *Collector) RecordHandshake(result string) {
	c.handshakes.WithLabelValues(result).Inc()
}

// RecordFetch counts a glucose request and observes its latency
func (c *Collector) RecordFetch(result string, duration time.Duration) {
	c.fetches.WithLabelValues(result).Inc()
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordSessionRetry counts a re-authentication after a rejected session
func (c *Collector) RecordSessionRetry() {
	c.retries.Inc()
}

// RecordReading sets the latest glucose gauges
func (c *Collector) RecordReading(mgdl float64, at time.Time) {
	c.lastGlucose.Set(mgdl)
	c.lastReadingTS.Set(float64(at.Unix()))
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
