// Package metrics provides a lightweight, Prometheus-compatible metrics
// collector. It outputs text/plain in Prometheus exposition format without
// pulling in the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide metrics collector.
var Collector = NewCollector()

// MetricsCollector aggregates counters, gauges, and histograms.
type MetricsCollector struct {
	counters   sync.Map // name -> *Counter
	gauges     sync.Map // name -> *Gauge
	histograms sync.Map // name -> *Histogram
	startTime  time.Time
}

// NewCollector creates a new collector.
func NewCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of values.
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Counter returns or creates a counter with the given name.
func (c *MetricsCollector) Counter(name, help string) *Counter {
	if v, ok := c.counters.Load(name); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help}
	actual, _ := c.counters.LoadOrStore(name, ctr)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge with the given name.
func (c *MetricsCollector) Gauge(name, help string) *Gauge {
	if v, ok := c.gauges.Load(name); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help}
	actual, _ := c.gauges.LoadOrStore(name, g)
	return actual.(*Gauge)
}

// Histogram returns or creates a histogram with the given name.
func (c *MetricsCollector) Histogram(name, help string, buckets []float64) *Histogram {
	if v, ok := c.histograms.Load(name); ok {
		return v.(*Histogram)
	}
	sort.Float64s(buckets)
	hb := make([]histBucket, len(buckets))
	for i, b := range buckets {
		hb[i] = histBucket{le: b}
	}
	h := &Histogram{name: name, help: help, buckets: hb}
	actual, _ := c.histograms.LoadOrStore(name, h)
	return actual.(*Histogram)
}

// Handler returns an http.HandlerFunc that renders metrics in Prometheus
// text format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder

		fmt.Fprintf(&sb, "# HELP seekbot_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE seekbot_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "seekbot_uptime_seconds %d\n\n", int64(c.Uptime().Seconds()))

		c.counters.Range(func(_, value any) bool {
			ctr := value.(*Counter)
			fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
			fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
			fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
			return true
		})

		c.gauges.Range(func(_, value any) bool {
			g := value.(*Gauge)
			fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
			fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
			fmt.Fprintf(&sb, "%s %d\n", g.name, g.Value())
			return true
		})

		c.histograms.Range(func(_, value any) bool {
			h := value.(*Histogram)
			h.mu.Lock()
			defer h.mu.Unlock()

			fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
			fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
			for _, b := range h.buckets {
				le := fmt.Sprintf("%g", b.le)
				if math.IsInf(b.le, 1) {
					le = "+Inf"
				}
				fmt.Fprintf(&sb, "%s_bucket{le=%q} %d\n", h.name, le, b.count)
			}
			fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count)
			fmt.Fprintf(&sb, "%s_sum %f\n", h.name, h.sum)
			return true
		})

		fmt.Fprint(w, sb.String())
	}
}

// Pre-defined metrics used across the application.
var (
	TurnsTotal     = Collector.Counter("seekbot_turns_total", "Total conversational turns processed")
	CommandsTotal  = Collector.Counter("seekbot_commands_total", "Total command turns processed")
	ActionErrors   = Collector.Counter("seekbot_action_errors_total", "Total action execution errors")
	ActionTimeouts = Collector.Counter("seekbot_action_timeouts_total", "Total actions abandoned at the deadline")
	FallbacksTotal = Collector.Counter("seekbot_fallback_responses_total", "Total turns answered with the fallback message")

	DispatchLatency = Collector.Histogram("seekbot_dispatch_seconds", "Action dispatch latency in seconds",
		[]float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, math.Inf(1)})
)
