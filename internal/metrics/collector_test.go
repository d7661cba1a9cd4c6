package metrics

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHistogramExposesInfBucket(t *testing.T) {
	c := NewCollector()
	h := c.Histogram("test_seconds", "test latency",
		[]float64{0.1, 1, math.Inf(1)})
	h.Observe(0.5)
	h.Observe(100) // beyond every finite bucket

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`test_seconds_bucket{le="1"} 1`,
		`test_seconds_bucket{le="+Inf"} 2`,
		"test_seconds_count 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestDispatchLatencyHasInfBucket(t *testing.T) {
	// Every observation must land in some bucket, so the list has to be
	// terminated by +Inf.
	if n := len(DispatchLatency.buckets); n == 0 || !math.IsInf(DispatchLatency.buckets[n-1].le, 1) {
		t.Fatalf("dispatch latency buckets do not end in +Inf: %+v", DispatchLatency.buckets)
	}
}

func TestCounterAndGauge(t *testing.T) {
	c := NewCollector()

	ctr := c.Counter("test_total", "test counter")
	ctr.Inc()
	ctr.Add(2)
	if got := ctr.Value(); got != 3 {
		t.Errorf("counter = %d, want 3", got)
	}
	if again := c.Counter("test_total", "test counter"); again != ctr {
		t.Error("same name must return the same counter")
	}

	g := c.Gauge("test_active", "test gauge")
	g.Set(5)
	g.Dec()
	if got := g.Value(); got != 4 {
		t.Errorf("gauge = %d, want 4", got)
	}
}
