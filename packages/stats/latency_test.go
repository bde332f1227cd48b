package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// within checks a histogram value against its exact counterpart
func within(t *testing.T, want, got time.Duration) {
	t.Helper()
	assert.InDelta(t, float64(want), float64(got), float64(want)/100, "want %s, got %s", want, got)
}

func TestLatencySummary(t *testing.T) {
	l := NewLatency("health")
	for i := 1; i <= 100; i++ {
		l.Record(time.Duration(i)*time.Millisecond, i%10 == 0)
	}

	s := l.Summary()
	assert.Equal(t, "health", s.Name)
	assert.Equal(t, int64(100), s.Count)
	assert.Equal(t, 10, s.Failed)
	within(t, time.Millisecond, s.Min)
	within(t, 50500*time.Microsecond, s.Mean)
	within(t, 50*time.Millisecond, s.P50)
	within(t, 90*time.Millisecond, s.P90)
	within(t, 99*time.Millisecond, s.P99)
	within(t, 100*time.Millisecond, s.Max)
}

func TestLatencyClampsOutOfRange(t *testing.T) {
	l := NewLatency("edges")
	l.Record(0, false)
	l.Record(2*time.Minute, true)

	s := l.Summary()
	assert.Equal(t, int64(2), l.Count())
	assert.Equal(t, time.Microsecond, s.Min)
	within(t, time.Minute, s.Max)
}

func TestLatencyEmpty(t *testing.T) {
	l := NewLatency("none")
	assert.Equal(t, int64(0), l.Count())
	assert.Equal(t, time.Duration(0), l.Summary().P99)
}
