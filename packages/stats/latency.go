package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 60s, 3 significant digits
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

// Latency records the durations of one profile's transfers.
// It is not safe for concurrent use.
type Latency struct {
	name      string
	histogram *hdrhistogram.Histogram
	failed    int
}

func NewLatency(name string) *Latency {
	return &Latency{
		name:      name,
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs),
	}
}

// Record adds one transfer. Failed transfers are timed too.
func (l *Latency) Record(d time.Duration, failed bool) {
	if failed {
		l.failed++
	}
	us := min(max(d.Microseconds(), minLatencyUs), maxLatencyUs)
	_ = l.histogram.RecordValue(us)
}

func (l *Latency) Count() int64 {
	return l.histogram.TotalCount()
}

// Summary is a latency distribution. Values are accurate to the
// histogram's precision, not to the microsecond.
type Summary struct {
	Name   string
	Count  int64
	Failed int
	Min    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P90    time.Duration
	P99    time.Duration
	Max    time.Duration
}

func (l *Latency) Summary() Summary {
	h := l.histogram
	return Summary{
		Name:   l.name,
		Count:  h.TotalCount(),
		Failed: l.failed,
		Min:    time.Duration(h.Min()) * time.Microsecond,
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:    time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(h.ValueAtQuantile(90)) * time.Microsecond,
		P99:    time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		Max:    time.Duration(h.Max()) * time.Microsecond,
	}
}
