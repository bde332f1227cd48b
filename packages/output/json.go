package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	Requests []JSONRequest `json:"requests"`
	Latency  []JSONLatency `json:"latency,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
	Time     string        `json:"time"`
}

// JSONLatency is the latency of a repeated profile, in milliseconds
type JSONLatency struct {
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	Failed int     `json:"failed"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

type JSONSummary struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Duration  float64 `json:"duration"`
}

// JSONRequest is one executed request
type JSONRequest struct {
	Name         string            `json:"name,omitempty"`
	Iteration    int               `json:"iteration,omitempty"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	StatusCode   int               `json:"statusCode"`
	Status       string            `json:"status,omitempty"`
	ErrorCode    int               `json:"errorCode"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Duration     float64           `json:"duration"`
	Headers      map[string]string `json:"headers,omitempty"`
	Info         map[string]any    `json:"info,omitempty"`
	Captures     map[string]any    `json:"captures,omitempty"`
	Body         string            `json:"body,omitempty"`
}

// JSONFormatter accumulates reports and writes them on Flush
type JSONFormatter struct {
	writer   io.Writer
	showBody bool
	requests []JSONRequest
	latency  []JSONLatency
	errors   []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:   os.Stdout,
		requests: make([]JSONRequest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func JSONWithBody(show bool) JSONOption {
	return func(f *JSONFormatter) {
		f.showBody = show
	}
}

func (f *JSONFormatter) FormatReport(r *Report) {
	req := JSONRequest{
		Name:      r.Name,
		Iteration: r.Iteration,
		Method:    r.Method,
		URL:       r.URL,
		Duration:  float64(r.duration().Milliseconds()),
		Captures:  r.Captures,
	}

	if res := r.Result; res != nil {
		req.StatusCode = res.StatusCode
		req.Status = res.Status
		req.ErrorCode = int(res.ErrorCode)
		req.ErrorMessage = res.ErrorMessage
		if len(res.Headers) > 0 {
			req.Headers = res.Headers
		}
		if len(res.Info) > 0 {
			req.Info = res.Info
		}
		if f.showBody && !r.BodyWritten && len(res.Body) > 0 {
			req.Body = string(res.Body)
		}
	}

	f.requests = append(f.requests, req)
}

func (f *JSONFormatter) FormatLatency(s stats.Summary) {
	f.latency = append(f.latency, JSONLatency{
		Name:   s.Name,
		Count:  s.Count,
		Failed: s.Failed,
		Min:    ms(s.Min),
		Mean:   ms(s.Mean),
		P50:    ms(s.P50),
		P90:    ms(s.P90),
		P99:    ms(s.P99),
		Max:    ms(s.Max),
	})
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	var failed int
	var total time.Duration
	for _, r := range f.requests {
		if r.ErrorCode != 0 {
			failed++
		}
		total += time.Duration(r.Duration) * time.Millisecond
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:     len(f.requests),
			Completed: len(f.requests) - failed,
			Failed:    failed,
			Duration:  float64(total.Milliseconds()),
		},
		Requests: f.requests,
		Latency:  f.latency,
		Errors:   f.errors,
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
