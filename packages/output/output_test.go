package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

func latencySummary() stats.Summary {
	return stats.Summary{
		Name:   "health",
		Count:  20,
		Failed: 1,
		Min:    2 * time.Millisecond,
		Mean:   5500 * time.Microsecond,
		P50:    5 * time.Millisecond,
		P90:    9 * time.Millisecond,
		P99:    12500 * time.Microsecond,
		Max:    13 * time.Millisecond,
	}
}

func TestFormatLatency(t *testing.T) {
	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
		f.FormatLatency(latencySummary())

		out := buf.String()
		assert.Contains(t, out, "health latency: 20 runs, 1 failed")
		assert.Contains(t, out, "min=2.0ms mean=5.5ms p50=5.0ms p90=9.0ms p99=12.5ms max=13.0ms")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewJSONFormatter(JSONWithWriter(&buf))
		f.FormatLatency(latencySummary())
		require.NoError(t, f.Flush())

		var out JSONOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Len(t, out.Latency, 1)
		assert.Equal(t, JSONLatency{
			Name: "health", Count: 20, Failed: 1,
			Min: 2, Mean: 5.5, P50: 5, P90: 9, P99: 12.5, Max: 13,
		}, out.Latency[0])
	})

	t.Run("tap", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewTAPFormatter(TAPWithWriter(&buf))
		f.FormatLatency(latencySummary())
		require.NoError(t, f.Flush())

		assert.Contains(t, buf.String(), "# health latency: 20 runs, 1 failed, p50=5.0ms p90=9.0ms p99=12.5ms")
	})
}

func okReport() *Report {
	return &Report{
		Name:   "get_users",
		Method: "GET",
		URL:    "http://example.com/users",
		Result: &http.Result{
			StatusCode: 200,
			Status:     "200 OK",
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(`{"id":1}`),
			Duration:   42 * time.Millisecond,
			Info:       http.Info{"http_code": 200, "url": "http://example.com/users"},
		},
		Captures: map[string]any{"id": float64(1)},
	}
}

func failedReport() *Report {
	return &Report{
		Method: "GET",
		URL:    "http://localhost:1",
		Result: &http.Result{
			ErrorCode:    http.CodeCouldntConnect,
			ErrorMessage: "Failed to connect to localhost port 1",
			Info:         http.Info{},
		},
	}
}

func TestConsoleFormatter_Success(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithBody(true))

	f.FormatReport(okReport())
	require.NoError(t, f.Flush())

	out := buf.String()
	assert.Contains(t, out, "get_users GET http://example.com/users 200 OK (42ms)")
	assert.Contains(t, out, "id = 1")
	assert.Contains(t, out, `{"id":1}`)
	assert.NotContains(t, out, "Content-Type:")
	assert.NotContains(t, out, "Requests:")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	r := okReport()
	r.BodyWritten = true
	f.FormatReport(r)

	out := buf.String()
	assert.Contains(t, out, "Content-Type: application/json")
	assert.Contains(t, out, "http_code = 200")
	assert.NotContains(t, out, `{"id":1}`)
}

func TestConsoleFormatter_FailureAndSummary(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatReport(okReport())
	f.FormatReport(failedReport())
	f.FormatError(errors.New("boom"))
	require.NoError(t, f.Flush())

	out := buf.String()
	assert.Contains(t, out, "curl error 7: Failed to connect to localhost port 1")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "1 completed, 1 failed, 2 total")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf), JSONWithBody(true))

	f.FormatReport(okReport())
	f.FormatReport(failedReport())
	f.FormatError(errors.New("profile missing"))
	require.NoError(t, f.Flush())

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Completed)
	assert.Equal(t, 1, out.Summary.Failed)
	require.Len(t, out.Requests, 2)
	assert.Equal(t, 200, out.Requests[0].StatusCode)
	assert.Equal(t, `{"id":1}`, out.Requests[0].Body)
	assert.Equal(t, float64(1), out.Requests[0].Captures["id"])
	assert.Equal(t, 7, out.Requests[1].ErrorCode)
	assert.Equal(t, []string{"profile missing"}, out.Errors)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))

	f.FormatReport(okReport())
	f.FormatReport(failedReport())
	require.NoError(t, f.Flush())

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "TAP version 13", lines[0])
	assert.Equal(t, "1..2", lines[1])
	assert.Equal(t, "ok 1 - get_users GET http://example.com/users (200)", lines[2])
	assert.Equal(t, "not ok 2 - GET http://localhost:1", lines[3])
	assert.Contains(t, buf.String(), "  code: 7\n")
	assert.Contains(t, buf.String(), "  ...\n")
}

func TestNew(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, New(FormatJSON, Options{}))
	assert.IsType(t, &TAPFormatter{}, New(FormatTAP, Options{}))
	assert.IsType(t, &ConsoleFormatter{}, New("", Options{NoColor: true}))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "[array with 2 items]", formatValue([]any{1, 2}, 10))
	assert.Equal(t, "{object with 1 keys}", formatValue(map[string]any{"a": 1}, 10))
	assert.Equal(t, "abcde...", formatValue("abcdefgh", 5))
}
