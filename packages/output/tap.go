package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

// TAPFormatter writes one TAP line per request. Transfer failures become
// "not ok" lines with a YAML diagnostic block.
type TAPFormatter struct {
	writer  io.Writer
	results []tapResult
	latency []string
	errors  []string
}

type tapResult struct {
	name string
	ok   bool
	diag map[string]any
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatReport(r *Report) {
	name := strings.TrimSpace(fmt.Sprintf("%s %s %s", r.Name, r.Method, r.URL))
	if r.Iteration > 0 {
		name = fmt.Sprintf("%s #%d", name, r.Iteration)
	}

	tr := tapResult{name: name, ok: !r.Failed()}
	if res := r.Result; res != nil {
		if res.Failed() {
			tr.diag = map[string]any{
				"code":     int(res.ErrorCode),
				"message":  res.ErrorMessage,
				"severity": "fail",
			}
		} else {
			tr.name = fmt.Sprintf("%s (%d)", name, res.StatusCode)
		}
	}
	f.results = append(f.results, tr)
}

// FormatLatency adds a comment line; TAP has no place for measurements.
func (f *TAPFormatter) FormatLatency(s stats.Summary) {
	f.latency = append(f.latency, fmt.Sprintf("%s latency: %d runs, %d failed, p50=%.1fms p90=%.1fms p99=%.1fms",
		s.Name, s.Count, s.Failed, ms(s.P50), ms(s.P90), ms(s.P99)))
}

func (f *TAPFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

// Flush writes the accumulated TAP output
func (f *TAPFormatter) Flush() error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(f.results))

	for i, r := range f.results {
		if r.ok {
			fmt.Fprintf(f.writer, "ok %d - %s\n", i+1, r.name)
			continue
		}
		fmt.Fprintf(f.writer, "not ok %d - %s\n", i+1, r.name)
		if len(r.diag) > 0 {
			if err := f.writeDiagnostic(r.diag); err != nil {
				return err
			}
		}
	}

	for _, l := range f.latency {
		fmt.Fprintf(f.writer, "# %s\n", l)
	}
	for _, e := range f.errors {
		fmt.Fprintf(f.writer, "# %s\n", e)
	}
	return nil
}

func (f *TAPFormatter) writeDiagnostic(diag map[string]any) error {
	data, err := yaml.Marshal(diag)
	if err != nil {
		return fmt.Errorf("tap diagnostic: %w", err)
	}
	fmt.Fprintf(f.writer, "  ---\n")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintf(f.writer, "  ...\n")
	return nil
}
