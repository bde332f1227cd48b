package output

import (
	"io"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

// Report is one executed request as shown to the user
type Report struct {
	Name      string
	Iteration int
	Method    string
	URL       string
	Result    *http.Result
	Captures  map[string]any
	// BodyWritten is set when the body already went to stdout
	BodyWritten bool
}

// Failed reports whether the transfer ended with a curl error code
func (r *Report) Failed() bool {
	return r.Result != nil && r.Result.Failed()
}

func (r *Report) duration() time.Duration {
	if r.Result == nil {
		return 0
	}
	return r.Result.Duration
}

// Formatter renders reports. Formatters that accumulate write everything
// on Flush.
type Formatter interface {
	FormatReport(r *Report)
	// FormatLatency reports the latency of a repeated profile
	FormatLatency(s stats.Summary)
	FormatError(err error)
	Flush() error
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Format names accepted by New
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatTAP     = "tap"
)

// Options shared by every formatter
type Options struct {
	Writer   io.Writer // stdout when nil
	Verbose  bool
	NoColor  bool
	ShowBody bool
}

// New returns the formatter for name, falling back to console output
func New(name string, opts Options) Formatter {
	switch name {
	case FormatJSON:
		jsonOpts := []JSONOption{JSONWithBody(opts.ShowBody)}
		if opts.Writer != nil {
			jsonOpts = append(jsonOpts, JSONWithWriter(opts.Writer))
		}
		return NewJSONFormatter(jsonOpts...)
	case FormatTAP:
		var tapOpts []TAPOption
		if opts.Writer != nil {
			tapOpts = append(tapOpts, TAPWithWriter(opts.Writer))
		}
		return NewTAPFormatter(tapOpts...)
	default:
		consoleOpts := []ConsoleOption{
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
			WithBody(opts.ShowBody),
		}
		if opts.Writer != nil {
			consoleOpts = append(consoleOpts, WithWriter(opts.Writer))
		}
		return NewConsoleFormatter(consoleOpts...)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
