package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitcurl/packages/stats"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer   io.Writer
	verbose  bool
	noColor  bool
	showBody bool

	total  int
	failed int
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithBody prints the response body after the status line
func WithBody(show bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.showBody = show
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgRed)
	case code >= 300:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func (f *ConsoleFormatter) FormatReport(r *Report) {
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	f.total++
	result := r.Result

	label := r.Name
	if r.Iteration > 0 {
		label = fmt.Sprintf("%s #%d", label, r.Iteration)
	}
	if label != "" {
		fmt.Fprintf(f.writer, "%s ", bold(label))
	}
	fmt.Fprintf(f.writer, "%s %s", r.Method, r.URL)

	if r.Failed() {
		f.failed++
		fmt.Fprintf(f.writer, " %s\n", red(fmt.Sprintf("x curl error %d: %s", result.ErrorCode, result.ErrorMessage)))
		return
	}

	status := result.Status
	if status == "" {
		status = fmt.Sprintf("%d", result.StatusCode)
	}
	fmt.Fprintf(f.writer, " %s %s\n", statusColor(result.StatusCode).Sprint(status), cyan(fmt.Sprintf("(%dms)", result.DurationMs())))

	if f.verbose {
		for _, k := range sortedKeys(result.Headers) {
			fmt.Fprintf(f.writer, "  %s %s\n", faint(k+":"), result.Headers[k])
		}
		if len(result.Info) > 0 {
			fmt.Fprintf(f.writer, "  Info:\n")
			for _, k := range sortedKeys(result.Info) {
				fmt.Fprintf(f.writer, "    %s = %s\n", k, formatValue(result.Info[k], 100))
			}
		}
	}

	if len(r.Captures) > 0 {
		fmt.Fprintf(f.writer, "  Captures:\n")
		for _, name := range sortedKeys(r.Captures) {
			fmt.Fprintf(f.writer, "    %s = %s\n", name, formatValue(r.Captures[name], 100))
		}
	}

	if f.showBody && !r.BodyWritten && len(result.Body) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", result.Body)
	}
}

func (f *ConsoleFormatter) FormatLatency(s stats.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s %d runs", bold(s.Name+" latency:"), s.Count)
	if s.Failed > 0 {
		fmt.Fprintf(f.writer, ", %s", color.New(color.FgRed).Sprintf("%d failed", s.Failed))
	}
	fmt.Fprintf(f.writer, "\n  %s\n", cyan(fmt.Sprintf("min=%.1fms mean=%.1fms p50=%.1fms p90=%.1fms p99=%.1fms max=%.1fms",
		ms(s.Min), ms(s.Mean), ms(s.P50), ms(s.P90), ms(s.P99), ms(s.Max))))
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

// Flush prints a summary line when more than one request ran
func (f *ConsoleFormatter) Flush() error {
	if f.total < 2 {
		return nil
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\nRequests: ")
	if ok := f.total - f.failed; ok > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d completed", ok)))
	}
	if f.failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", f.failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", f.total)
	return nil
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitcurl"), version)
}
