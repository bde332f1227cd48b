package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/logging"
	"github.com/abdul-hamid-achik/hitcurl/packages/output"
	"github.com/abdul-hamid-achik/hitcurl/packages/tracing"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag       string
	verboseFlag      int // 0=warn, 1=-v, 2=-vv
	noColorFlag      bool
	outputFlag       string
	noBodyFlag       bool
	otelEndpointFlag string
	otelProtocolFlag string
	propagateFlag    bool
)

// session is the state every command shares once flags and config are read
type session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	tracing *tracing.Provider
	noColor bool
	verbose int
}

var current session

var rootCmd = &cobra.Command{
	Use:   "hitcurl",
	Short: "Fluent HTTP requests with curl semantics",
	Long: `hitcurl runs HTTP requests through a chainable request builder that
behaves like curl: the same defaults, the same error codes and the same
transfer info.

Requests can come from flags (exec), from a pasted curl command (curl) or
from saved YAML profiles (run).`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupSession,
	PersistentPostRunE: teardownSession,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("HITCURL_CONFIG", ""), "Path to config file (env: HITCURL_CONFIG)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for transfer logs)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("NO_COLOR", false), "Disable colored output (env: NO_COLOR)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCURL_OUTPUT", output.FormatConsole), "Output format: console, json, tap (env: HITCURL_OUTPUT)")
	rootCmd.PersistentFlags().BoolVar(&noBodyFlag, "no-body", false, "Do not print response bodies")
	rootCmd.PersistentFlags().StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint for request spans (env: OTEL_EXPORTER_OTLP_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&otelProtocolFlag, "otel-protocol", getEnvString("HITCURL_OTEL_PROTOCOL", "http"), "OTLP protocol: http or grpc (env: HITCURL_OTEL_PROTOCOL)")
	rootCmd.PersistentFlags().BoolVar(&propagateFlag, "propagate", false, "Send W3C traceparent headers")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(curlCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	verbosity := verboseFlag
	if verbosity == 0 && cfg.GetVerbose() {
		verbosity = 1
	}
	noColor := noColorFlag || cfg.GetNoColor()

	provider, err := tracing.Init(cmd.Context(), tracing.Config{
		Endpoint: otelEndpointFlag,
		Protocol: otelProtocolFlag,
		Insecure: true,
	})
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	current = session{
		cfg:     cfg,
		logger:  logging.New(cmd.ErrOrStderr(), verbosity, noColor),
		tracing: provider,
		noColor: noColor,
		verbose: verbosity,
	}
	current.logger.Debug().Str("config", configFlag).Bool("tracing", provider.Enabled()).Msg("session ready")
	return nil
}

func teardownSession(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := current.tracing.Shutdown(ctx); err != nil {
		current.logger.Warn().Err(err).Msg("failed to flush spans")
	}
	return nil
}

// builderOptions wires the session's logger, tracer and stdout into a builder
func builderOptions(cmd *cobra.Command) []http.BuilderOption {
	opts := []http.BuilderOption{
		http.WithLogger(current.logger),
		http.WithStdout(cmd.OutOrStdout()),
	}
	if current.tracing.Enabled() {
		opts = append(opts, http.WithTracer(current.tracing.Tracer()))
	}
	if propagateFlag {
		opts = append(opts, http.WithPropagation())
	}
	return opts
}

func newFormatter(cmd *cobra.Command) output.Formatter {
	return output.New(outputFlag, output.Options{
		Writer:   cmd.OutOrStdout(),
		Verbose:  current.verbose > 0,
		NoColor:  current.noColor,
		ShowBody: !noBodyFlag,
	})
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
