package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/core/config"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
)

// Exit codes for hitcurl CLI
const (
	// ExitSuccess indicates every transfer completed
	ExitSuccess = 0

	// ExitTransferFailure indicates a transfer ended with a curl error code
	ExitTransferFailure = 1

	// ExitConfigError indicates a configuration or profile error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code. A nil err exits without a message, for
// failures the formatter already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: ExitUsageError, err: err}
}

// usageArgs maps argument validation failures to ExitUsageError
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, profile.ErrInvalidProfile) || errors.Is(err, profile.ErrUnresolved) {
		return ExitConfigError
	}
	return ExitTransferFailure
}

// transferExitCode classifies a finished transfer
func transferExitCode(result *http.Result) int {
	if result == nil || !result.Failed() {
		return ExitSuccess
	}
	switch result.ErrorCode {
	case http.CodeCouldntResolveHost, http.CodeCouldntConnect, http.CodeOperationTimedOut,
		http.CodeSSLConnectError, http.CodeRecvError, http.CodePeerFailedVerification:
		return ExitNetworkError
	default:
		return ExitTransferFailure
	}
}

// worstExit keeps the highest-priority exit code seen across transfers
func worstExit(a, b int) int {
	if a == ExitSuccess {
		return b
	}
	if b == ExitNetworkError {
		return b
	}
	return a
}
