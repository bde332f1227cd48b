package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"redirect limit", &url.Error{Op: "Get", URL: "http://x", Err: &redirectLimitError{max: 2}}, CodeTooManyRedirects},
		{"local read", &localReadError{err: errors.New("denied")}, CodeReadError},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), CodeOperationTimedOut},
		{"dns", &url.Error{Op: "Get", URL: "http://nowhere.invalid", Err: &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}}, CodeCouldntResolveHost},
		{"dial", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, CodeCouldntConnect},
		{"scheme", &url.Error{Op: "Get", URL: "gopher://x", Err: errors.New(`unsupported protocol scheme "gopher"`)}, CodeUnsupportedProtocol},
		{"parse", &url.Error{Op: "parse", URL: "http://[::1", Err: errors.New("missing ']' in host")}, CodeURLMalformat},
		{"other", errors.New("connection reset"), CodeRecvError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := classifyError(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestClassifyError_Messages(t *testing.T) {
	_, msg := classifyError(&redirectLimitError{max: 5})
	assert.Equal(t, "Maximum (5) redirects followed", msg)

	_, msg = classifyError(&net.DNSError{Err: "no such host", Name: "nowhere.invalid"})
	assert.Equal(t, "Could not resolve host: nowhere.invalid", msg)
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "No error", CodeOK.String())
	assert.Equal(t, "Timeout was reached", CodeOperationTimedOut.String())
	assert.Equal(t, "Unknown error (99)", ErrorCode(99).String())
}
