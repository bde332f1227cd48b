package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidEncoding is returned by SetEncoding for unsupported values
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrInvalidAuthScheme is returned by SetHTTPAuthScheme for unknown schemes
	ErrInvalidAuthScheme = errors.New("invalid auth scheme")
	// ErrClosed is returned by Execute once the handle has been released
	ErrClosed = errors.New("request builder is closed")
)

func invalidEncoding(value string) error {
	return fmt.Errorf("%w: %q (allowed: \"\", identity, deflate, gzip)", ErrInvalidEncoding, value)
}

func invalidAuthScheme(scheme AuthScheme) error {
	return fmt.Errorf("%w: %q", ErrInvalidAuthScheme, string(scheme))
}

// ErrorCode identifies a transfer failure. Values follow curl's numbering so
// scripts written against curl exit codes keep working.
type ErrorCode int

const (
	CodeOK                     ErrorCode = 0
	CodeUnsupportedProtocol    ErrorCode = 1
	CodeURLMalformat           ErrorCode = 3
	CodeCouldntResolveHost     ErrorCode = 6
	CodeCouldntConnect         ErrorCode = 7
	CodeHTTPReturnedError      ErrorCode = 22
	CodeReadError              ErrorCode = 26
	CodeOperationTimedOut      ErrorCode = 28
	CodeSSLConnectError        ErrorCode = 35
	CodeTooManyRedirects       ErrorCode = 47
	CodeRecvError              ErrorCode = 56
	CodePeerFailedVerification ErrorCode = 60
	CodeBadContentEncoding     ErrorCode = 61
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "No error"
	case CodeUnsupportedProtocol:
		return "Unsupported protocol"
	case CodeURLMalformat:
		return "URL using bad/illegal format or missing URL"
	case CodeCouldntResolveHost:
		return "Couldn't resolve host name"
	case CodeCouldntConnect:
		return "Couldn't connect to server"
	case CodeHTTPReturnedError:
		return "HTTP response code said error"
	case CodeReadError:
		return "Failed to open/read local data from file/application"
	case CodeOperationTimedOut:
		return "Timeout was reached"
	case CodeSSLConnectError:
		return "SSL connect error"
	case CodeTooManyRedirects:
		return "Number of redirects hit maximum amount"
	case CodeRecvError:
		return "Failure when receiving data from the peer"
	case CodePeerFailedVerification:
		return "SSL peer certificate or SSH remote key was not OK"
	case CodeBadContentEncoding:
		return "Unrecognized or bad HTTP Content or Transfer-Encoding"
	default:
		return fmt.Sprintf("Unknown error (%d)", int(c))
	}
}

// redirectLimitError stops the client once the redirect limit is reached
type redirectLimitError struct {
	max int
}

func (e *redirectLimitError) Error() string {
	return fmt.Sprintf("Maximum (%d) redirects followed", e.max)
}

// localReadError wraps failures reading upload files
type localReadError struct {
	err error
}

func (e *localReadError) Error() string { return e.err.Error() }
func (e *localReadError) Unwrap() error { return e.err }

// contentEncodingError wraps failures decoding a compressed body
type contentEncodingError struct {
	encoding string
	err      error
}

func (e *contentEncodingError) Error() string {
	return fmt.Sprintf("failed to decode %s body: %v", e.encoding, e.err)
}

func (e *contentEncodingError) Unwrap() error { return e.err }

// classifyError maps a transport error to a transfer code and message.
func classifyError(err error) (ErrorCode, string) {
	var (
		redirectErr *redirectLimitError
		readErr     *localReadError
		encodingErr *contentEncodingError
		dnsErr      *net.DNSError
		certErr     *tls.CertificateVerificationError
		hostErr     x509.HostnameError
		authErr     x509.UnknownAuthorityError
		invalidErr  x509.CertificateInvalidError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		opErr       *net.OpError
		urlErr      *url.Error
		netErr      net.Error
	)

	switch {
	case errors.As(err, &redirectErr):
		return CodeTooManyRedirects, redirectErr.Error()
	case errors.As(err, &readErr):
		return CodeReadError, fmt.Sprintf("%s: %v", CodeReadError, readErr.err)
	case errors.As(err, &encodingErr):
		return CodeBadContentEncoding, encodingErr.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return CodeOperationTimedOut, fmt.Sprintf("%s: %v", CodeOperationTimedOut, err)
	case errors.As(err, &dnsErr):
		return CodeCouldntResolveHost, "Could not resolve host: " + dnsErr.Name
	case errors.As(err, &certErr), errors.As(err, &hostErr), errors.As(err, &authErr), errors.As(err, &invalidErr):
		return CodePeerFailedVerification, fmt.Sprintf("%s: %v", CodePeerFailedVerification, err)
	case errors.As(err, &recordErr), errors.As(err, &alertErr):
		return CodeSSLConnectError, fmt.Sprintf("%s: %v", CodeSSLConnectError, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return CodeCouldntConnect, fmt.Sprintf("Failed to connect: %v", opErr.Err)
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return CodeUnsupportedProtocol, fmt.Sprintf("%s: %v", CodeUnsupportedProtocol, err)
	case errors.As(err, &urlErr) && urlErr.Op == "parse":
		return CodeURLMalformat, fmt.Sprintf("%s: %v", CodeURLMalformat, err)
	default:
		return CodeRecvError, fmt.Sprintf("%s: %v", CodeRecvError, err)
	}
}
