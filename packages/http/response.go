package http

import (
	"encoding/json"
	"strings"
	"time"
)

// Info holds transfer diagnostics keyed like curl_getinfo
type Info map[string]any

// Result is the outcome of one Execute. Transfer failures are reported
// through ErrorCode and ErrorMessage rather than as Go errors.
type Result struct {
	StatusCode   int
	Status       string
	Headers      map[string]string
	Body         []byte
	Duration     time.Duration
	ErrorCode    ErrorCode
	ErrorMessage string
	Info         Info
}

func newResult() *Result {
	return &Result{
		Headers: make(map[string]string),
		Info:    make(Info),
	}
}

func (r *Result) fail(code ErrorCode, message string) {
	r.ErrorCode = code
	r.ErrorMessage = message
}

// Failed reports whether the transfer ended with a non-zero error code
func (r *Result) Failed() bool {
	return r.ErrorCode != CodeOK
}

func (r *Result) BodyString() string {
	return string(r.Body)
}

func (r *Result) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Result) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Result) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Result) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Result) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Result) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Result) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Result) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
