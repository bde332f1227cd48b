package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ExecuteOption func(*executeConfig)

type executeConfig struct {
	url        string
	closeAfter bool
}

// WithExecuteURL replaces the target URL before the transfer
func WithExecuteURL(url string) ExecuteOption {
	return func(c *executeConfig) {
		c.url = url
	}
}

// WithCloseAfter releases the handle once the result is captured
func WithCloseAfter() ExecuteOption {
	return func(c *executeConfig) {
		c.closeAfter = true
	}
}

// Execute performs the transfer and returns the captured body. Transfer
// failures do not produce an error; inspect ErrorCode and ErrorMessage. The
// error is non-nil only when the builder is closed or releasing the handle
// after the transfer fails.
//
// With return-transfer disabled the body is written to the configured stdout
// and nil is returned.
func (b *RequestBuilder) Execute(ctx context.Context, opts ...ExecuteOption) ([]byte, error) {
	if b.closed || b.handle == nil {
		return nil, ErrClosed
	}

	var cfg executeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.url != "" {
		b.SetURL(cfg.url)
	}

	requestID := uuid.NewString()
	method := b.MethodName()

	ctx, span := b.tracer.Start(ctx, "hitcurl.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", b.url),
			attribute.String("hitcurl.request_id", requestID),
		),
	)
	defer span.End()

	result := b.perform(ctx, method)
	result.Info["request_id"] = requestID

	span.SetAttributes(
		attribute.Int("http.response.status_code", result.StatusCode),
		attribute.Int("hitcurl.error_code", int(result.ErrorCode)),
	)
	if result.Failed() {
		span.SetStatus(codes.Error, result.ErrorMessage)
	}
	b.logTransfer(requestID, method, result)

	if !b.returnTransfer {
		if len(result.Body) > 0 {
			if _, err := b.stdout.Write(result.Body); err != nil {
				b.logger.Error().Err(err).Msg("failed to write response body")
			}
		}
		result.Body = nil
	}
	b.result = result

	if cfg.closeAfter {
		if err := b.Close(); err != nil {
			return result.Body, fmt.Errorf("close after execute: %w", err)
		}
	}

	return result.Body, nil
}

// Result returns the outcome of the last Execute, or an empty result
func (b *RequestBuilder) Result() *Result {
	if b.result == nil {
		return newResult()
	}
	return b.result
}

func (b *RequestBuilder) ResponseBody() []byte {
	return b.Result().Body
}

func (b *RequestBuilder) ErrorCode() ErrorCode {
	return b.Result().ErrorCode
}

func (b *RequestBuilder) ErrorMessage() string {
	return b.Result().ErrorMessage
}

func (b *RequestBuilder) ResponseInfo() Info {
	return b.Result().Info
}

func (b *RequestBuilder) logTransfer(requestID, method string, result *Result) {
	event := b.logger.Debug()
	if result.Failed() {
		event = b.logger.Warn().
			Int("error_code", int(result.ErrorCode)).
			Str("error", result.ErrorMessage)
	}
	event.
		Str("request_id", requestID).
		Str("method", method).
		Str("url", b.url).
		Int("status", result.StatusCode).
		Dur("duration", result.Duration).
		Msg("transfer finished")
}

func (b *RequestBuilder) perform(ctx context.Context, method string) *Result {
	result := newResult()
	tr := newTransferTrace()
	target := normalizeURL(b.url)

	result.Info["url"] = target
	result.Info["effective_method"] = method
	result.Info["http_code"] = 0
	result.Info["redirect_count"] = 0
	result.Info["size_download"] = 0
	result.Info["size_upload"] = 0
	defer func() {
		result.Duration = time.Since(tr.start)
		result.Info["total_time"] = result.Duration.Seconds()
		tr.fill(result.Info)
	}()

	if target == "" {
		result.fail(CodeURLMalformat, "No URL set")
		return result
	}
	if b.sendsBody() {
		if b.postErr != nil {
			result.fail(CodeReadError, fmt.Sprintf("%s: %v", CodeReadError, b.postErr))
			return result
		}
		result.Info["size_upload"] = len(b.postBody)
	}

	t := &transfer{builder: b, method: method, target: target}
	t.client = &http.Client{
		Transport:     b.handle.configure(&b.settings),
		Timeout:       time.Duration(b.timeoutMs) * time.Millisecond,
		CheckRedirect: t.checkRedirect,
		Jar:           b.handle.cookieJar(),
	}

	resp, err := t.do(httptrace.WithClientTrace(ctx, tr.clientTrace()))
	result.Info["redirect_count"] = t.redirects
	if err != nil {
		result.fail(classifyError(err))
		return result
	}
	defer resp.Body.Close()

	b.readResponse(resp, result)
	return result
}

func (b *RequestBuilder) readResponse(resp *http.Response, result *Result) {
	result.StatusCode = resp.StatusCode
	result.Status = resp.Status
	for k := range resp.Header {
		result.Headers[k] = resp.Header.Get(k)
	}

	headerBlock := formatHeaderBlock(resp)
	result.Info["http_code"] = resp.StatusCode
	result.Info["content_type"] = resp.Header.Get("Content-Type")
	result.Info["header_size"] = len(headerBlock)
	if resp.Request != nil {
		result.Info["url"] = resp.Request.URL.String()
		result.Info["effective_method"] = resp.Request.Method
	}

	if b.failOnError && resp.StatusCode >= 400 {
		result.fail(CodeHTTPReturnedError, fmt.Sprintf("The requested URL returned error: %d", resp.StatusCode))
		return
	}

	raw, err := io.ReadAll(resp.Body)
	result.Info["size_download"] = len(raw)
	if err != nil {
		result.fail(classifyError(err))
		return
	}

	body := raw
	if b.encodingSet {
		body, err = decodeBody(resp.Header.Get("Content-Encoding"), raw)
		if err != nil {
			result.fail(classifyError(err))
			return
		}
	}

	if b.includeHeader {
		body = append([]byte(headerBlock), body...)
	}
	result.Body = body
}

func (b *RequestBuilder) sendsBody() bool {
	return b.method == MethodPost || b.method == MethodCustom
}

// newRequest builds the request from the current settings. It is called
// once per round trip because auth handshakes resend the request.
func (b *RequestBuilder) newRequest(ctx context.Context, method, target string) (*http.Request, error) {
	sendBody := b.sendsBody()

	var body io.Reader
	if sendBody && len(b.postBody) > 0 {
		body = bytes.NewReader(b.postBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for _, h := range b.headers {
		switch {
		case strings.EqualFold(h.Name, "Content-Length"):
			// derived from the body
		case strings.EqualFold(h.Name, "Host"):
			req.Host = h.Value
		default:
			req.Header.Add(h.Name, h.Value)
		}
	}

	if sendBody && b.postContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", b.postContentType)
	}
	if cookie := b.CookieHeader(); cookie != "" {
		req.Header.Add("Cookie", cookie)
	}
	if b.propagate {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}
	if b.encodingSet {
		accept := b.encoding
		if accept == "" {
			accept = acceptAllEncodings
		}
		req.Header.Set("Accept-Encoding", accept)
	}

	return req, nil
}

// transfer is one Execute call, possibly spanning several round trips
type transfer struct {
	builder   *RequestBuilder
	method    string
	target    string
	client    *http.Client
	redirects int
}

func (t *transfer) checkRedirect(req *http.Request, via []*http.Request) error {
	if !t.builder.followRedirects {
		return http.ErrUseLastResponse
	}
	if limit := t.builder.maxRedirects; limit >= 0 && len(via) > limit {
		return &redirectLimitError{max: limit}
	}
	t.redirects = len(via)
	return nil
}

type authorizer func(*http.Request) error

func (t *transfer) do(ctx context.Context) (*http.Response, error) {
	user, pass, ok := t.builder.credentials()
	if !ok {
		return t.send(ctx, t.client, nil)
	}

	basic := func(req *http.Request) error {
		req.SetBasicAuth(user, pass)
		return nil
	}

	if t.builder.authScheme == AuthBasic {
		return t.send(ctx, t.client, basic)
	}

	// Every other scheme answers the server's challenge. Credentials are
	// never sent when the server offers nothing the scheme allows, so ntlm
	// and negotiate do not fall back to Basic.
	resp, err := t.send(ctx, t.client, nil)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c, ok := pickChallenge(parseChallenges(resp.Header.Values("WWW-Authenticate")), t.builder.authScheme)
	if !ok || (c.scheme == AuthDigest && !digestSupported(c.params)) {
		return resp, nil
	}
	drain(resp)

	switch c.scheme {
	case AuthDigest:
		return t.send(ctx, t.client, func(req *http.Request) error {
			auth, err := newDigestAuth(c.params, user, pass, req.Method, req.URL.RequestURI())
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", auth.BuildAuthorizationHeader())
			return nil
		})
	case AuthNTLM, AuthNegotiate:
		return t.send(ctx, t.negotiateClient(), basic)
	default:
		return t.send(ctx, t.client, basic)
	}
}

func (t *transfer) send(ctx context.Context, client *http.Client, authorize authorizer) (*http.Response, error) {
	req, err := t.builder.newRequest(ctx, t.method, t.target)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(req); err != nil {
			return nil, err
		}
	}
	return client.Do(req)
}

func (t *transfer) negotiateClient() *http.Client {
	c := *t.client
	c.Transport = t.builder.handle.negotiator()
	return &c
}

func digestSupported(params map[string]string) bool {
	qop := params["qop"]
	if qop == "" {
		return true
	}
	for _, q := range strings.Split(qop, ",") {
		if strings.TrimSpace(q) == "auth" {
			return true
		}
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

func formatHeaderBlock(resp *http.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(&sb)
	sb.WriteString("\r\n")
	return sb.String()
}

// normalizeURL prepends http:// to scheme-less targets, as curl does
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}
