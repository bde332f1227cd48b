package http

import (
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// UnlimitedRedirects disables the redirect limit
	UnlimitedRedirects = -1

	tracerName = "github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// Method selects the request method. A custom method overrides GET and POST.
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodCustom
)

func (m Method) String() string {
	switch m {
	case MethodPost:
		return "POST"
	case MethodCustom:
		return "CUSTOM"
	default:
		return "GET"
	}
}

// Header is a single request header line
type Header struct {
	Name  string
	Value string
}

func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// Field is a name/value pair used for post fields and cookies
type Field struct {
	Name  string
	Value string
}

// settings is everything Renew resets.
type settings struct {
	url          string
	method       Method
	customMethod string

	postFields      []Field
	postBody        []byte
	postContentType string
	postErr         error

	headers   []Header
	cookies   []Field
	cookieJar string

	sslVerify       bool
	safeUpload      bool
	returnTransfer  bool
	noSignal        bool
	failOnError     bool
	fetchBody       bool
	includeHeader   bool
	followRedirects bool
	maxRedirects    int

	connectTimeoutMs int
	timeoutMs        int

	encoding    string
	encodingSet bool

	authScheme AuthScheme
	userpwd    string
}

func defaultSettings() settings {
	return settings{
		method:          MethodGet,
		sslVerify:       false,
		safeUpload:      true,
		returnTransfer:  true,
		noSignal:        true,
		fetchBody:       true,
		followRedirects: true,
		maxRedirects:    UnlimitedRedirects,
		authScheme:      AuthBasic,
	}
}

// RequestBuilder is a chainable request configuration bound to one transfer
// handle. It is not safe for concurrent use.
type RequestBuilder struct {
	settings

	handle *handle
	result *Result
	closed bool

	logger    zerolog.Logger
	tracer    trace.Tracer
	stdout    io.Writer
	propagate bool
}

type BuilderOption func(*RequestBuilder)

// WithLogger sets the logger used for transfer diagnostics
func WithLogger(logger zerolog.Logger) BuilderOption {
	return func(b *RequestBuilder) {
		b.logger = logger
	}
}

// WithTracer sets the tracer that wraps every Execute in a span
func WithTracer(tracer trace.Tracer) BuilderOption {
	return func(b *RequestBuilder) {
		b.tracer = tracer
	}
}

// WithPropagation injects W3C trace context headers into every request
func WithPropagation() BuilderOption {
	return func(b *RequestBuilder) {
		b.propagate = true
	}
}

// WithStdout sets where the body goes when return-transfer is disabled
func WithStdout(w io.Writer) BuilderOption {
	return func(b *RequestBuilder) {
		b.stdout = w
	}
}

func NewRequestBuilder(opts ...BuilderOption) *RequestBuilder {
	b := &RequestBuilder{
		settings: defaultSettings(),
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		stdout:   os.Stdout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.handle = newHandle()
	return b
}

func (b *RequestBuilder) URL() string {
	return b.url
}

func (b *RequestBuilder) SetURL(url string) *RequestBuilder {
	b.url = url
	return b
}

func (b *RequestBuilder) Method() Method {
	return b.method
}

// MethodName returns the method string that Execute will send.
func (b *RequestBuilder) MethodName() string {
	switch {
	case b.method == MethodCustom:
		return b.customMethod
	case !b.fetchBody:
		return "HEAD"
	case b.method == MethodPost:
		return "POST"
	default:
		return "GET"
	}
}

func (b *RequestBuilder) IsPost() bool {
	return b.method == MethodPost
}

func (b *RequestBuilder) IsGet() bool {
	return b.method == MethodGet
}

func (b *RequestBuilder) CustomMethod() string {
	return b.customMethod
}

// EnablePost switches to POST. A nil map leaves the body empty and sends
// Content-Length: 0.
func (b *RequestBuilder) EnablePost(fields map[string]string) *RequestBuilder {
	b.method = MethodPost
	if fields != nil {
		return b.SetPostFields(fields)
	}
	b.setHeader("Content-Length", "0")
	return b
}

// EnableGet switches to GET and drops any post fields.
func (b *RequestBuilder) EnableGet() *RequestBuilder {
	b.method = MethodGet
	return b.ClearPostFields()
}

// SetCustomMethod sends name as the request method and drops any post fields.
func (b *RequestBuilder) SetCustomMethod(name string) *RequestBuilder {
	b.customMethod = name
	b.method = MethodCustom
	return b.ClearPostFields()
}

// PostFields returns a copy of the post fields
func (b *RequestBuilder) PostFields() map[string]string {
	out := make(map[string]string, len(b.postFields))
	for _, f := range b.postFields {
		out[f.Name] = f.Value
	}
	return out
}

// PostBody returns the serialized request body
func (b *RequestBuilder) PostBody() []byte {
	return slices.Clone(b.postBody)
}

func (b *RequestBuilder) SetPostFields(data map[string]string) *RequestBuilder {
	b.postFields = fieldsFromMap(data)
	b.applyPostFields()
	return b
}

// AddPostFields merges data into the post fields. Keys already present keep
// their value.
func (b *RequestBuilder) AddPostFields(data map[string]string) *RequestBuilder {
	for _, f := range fieldsFromMap(data) {
		if indexOfField(b.postFields, f.Name) < 0 {
			b.postFields = append(b.postFields, f)
		}
	}
	b.applyPostFields()
	return b
}

// SetPostBody sends body exactly as given and drops any post fields. Without
// a Content-Type header it goes out as application/x-www-form-urlencoded,
// like curl's -d.
func (b *RequestBuilder) SetPostBody(body []byte) *RequestBuilder {
	b.postFields = nil
	b.postBody = slices.Clone(body)
	b.postContentType = "application/x-www-form-urlencoded"
	b.postErr = nil
	b.setHeader("Content-Length", strconv.Itoa(len(b.postBody)))
	return b
}

func (b *RequestBuilder) ClearPostFields() *RequestBuilder {
	b.postFields = nil
	b.applyPostFields()
	return b
}

// applyPostFields serializes the fields and refreshes Content-Length.
func (b *RequestBuilder) applyPostFields() {
	b.postBody, b.postContentType, b.postErr = nil, "", nil

	switch {
	case len(b.postFields) == 0:
	case !b.safeUpload && hasFileFields(b.postFields):
		body, contentType, err := buildMultipartBody(b.postFields)
		if err != nil {
			b.postErr = err
			break
		}
		b.postBody = body.Bytes()
		b.postContentType = contentType
	case b.isJSONContent():
		b.postBody = encodeJSON(b.postFields)
	default:
		b.postBody = []byte(encodeForm(b.postFields))
		b.postContentType = "application/x-www-form-urlencoded"
	}

	b.setHeader("Content-Length", strconv.Itoa(len(b.postBody)))
}

func (b *RequestBuilder) isJSONContent() bool {
	ct, ok := b.header("Content-Type")
	return ok && strings.Contains(ct, "json")
}

// Headers returns a copy of the configured headers in order
func (b *RequestBuilder) Headers() []Header {
	return slices.Clone(b.headers)
}

// SetHeaders replaces every header
func (b *RequestBuilder) SetHeaders(headers []Header) *RequestBuilder {
	b.headers = nil
	for _, h := range headers {
		b.setHeader(h.Name, h.Value)
	}
	return b
}

// AddHeader inserts a header or replaces the value of one with the same name.
func (b *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	b.setHeader(name, value)
	return b
}

func (b *RequestBuilder) ClearHeaders() *RequestBuilder {
	b.headers = nil
	return b
}

func (b *RequestBuilder) setHeader(name, value string) {
	for i := range b.headers {
		if strings.EqualFold(b.headers[i].Name, name) {
			b.headers[i].Value = value
			return
		}
	}
	b.headers = append(b.headers, Header{Name: name, Value: value})
}

func (b *RequestBuilder) header(name string) (string, bool) {
	for _, h := range b.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Cookies returns a copy of the configured cookies
func (b *RequestBuilder) Cookies() map[string]string {
	out := make(map[string]string, len(b.cookies))
	for _, c := range b.cookies {
		out[c.Name] = c.Value
	}
	return out
}

// SetCookies replaces every cookie
func (b *RequestBuilder) SetCookies(cookies map[string]string) *RequestBuilder {
	b.cookies = fieldsFromMap(cookies)
	return b
}

func (b *RequestBuilder) AddCookie(name, value string) *RequestBuilder {
	if i := indexOfField(b.cookies, name); i >= 0 {
		b.cookies[i].Value = value
		return b
	}
	b.cookies = append(b.cookies, Field{Name: name, Value: value})
	return b
}

func (b *RequestBuilder) RemoveCookie(name string) *RequestBuilder {
	if i := indexOfField(b.cookies, name); i >= 0 {
		b.cookies = slices.Delete(b.cookies, i, i+1)
	}
	return b
}

func (b *RequestBuilder) ClearCookies() *RequestBuilder {
	b.cookies = nil
	return b
}

// CookieHeader renders the cookies as a single Cookie header value
func (b *RequestBuilder) CookieHeader() string {
	parts := make([]string, 0, len(b.cookies))
	for _, c := range b.cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// EnableCookieJar turns on the cookie engine and writes received cookies to
// path when the handle is released. Cookies already stored in path are sent
// with matching requests. It also registers an empty cookie named path.
func (b *RequestBuilder) EnableCookieJar(path string) *RequestBuilder {
	b.cookieJar = path
	b.AddCookie(path, "")
	if b.handle != nil {
		if err := b.handle.enableJar(path); err != nil {
			b.logger.Warn().Err(err).Str("path", path).Msg("failed to load cookie jar")
		}
	}
	return b
}

// LoadCookieFile reads a Netscape cookie file into the cookie engine. The
// file is never written; pair it with EnableCookieJar for that. Loaded
// cookies are dropped by Renew.
func (b *RequestBuilder) LoadCookieFile(path string) error {
	if b.closed || b.handle == nil {
		return ErrClosed
	}
	return b.handle.loadCookies(path)
}

func (b *RequestBuilder) CookieJar() string {
	return b.cookieJar
}

func (b *RequestBuilder) IsSSLVerify() bool { return b.sslVerify }

func (b *RequestBuilder) EnableSSLVerify() *RequestBuilder {
	b.sslVerify = true
	return b
}

func (b *RequestBuilder) DisableSSLVerify() *RequestBuilder {
	b.sslVerify = false
	return b
}

func (b *RequestBuilder) IsSafeUpload() bool { return b.safeUpload }

// EnableSafeUpload treats post values starting with "@" as plain text.
func (b *RequestBuilder) EnableSafeUpload() *RequestBuilder {
	return b.setSafeUpload(true)
}

// DisableSafeUpload uploads post values of the form "@path" as files.
func (b *RequestBuilder) DisableSafeUpload() *RequestBuilder {
	return b.setSafeUpload(false)
}

func (b *RequestBuilder) setSafeUpload(enabled bool) *RequestBuilder {
	b.safeUpload = enabled
	if len(b.postFields) > 0 {
		b.applyPostFields()
	}
	return b
}

func (b *RequestBuilder) IsReturnTransfer() bool { return b.returnTransfer }

func (b *RequestBuilder) EnableReturnTransfer() *RequestBuilder {
	b.returnTransfer = true
	return b
}

func (b *RequestBuilder) DisableReturnTransfer() *RequestBuilder {
	b.returnTransfer = false
	return b
}

// IsNoSignal reports the no-signal flag. Go never installs signal handlers
// for a transfer, so the flag is stored and reported only.
func (b *RequestBuilder) IsNoSignal() bool { return b.noSignal }

func (b *RequestBuilder) EnableNoSignal() *RequestBuilder {
	b.noSignal = true
	return b
}

func (b *RequestBuilder) DisableNoSignal() *RequestBuilder {
	b.noSignal = false
	return b
}

func (b *RequestBuilder) IsFailOnError() bool { return b.failOnError }

func (b *RequestBuilder) EnableFailOnError() *RequestBuilder {
	b.failOnError = true
	return b
}

func (b *RequestBuilder) DisableFailOnError() *RequestBuilder {
	b.failOnError = false
	return b
}

func (b *RequestBuilder) IsFetchBody() bool { return b.fetchBody }

func (b *RequestBuilder) EnableFetchBody() *RequestBuilder {
	b.fetchBody = true
	return b
}

// DisableFetchBody sends HEAD unless a custom method is set
func (b *RequestBuilder) DisableFetchBody() *RequestBuilder {
	b.fetchBody = false
	return b
}

func (b *RequestBuilder) IsIncludeHeader() bool { return b.includeHeader }

func (b *RequestBuilder) EnableIncludeHeader() *RequestBuilder {
	b.includeHeader = true
	return b
}

func (b *RequestBuilder) DisableIncludeHeader() *RequestBuilder {
	b.includeHeader = false
	return b
}

func (b *RequestBuilder) IsFollowRedirects() bool { return b.followRedirects }

func (b *RequestBuilder) EnableFollowRedirects() *RequestBuilder {
	b.followRedirects = true
	return b
}

func (b *RequestBuilder) DisableFollowRedirects() *RequestBuilder {
	b.followRedirects = false
	return b
}

func (b *RequestBuilder) MaxRedirects() int { return b.maxRedirects }

// SetMaxRedirects limits followed redirects. UnlimitedRedirects removes the limit.
func (b *RequestBuilder) SetMaxRedirects(n int) *RequestBuilder {
	b.maxRedirects = n
	return b
}

func (b *RequestBuilder) ConnectTimeout() int   { return b.connectTimeoutMs / 1000 }
func (b *RequestBuilder) ConnectTimeoutMs() int { return b.connectTimeoutMs }

func (b *RequestBuilder) SetConnectTimeout(seconds int) *RequestBuilder {
	return b.SetConnectTimeoutMs(seconds * 1000)
}

// SetConnectTimeoutMs limits connection setup. Zero or a negative value
// means no limit.
func (b *RequestBuilder) SetConnectTimeoutMs(ms int) *RequestBuilder {
	b.connectTimeoutMs = max(ms, 0)
	return b
}

func (b *RequestBuilder) Timeout() int   { return b.timeoutMs / 1000 }
func (b *RequestBuilder) TimeoutMs() int { return b.timeoutMs }

// SetTimeout limits the whole transfer. Zero means no limit.
func (b *RequestBuilder) SetTimeout(seconds int) *RequestBuilder {
	return b.SetTimeoutMs(seconds * 1000)
}

// SetTimeoutMs limits the whole transfer. Zero or a negative value means
// no limit.
func (b *RequestBuilder) SetTimeoutMs(ms int) *RequestBuilder {
	b.timeoutMs = max(ms, 0)
	return b
}

func (b *RequestBuilder) Encoding() string { return b.encoding }

// SetEncoding sets the accepted content encoding. The empty string accepts
// every supported encoding.
func (b *RequestBuilder) SetEncoding(value string) error {
	if !IsValidEncoding(value) {
		return invalidEncoding(value)
	}
	b.encoding = value
	b.encodingSet = true
	return nil
}

func (b *RequestBuilder) HTTPAuthScheme() AuthScheme { return b.authScheme }

func (b *RequestBuilder) SetHTTPAuthScheme(scheme AuthScheme) error {
	if !scheme.IsValid() {
		return invalidAuthScheme(scheme)
	}
	b.authScheme = scheme
	return nil
}

// Credentials returns the "user:password" string
func (b *RequestBuilder) Credentials() string { return b.userpwd }

func (b *RequestBuilder) SetCredentials(username, password string) *RequestBuilder {
	b.userpwd = username + ":" + password
	return b
}

func (b *RequestBuilder) credentials() (string, string, bool) {
	if b.userpwd == "" {
		return "", "", false
	}
	user, pass, _ := strings.Cut(b.userpwd, ":")
	return user, pass, true
}

// Renew releases the handle, resets every option to its default and
// acquires a fresh handle.
func (b *RequestBuilder) Renew() *RequestBuilder {
	if err := b.releaseHandle(); err != nil {
		b.logger.Error().Err(err).Msg("failed to release handle")
	}
	b.settings = defaultSettings()
	b.result = nil
	b.closed = false
	b.handle = newHandle()
	return b
}

// Close releases the handle. Execute fails with ErrClosed afterwards.
func (b *RequestBuilder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.releaseHandle()
}

func (b *RequestBuilder) IsClosed() bool { return b.closed }

func (b *RequestBuilder) releaseHandle() error {
	if b.handle == nil {
		return nil
	}
	err := b.handle.release()
	b.handle = nil
	return err
}

func fieldsFromMap(data map[string]string) []Field {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Name: k, Value: data[k]})
	}
	return fields
}

func indexOfField(fields []Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
