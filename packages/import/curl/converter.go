// Package curl turns curl command lines into request builders and profiles.
package curl

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/profile"
)

var (
	// ErrNoURL is returned when a command has no URL
	ErrNoURL = errors.New("no URL found in curl command")
	// ErrMissingValue is returned when a flag that needs a value ends the command
	ErrMissingValue = errors.New("missing value")
)

// Converter parses curl commands.
type Converter struct {
	readFiles bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithFileReads controls whether -d @file and --data-binary @file read the
// named file. When disabled the value is kept literally.
func WithFileReads(enabled bool) Option {
	return func(c *Converter) {
		c.readFiles = enabled
	}
}

// NewConverter creates a new curl converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		readFiles: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl represents a parsed curl command.
type ParsedCurl struct {
	Method          string
	URL             string
	Headers         []http.Header
	Data            []string // -d and friends, joined with & when sent
	Form            []string // -F name=value pairs
	User            string
	AuthScheme      http.AuthScheme
	Cookie          string
	CookieJar       string
	Insecure        bool
	FollowRedirects bool
	MaxRedirects    *int
	ConnectTimeout  int // milliseconds
	MaxTime         int // milliseconds
	FailOnError     bool
	Head            bool
	Include         bool
	Compressed      bool
	Name            string

	methodSet bool
	get       bool
}

// Body returns the request body as curl would send it
func (p *ParsedCurl) Body() string {
	return strings.Join(p.Data, "&")
}

// Header returns the value of a header, ignoring case
func (p *ParsedCurl) Header(name string) (string, bool) {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// ConvertCommand parses a single curl command and builds a request from it.
func (c *Converter) ConvertCommand(curlCmd string, opts ...http.BuilderOption) (*http.RequestBuilder, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return nil, err
	}
	return ToBuilder(parsed, opts...)
}

// ParseFile parses a file of curl commands. Blank lines and # comments are
// skipped and trailing backslashes continue a command.
func (c *Converter) ParseFile(path string) ([]*ParsedCurl, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var commands []string
	var currentCmd strings.Builder
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(line, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(line)
		commands = append(commands, currentCmd.String())
		currentCmd.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if currentCmd.Len() > 0 {
		commands = append(commands, currentCmd.String())
	}

	parsed := make([]*ParsedCurl, 0, len(commands))
	for i, cmd := range commands {
		p, err := c.Parse(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to parse command %d: %w", i+1, err)
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

const (
	// booleanShortFlags can be bundled, as in -sSL
	booleanShortFlags = "sSLkfIivG"
	// valueShortFlags accept an attached value, as in -XPOST
	valueShortFlags = "XHdFubcAem"
)

// Parse parses a curl command string into a ParsedCurl struct.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{Method: "GET"}

	tokens := tokenize(strings.TrimSpace(curlCmd))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}
	tokens = expandTokens(tokens)

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		value := func() (string, error) {
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("%w for %s", ErrMissingValue, token)
			}
			i++
			return tokens[i], nil
		}

		var err error
		switch token {
		case "-X", "--request":
			var m string
			if m, err = value(); err == nil {
				parsed.Method = strings.ToUpper(m)
				parsed.methodSet = true
			}

		case "-H", "--header":
			var h string
			if h, err = value(); err == nil {
				name, val, ok := strings.Cut(h, ":")
				if ok {
					parsed.setHeader(strings.TrimSpace(name), strings.TrimSpace(val))
				}
			}

		case "-d", "--data", "--data-ascii", "--data-raw", "--data-binary":
			var d string
			if d, err = value(); err == nil {
				d, err = c.readData(token, d)
				parsed.Data = append(parsed.Data, d)
			}

		case "--data-urlencode":
			var d string
			if d, err = value(); err == nil {
				parsed.Data = append(parsed.Data, urlencodeData(d))
			}

		case "-F", "--form":
			var f string
			if f, err = value(); err == nil {
				parsed.Form = append(parsed.Form, f)
			}

		case "-u", "--user":
			parsed.User, err = value()

		case "--basic":
			parsed.AuthScheme = http.AuthBasic
		case "--digest":
			parsed.AuthScheme = http.AuthDigest
		case "--ntlm":
			parsed.AuthScheme = http.AuthNTLM
		case "--negotiate":
			parsed.AuthScheme = http.AuthNegotiate
		case "--anyauth":
			parsed.AuthScheme = http.AuthAny

		case "-A", "--user-agent":
			var ua string
			if ua, err = value(); err == nil {
				parsed.setHeader("User-Agent", ua)
			}

		case "-e", "--referer":
			var ref string
			if ref, err = value(); err == nil {
				parsed.setHeader("Referer", ref)
			}

		case "-b", "--cookie":
			parsed.Cookie, err = value()

		case "-c", "--cookie-jar":
			parsed.CookieJar, err = value()

		case "-k", "--insecure":
			parsed.Insecure = true

		case "-L", "--location":
			parsed.FollowRedirects = true

		case "--max-redirs":
			var n string
			if n, err = value(); err == nil {
				var limit int
				if limit, err = strconv.Atoi(n); err == nil {
					parsed.MaxRedirects = &limit
				}
			}

		case "--connect-timeout":
			var s string
			if s, err = value(); err == nil {
				parsed.ConnectTimeout, err = secondsToMs(s)
			}

		case "-m", "--max-time":
			var s string
			if s, err = value(); err == nil {
				parsed.MaxTime, err = secondsToMs(s)
			}

		case "-f", "--fail":
			parsed.FailOnError = true

		case "-I", "--head":
			parsed.Head = true

		case "-i", "--include":
			parsed.Include = true

		case "--compressed":
			parsed.Compressed = true

		case "--url":
			parsed.URL, err = value()

		case "-G", "--get":
			parsed.get = true

		case "-s", "--silent", "-S", "--show-error", "-v", "--verbose":
			// output flags with no effect on the request

		default:
			if strings.HasPrefix(token, "-") {
				// Skip unknown flags with potential values
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i++
				}
				continue
			}
			if parsed.URL == "" {
				parsed.URL = token
			}
		}

		if err != nil {
			return nil, err
		}
	}

	if parsed.URL == "" {
		return nil, ErrNoURL
	}

	// -G moves the data into the query string
	if parsed.get && len(parsed.Data) > 0 {
		sep := "?"
		if strings.Contains(parsed.URL, "?") {
			sep = "&"
		}
		parsed.URL += sep + parsed.Body()
		parsed.Data = nil
	}

	switch {
	case parsed.methodSet:
	case parsed.Head:
		parsed.Method = "HEAD"
	case len(parsed.Data) > 0 || len(parsed.Form) > 0:
		parsed.Method = "POST"
	}

	parsed.Name = generateName(parsed.URL, parsed.Method)
	return parsed, nil
}

func (p *ParsedCurl) setHeader(name, value string) {
	for i := range p.Headers {
		if strings.EqualFold(p.Headers[i].Name, name) {
			p.Headers[i].Value = value
			return
		}
	}
	p.Headers = append(p.Headers, http.Header{Name: name, Value: value})
}

func (c *Converter) readData(flag, value string) (string, error) {
	path, isFile := strings.CutPrefix(value, "@")
	if !isFile || !c.readFiles || flag == "--data-raw" {
		return value, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", flag, err)
	}
	if flag == "--data-binary" {
		return string(data), nil
	}
	// curl strips line breaks from -d @file
	return strings.NewReplacer("\r", "", "\n", "").Replace(string(data)), nil
}

// urlencodeData follows curl's --data-urlencode forms: "content",
// "=content" and "name=content".
func urlencodeData(d string) string {
	name, content, ok := strings.Cut(d, "=")
	switch {
	case !ok:
		return url.QueryEscape(d)
	case name == "":
		return url.QueryEscape(content)
	default:
		return name + "=" + url.QueryEscape(content)
	}
}

func secondsToMs(s string) (int, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return int(secs * 1000), nil
}

// Fields returns the -F multipart fields. Data from -d and friends is not
// decoded; Body returns it exactly as curl would send it.
func (p *ParsedCurl) Fields() (map[string]string, error) {
	if len(p.Form) > 0 && len(p.Data) > 0 {
		return nil, errors.New("-d and -F cannot be combined")
	}
	if len(p.Form) == 0 {
		return nil, nil
	}

	fields := make(map[string]string, len(p.Form))
	for _, f := range p.Form {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid -F value %q", f)
		}
		fields[name] = value
	}
	return fields, nil
}

// parseCookies splits a -b value of the form "a=1; b=2". A value without
// "=" names a cookie file.
func parseCookies(raw string) (map[string]string, string) {
	if raw == "" {
		return nil, ""
	}
	if !strings.Contains(raw, "=") {
		return nil, raw
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			out[name] = value
		}
	}
	return out, ""
}

// ToBuilder configures a request builder the way curl would run the command.
// Unlike the builder defaults, certificates are verified unless -k is given
// and redirects are followed only with -L.
func ToBuilder(parsed *ParsedCurl, opts ...http.BuilderOption) (*http.RequestBuilder, error) {
	fields, err := parsed.Fields()
	if err != nil {
		return nil, err
	}

	b := http.NewRequestBuilder(opts...).SetURL(parsed.URL)

	cookieValue := parsed.Cookie
	for _, h := range parsed.Headers {
		if strings.EqualFold(h.Name, "Cookie") {
			cookieValue = strings.Trim(cookieValue+"; "+h.Value, "; ")
			continue
		}
		b.AddHeader(h.Name, h.Value)
	}

	cookies, cookieFile := parseCookies(cookieValue)
	for _, name := range sortedKeys(cookies) {
		b.AddCookie(name, cookies[name])
	}
	// -b reads the file and -c writes it; curl sends no cookie for either.
	// A missing -b file is ignored, as curl does.
	if cookieFile != "" {
		if err := b.LoadCookieFile(cookieFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("-b: %w", err)
		}
	}
	if parsed.CookieJar != "" {
		b.EnableCookieJar(parsed.CookieJar).RemoveCookie(parsed.CookieJar)
	}

	if len(parsed.Form) > 0 {
		b.DisableSafeUpload()
	}

	switch parsed.Method {
	case "GET":
		if len(parsed.Data) > 0 {
			// -X GET with data still sends the body
			b.SetCustomMethod("GET")
		}
	case "HEAD":
		b.DisableFetchBody()
	case "POST":
		b.EnablePost(fields)
	default:
		b.SetCustomMethod(parsed.Method)
		if fields != nil {
			b.AddPostFields(fields)
		}
	}
	if len(parsed.Data) > 0 && parsed.Method != "HEAD" {
		b.SetPostBody([]byte(parsed.Body()))
	}

	if parsed.Insecure {
		b.DisableSSLVerify()
	} else {
		b.EnableSSLVerify()
	}
	if parsed.FollowRedirects {
		b.EnableFollowRedirects()
	} else {
		b.DisableFollowRedirects()
	}
	if parsed.MaxRedirects != nil {
		b.SetMaxRedirects(*parsed.MaxRedirects)
	}
	if parsed.ConnectTimeout > 0 {
		b.SetConnectTimeoutMs(parsed.ConnectTimeout)
	}
	if parsed.MaxTime > 0 {
		b.SetTimeoutMs(parsed.MaxTime)
	}
	if parsed.FailOnError {
		b.EnableFailOnError()
	}
	if parsed.Include {
		b.EnableIncludeHeader()
	}
	if parsed.Compressed {
		if err := b.SetEncoding(""); err != nil {
			return nil, err
		}
	}

	if parsed.User != "" {
		user, pass, _ := strings.Cut(parsed.User, ":")
		b.SetCredentials(user, pass)
	}
	if parsed.AuthScheme != "" {
		if err := b.SetHTTPAuthScheme(parsed.AuthScheme); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// ToProfile converts a parsed command into a request profile that can be
// saved and replayed with hitcurl run.
func ToProfile(parsed *ParsedCurl) (*profile.Profile, error) {
	fields, err := parsed.Fields()
	if err != nil {
		return nil, err
	}

	p := &profile.Profile{
		Name:           parsed.Name,
		URL:            parsed.URL,
		Method:         parsed.Method,
		Timeout:        parsed.MaxTime,
		ConnectTimeout: parsed.ConnectTimeout,
		MaxRedirects:   parsed.MaxRedirects,
		IncludeHeader:  parsed.Include,
		Uploads:        len(parsed.Form) > 0,
		CookieJar:      parsed.CookieJar,
	}

	for _, h := range parsed.Headers {
		if p.Headers == nil {
			p.Headers = make(map[string]string, len(parsed.Headers))
		}
		p.Headers[h.Name] = h.Value
	}
	cookies, cookieFile := parseCookies(parsed.Cookie)
	if len(cookies) > 0 {
		p.Cookies = cookies
	}
	p.CookieFile = cookieFile
	p.Form = fields
	if len(parsed.Data) > 0 {
		p.Body = parsed.Body()
	}

	follow := parsed.FollowRedirects
	p.FollowRedirects = &follow
	verify := !parsed.Insecure
	p.VerifySSL = &verify
	if parsed.FailOnError {
		p.FailOnError = &parsed.FailOnError
	}
	if parsed.Compressed {
		all := ""
		p.Encoding = &all
	}

	if parsed.User != "" {
		user, pass, _ := strings.Cut(parsed.User, ":")
		p.Auth = &profile.Auth{Username: user, Password: pass, Scheme: string(parsed.AuthScheme)}
	}

	return p, p.Validate()
}

// expandTokens splits --flag=value, -XPOST and bundled short flags such
// as -sSL. Only tokens in flag position are touched.
func expandTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case strings.HasPrefix(tok, "--") && strings.Contains(tok, "="):
			flag, value, _ := strings.Cut(tok, "=")
			out = append(out, flag, value)
		case len(tok) > 2 && tok[0] == '-' && tok[1] != '-' && allBooleanFlags(tok[1:]):
			for _, r := range tok[1:] {
				out = append(out, "-"+string(r))
			}
		case len(tok) > 2 && tok[0] == '-' && strings.IndexByte(valueShortFlags, tok[1]) >= 0:
			out = append(out, tok[:2], tok[2:])
		case len(tok) == 2 && tok[0] == '-' && strings.IndexByte(valueShortFlags, tok[1]) >= 0,
			strings.HasPrefix(tok, "--") && takesValue(tok):
			// keep the value verbatim even if it looks like a flag
			out = append(out, tok)
			if i+1 < len(tokens) {
				i++
				out = append(out, tokens[i])
			}
		default:
			out = append(out, tok)
		}
	}
	return out
}

func takesValue(flag string) bool {
	switch flag {
	case "--request", "--header", "--data", "--data-ascii", "--data-raw", "--data-binary",
		"--data-urlencode", "--form", "--user", "--user-agent", "--referer", "--cookie",
		"--cookie-jar", "--max-redirs", "--connect-timeout", "--max-time", "--url":
		return true
	}
	return false
}

func allBooleanFlags(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(booleanShortFlags, r) {
			return false
		}
	}
	return true
}

// tokenize splits a curl command into tokens the way a POSIX shell would
// for the quoting curl examples use.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	started := false

	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	for _, r := range cmd {
		if escaped {
			escaped = false
			if r == '\n' {
				continue
			}
			current.WriteRune(r)
			started = true
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if inDoubleQuote {
				current.WriteRune(r)
			} else {
				inSingleQuote = !inSingleQuote
				started = true
			}
		case '"':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				inDoubleQuote = !inDoubleQuote
				started = true
			}
		case ' ', '\t', '\n', '\r':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else {
				flush()
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	flush()
	return tokens
}

// isURL checks if a string looks like a URL.
func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var urlPathPattern = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.-]*://)?[^/?#]+(/[^?#]*)?`)

// generateName generates a request name from the URL and method.
func generateName(rawURL, method string) string {
	path := "/"
	if matches := urlPathPattern.FindStringSubmatch(rawURL); len(matches) > 1 && matches[1] != "" {
		path = matches[1]
	}

	path = strings.Trim(path, "/")
	if path == "" {
		path = "root"
	}

	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "-", "_")

	return strings.ToLower(method) + "_" + path
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
