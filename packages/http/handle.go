package http

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/go-ntlmssp"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second

	// curl marks HttpOnly cookies by prefixing the domain field
	httpOnlyPrefix = "#HttpOnly_"
)

// handle owns the connection pool and cookie engine for one builder.
// The transport is rebuilt only when an option it depends on changes.
type handle struct {
	transport        *http.Transport
	sslVerify        bool
	connectTimeoutMs int
	jar              *persistentJar
}

func newHandle() *handle {
	return &handle{}
}

// configure brings the transport in line with the builder settings.
func (h *handle) configure(s *settings) *http.Transport {
	if h.transport != nil && h.sslVerify == s.sslVerify && h.connectTimeoutMs == s.connectTimeoutMs {
		return h.transport
	}
	if h.transport != nil {
		h.transport.CloseIdleConnections()
	}

	connectTimeout := time.Duration(s.connectTimeoutMs) * time.Millisecond
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	h.transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: connectTimeout,
		ForceAttemptHTTP2:   true,
		// Content-Encoding is handled by the builder so it can honor the
		// configured encoding and report decode failures.
		DisableCompression: true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.sslVerify,
		},
	}
	h.sslVerify = s.sslVerify
	h.connectTimeoutMs = s.connectTimeoutMs
	return h.transport
}

// negotiator wraps the transport for NTLM and Negotiate handshakes
func (h *handle) negotiator() http.RoundTripper {
	return ntlmssp.Negotiator{RoundTripper: h.transport}
}

func (h *handle) ensureJar() *persistentJar {
	if h.jar == nil {
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		h.jar = &persistentJar{jar: jar, entries: make(map[string]*http.Cookie)}
	}
	return h.jar
}

// enableJar sets the file cookies are written to on release. Cookies
// already in the file are loaded first; a missing file is not an error.
func (h *handle) enableJar(path string) error {
	j := h.ensureJar()
	j.path = path
	if err := j.load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// loadCookies reads a cookie file without writing it back.
func (h *handle) loadCookies(path string) error {
	return h.ensureJar().load(path)
}

func (h *handle) cookieJar() http.CookieJar {
	if h.jar == nil {
		return nil
	}
	return h.jar
}

// release writes the cookie jar and drops pooled connections.
func (h *handle) release() error {
	var err error
	if h.jar != nil {
		err = h.jar.save()
	}
	if h.transport != nil {
		h.transport.CloseIdleConnections()
	}
	return err
}

// persistentJar is a cookie jar that remembers what it received so it can
// be written out as a Netscape cookie file.
type persistentJar struct {
	jar     *cookiejar.Jar
	path    string
	entries map[string]*http.Cookie
	order   []string
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	now := time.Now()
	for _, c := range cookies {
		stored := *c
		if stored.Domain == "" {
			stored.Domain = u.Hostname()
		} else if !strings.HasPrefix(stored.Domain, ".") {
			stored.Domain = "." + stored.Domain
		}
		if stored.Path == "" {
			stored.Path = "/"
		}

		key := stored.Domain + "\t" + stored.Path + "\t" + stored.Name
		if stored.MaxAge < 0 || expired(&stored, now) {
			delete(j.entries, key)
			continue
		}
		if _, ok := j.entries[key]; !ok {
			j.order = append(j.order, key)
		}
		j.entries[key] = &stored
	}
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// load reads a Netscape cookie file, the format curl's -b and -c use.
// Entries that have already expired are skipped.
func (j *persistentJar) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}
	defer f.Close()

	now := time.Now()
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, httpOnlyPrefix); ok {
			line, httpOnly = rest, true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "\t", 7)
		if len(parts) != 7 {
			return fmt.Errorf("%s:%d: want 7 tab-separated fields, got %d", path, lineNo, len(parts))
		}
		expires, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			return fmt.Errorf("%s:%d: invalid expiry %q", path, lineNo, parts[4])
		}

		host := strings.TrimPrefix(parts[0], ".")
		c := &http.Cookie{
			Name:     parts[5],
			Value:    parts[6],
			Path:     parts[2],
			Secure:   parts[3] == "TRUE",
			HttpOnly: httpOnly,
		}
		if parts[1] == "TRUE" {
			c.Domain = host
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
			if expired(c, now) {
				continue
			}
		}

		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		j.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: c.Path}, []*http.Cookie{c})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}
	return nil
}

func expired(c *http.Cookie, now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func (j *persistentJar) save() error {
	if j.path == "" {
		return nil
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write cookie jar: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Netscape HTTP Cookie File")
	fmt.Fprintln(w, "# This file was generated by hitcurl. Edit at your own risk.")
	fmt.Fprintln(w)

	now := time.Now()
	written := make(map[string]bool, len(j.entries))
	for _, key := range j.order {
		c, ok := j.entries[key]
		if !ok || written[key] || expired(c, now) {
			continue
		}
		written[key] = true
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		domain := c.Domain
		if c.HttpOnly {
			domain = httpOnlyPrefix + domain
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			domain,
			netscapeBool(strings.HasPrefix(c.Domain, ".")),
			c.Path,
			netscapeBool(c.Secure),
			strconv.FormatInt(expires, 10),
			c.Name,
			c.Value,
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write cookie jar: %w", err)
	}
	return nil
}

func netscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
