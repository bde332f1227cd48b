package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcurl/packages/capture"
	"github.com/abdul-hamid-achik/hitcurl/packages/core/env"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
)

var (
	// ErrInvalidProfile is returned for profiles that fail validation
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrUnresolved is returned when a placeholder has no value at build time
	ErrUnresolved = errors.New("unresolved placeholder")
)

// Auth holds credentials and the scheme used to present them
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Scheme   string `yaml:"scheme,omitempty"`
}

// Profile is a saved request. String values may contain {{placeholders}}.
type Profile struct {
	Name            string            `yaml:"name,omitempty"`
	URL             string            `yaml:"url"`
	Method          string            `yaml:"method,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Cookies         map[string]string `yaml:"cookies,omitempty"`
	Form            map[string]string `yaml:"form,omitempty"`
	Body            string            `yaml:"body,omitempty"` // sent as is, instead of form
	Auth            *Auth             `yaml:"auth,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty"`        // milliseconds
	ConnectTimeout  int               `yaml:"connectTimeout,omitempty"` // milliseconds
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects    *int              `yaml:"maxRedirects,omitempty"`
	Encoding        *string           `yaml:"encoding,omitempty"`
	VerifySSL       *bool             `yaml:"verifySSL,omitempty"`
	FailOnError     *bool             `yaml:"failOnError,omitempty"`
	IncludeHeader   bool              `yaml:"includeHeader,omitempty"`
	Uploads         bool              `yaml:"uploads,omitempty"`    // treat "@path" form values as files
	CookieJar       string            `yaml:"cookieJar,omitempty"`  // read before, written after
	CookieFile      string            `yaml:"cookieFile,omitempty"` // read only
	Captures        []capture.Spec    `yaml:"captures,omitempty"`
}

// Load reads a profile from a YAML file
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a profile
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the profile as YAML
func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidProfile)
	}
	if p.Body != "" && len(p.Form) > 0 {
		return fmt.Errorf("%w: body and form cannot both be set", ErrInvalidProfile)
	}
	if p.Encoding != nil && !http.IsValidEncoding(*p.Encoding) {
		return fmt.Errorf("%w: encoding %q", ErrInvalidProfile, *p.Encoding)
	}
	if p.Auth != nil && p.Auth.Scheme != "" {
		if _, err := http.ParseAuthScheme(p.Auth.Scheme); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	for _, c := range p.Captures {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
	}
	return nil
}

// Build resolves the profile's placeholders and returns a configured
// builder. The builder is not executed.
func (p *Profile) Build(resolver *env.Resolver, opts ...http.BuilderOption) (*http.RequestBuilder, error) {
	if resolver == nil {
		resolver = env.NewResolver()
	}

	url := resolver.Resolve(p.URL)
	if missing := resolver.GetUnresolvedVariables(url); len(missing) > 0 {
		return nil, fmt.Errorf("%w in url: %s", ErrUnresolved, strings.Join(missing, ", "))
	}

	b := http.NewRequestBuilder(opts...).SetURL(url)

	// Headers go first so a JSON Content-Type shapes the form encoding.
	headers := resolver.ResolveAll(p.Headers)
	for _, k := range sortedKeys(headers) {
		b.AddHeader(k, headers[k])
	}
	cookies := resolver.ResolveAll(p.Cookies)
	for _, k := range sortedKeys(cookies) {
		b.AddCookie(k, cookies[k])
	}

	if p.Uploads {
		b.DisableSafeUpload()
	}

	var form map[string]string
	if len(p.Form) > 0 {
		form = resolver.ResolveAll(p.Form)
	}

	switch method := strings.ToUpper(strings.TrimSpace(p.Method)); method {
	case "", "GET":
	case "POST":
		b.EnablePost(form)
	case "HEAD":
		b.DisableFetchBody()
	default:
		b.SetCustomMethod(method)
		if form != nil {
			b.AddPostFields(form)
		}
	}
	if p.Body != "" && (b.IsPost() || b.Method() == http.MethodCustom) {
		b.SetPostBody([]byte(resolver.Resolve(p.Body)))
	}

	if err := p.applyOptions(b, resolver); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Profile) applyOptions(b *http.RequestBuilder, resolver *env.Resolver) error {
	if p.Timeout > 0 {
		b.SetTimeoutMs(p.Timeout)
	}
	if p.ConnectTimeout > 0 {
		b.SetConnectTimeoutMs(p.ConnectTimeout)
	}
	if p.FollowRedirects != nil && !*p.FollowRedirects {
		b.DisableFollowRedirects()
	}
	if p.MaxRedirects != nil {
		b.SetMaxRedirects(*p.MaxRedirects)
	}
	if p.VerifySSL != nil && *p.VerifySSL {
		b.EnableSSLVerify()
	}
	if p.FailOnError != nil && *p.FailOnError {
		b.EnableFailOnError()
	}
	if p.IncludeHeader {
		b.EnableIncludeHeader()
	}
	if p.CookieFile != "" {
		if err := b.LoadCookieFile(resolver.Resolve(p.CookieFile)); err != nil {
			return err
		}
	}
	if p.CookieJar != "" {
		jar := resolver.Resolve(p.CookieJar)
		b.EnableCookieJar(jar).RemoveCookie(jar)
	}
	if p.Encoding != nil {
		if err := b.SetEncoding(*p.Encoding); err != nil {
			return err
		}
	}
	if p.Auth != nil {
		b.SetCredentials(resolver.Resolve(p.Auth.Username), resolver.Resolve(p.Auth.Password))
		if p.Auth.Scheme != "" {
			scheme, err := http.ParseAuthScheme(p.Auth.Scheme)
			if err != nil {
				return err
			}
			if err := b.SetHTTPAuthScheme(scheme); err != nil {
				return err
			}
		}
	}
	return nil
}

// Capture extracts the profile's captures from result and stores them in
// resolver under the profile name.
func (p *Profile) Capture(result *http.Result, resolver *env.Resolver) map[string]any {
	values := capture.ExtractAll(result, p.Captures)
	source := p.Name
	if source == "" {
		source = "profile"
	}
	for name, v := range values {
		resolver.SetCapture(source, name, v)
	}
	return values
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
