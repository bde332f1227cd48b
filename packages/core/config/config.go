package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	hitcurl "github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// ErrInvalidConfig is returned when a config file cannot be read or decoded
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the hitcurl configuration
type Config struct {
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`                      // milliseconds
	ConnectTimeout  int               `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty" mapstructure:"connectTimeout"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty" mapstructure:"followRedirects"`
	MaxRedirects    *int              `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty" mapstructure:"maxRedirects"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty" mapstructure:"validateSSL"`
	FailOnError     *bool             `json:"failOnError,omitempty" yaml:"failOnError,omitempty" mapstructure:"failOnError"`
	Encoding        *string           `json:"encoding,omitempty" yaml:"encoding,omitempty" mapstructure:"encoding"`
	AuthScheme      string            `json:"authScheme,omitempty" yaml:"authScheme,omitempty" mapstructure:"authScheme"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" mapstructure:"headers"` // Default headers for all requests
	Cookies         map[string]string `json:"cookies,omitempty" yaml:"cookies,omitempty" mapstructure:"cookies"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty" mapstructure:"verbose"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty" mapstructure:"noColor"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to an int value
func IntPtr(i int) *int {
	return &i
}

// StringPtr returns a pointer to a string value
func StringPtr(s string) *string {
	return &s
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetMaxRedirects returns the redirect limit, defaulting to unlimited
func (c *Config) GetMaxRedirects() int {
	if c.MaxRedirects == nil {
		return hitcurl.UnlimitedRedirects
	}
	return *c.MaxRedirects
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetFailOnError returns the fail on error setting, defaulting to false
func (c *Config) GetFailOnError() bool {
	return getBool(c.FailOnError, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitcurl.yaml",
	".hitcurl.yml",
	".hitcurl.json",
	"hitcurl.config.json",
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"timeout":         "HITCURL_TIMEOUT",
	"connectTimeout":  "HITCURL_CONNECT_TIMEOUT",
	"followRedirects": "HITCURL_FOLLOW_REDIRECTS",
	"maxRedirects":    "HITCURL_MAX_REDIRECTS",
	"validateSSL":     "HITCURL_VALIDATE_SSL",
	"failOnError":     "HITCURL_FAIL_ON_ERROR",
	"encoding":        "HITCURL_ENCODING",
	"authScheme":      "HITCURL_AUTH_SCHEME",
	"verbose":         "HITCURL_VERBOSE",
	"noColor":         "HITCURL_NO_COLOR",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Defaults plus environment overrides when no config file is found
	return load("")
}

// loadConfigFromFile loads configuration from a JSON, YAML or TOML file
func loadConfigFromFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// viper lowercases keys; restore the usual header spelling
	if len(config.Headers) > 0 {
		headers := make(map[string]string, len(config.Headers))
		for k, val := range config.Headers {
			headers[http.CanonicalHeaderKey(k)] = val
		}
		config.Headers = headers
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.AuthScheme != "" {
		result.AuthScheme = other.AuthScheme
	}

	// Pointer fields - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.MaxRedirects != nil {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.FailOnError != nil {
		result.FailOnError = other.FailOnError
	}
	if other.Encoding != nil {
		result.Encoding = other.Encoding
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMap(c.Headers, other.Headers)
	result.Cookies = mergeMap(c.Cookies, other.Cookies)

	return &result
}

func mergeMap(base, other map[string]string) map[string]string {
	if len(other) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(other))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Apply configures a request builder from the config
func (c *Config) Apply(b *hitcurl.RequestBuilder) error {
	if c.Timeout > 0 {
		b.SetTimeoutMs(c.Timeout)
	}
	if c.ConnectTimeout > 0 {
		b.SetConnectTimeoutMs(c.ConnectTimeout)
	}

	if c.GetFollowRedirects() {
		b.EnableFollowRedirects()
	} else {
		b.DisableFollowRedirects()
	}
	b.SetMaxRedirects(c.GetMaxRedirects())

	if c.GetValidateSSL() {
		b.EnableSSLVerify()
	} else {
		b.DisableSSLVerify()
	}

	if c.GetFailOnError() {
		b.EnableFailOnError()
	} else {
		b.DisableFailOnError()
	}

	if c.Encoding != nil {
		if err := b.SetEncoding(*c.Encoding); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if c.AuthScheme != "" {
		scheme, err := hitcurl.ParseAuthScheme(c.AuthScheme)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := b.SetHTTPAuthScheme(scheme); err != nil {
			return err
		}
	}

	for _, k := range sortedKeys(c.Headers) {
		b.AddHeader(k, c.Headers[k])
	}
	for _, k := range sortedKeys(c.Cookies) {
		b.AddCookie(k, c.Cookies[k])
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveConfig saves the configuration to a file. YAML is written for .yaml
// and .yml paths, JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
