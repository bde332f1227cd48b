package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		ConnectTimeout:  10000, // 10 seconds
		FollowRedirects: BoolPtr(true),
		ValidateSSL:     BoolPtr(true),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.ConnectTimeout == defaults.ConnectTimeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.GetMaxRedirects() == defaults.GetMaxRedirects() &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.GetFailOnError() == defaults.GetFailOnError() &&
		c.Encoding == nil &&
		c.AuthScheme == "" &&
		len(c.Headers) == 0 &&
		len(c.Cookies) == 0 &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
