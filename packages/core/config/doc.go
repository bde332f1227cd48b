// Package config handles configuration loading and management for hitcurl.
//
// It provides functionality for:
//   - Loading configuration from .hitcurl.yaml, .hitcurl.json or TOML files
//   - Default configuration values
//   - HITCURL_* environment overrides
//   - Applying the configuration to a request builder
package config
