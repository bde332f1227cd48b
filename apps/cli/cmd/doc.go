// Package cmd implements the hitcurl CLI commands using Cobra.
//
// Available commands:
//   - exec: Send one request described by curl-like flags
//   - curl: Run a pasted curl command
//   - run: Execute saved YAML request profiles, optionally repeated or watched
//   - import: Convert a file of curl commands into profiles
//   - validate, list: Inspect profiles without sending them
//   - init: Write a config file and an example profile
//   - version, completion
//
// Failures map to the exit codes in exitcodes.go.
package cmd
