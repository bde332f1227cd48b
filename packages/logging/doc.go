// Package logging builds the zerolog loggers used by the CLI and passed to
// request builders.
package logging
