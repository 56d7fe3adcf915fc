// Package logging builds the slog loggers used by the application. Besides
// the standard text and JSON handlers it provides a compact handler for
// terminals that prints elapsed time offsets and renders shell command
// records as command lines.
package logging
