// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags into the application's configuration and dispatches to
// the build, list, environment and graph commands.
package cli
