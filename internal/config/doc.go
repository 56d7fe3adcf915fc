// Package config loads the application settings. Values are layered with
// koanf: built-in defaults, then an optional YAML file, then BUILDGRID_
// environment variables, then command-line flags the user explicitly set.
// The merged result is unmarshalled into Config and validated.
package config
