// Package app contains the core application logic. It wires configuration,
// logging and metrics to the buildfile loader and the build controller, and
// owns the optional health check server. It is decoupled from any specific
// entrypoint like a CLI.
package app
