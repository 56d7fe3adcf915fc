// Package integration_tests drives the whole application through the CLI
// against buildfiles written into temporary workspaces. Spawned commands go
// to a recording fake process group, so scenarios stay hermetic.
package integration_tests
