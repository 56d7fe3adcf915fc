package config

import "runtime"

// Defaults returns the built-in value of every setting.
func Defaults() map[string]any {
	return map[string]any{
		"buildfile":        "Buildfile.hcl",
		"directory":        ".",
		"limit":            runtime.NumCPU(),
		"log.level":        "info",
		"log.format":       "compact",
		"healthcheck.port": 0,
	}
}
