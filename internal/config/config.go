package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read as settings.
const EnvPrefix = "BUILDGRID_"

// DefaultFile is the settings file looked up in the working directory when
// no explicit path is given.
const DefaultFile = "buildgrid.yaml"

// Config holds all the settings an App instance runs with.
type Config struct {
	// Buildfile is a single .hcl file or a directory searched for them.
	Buildfile string `koanf:"buildfile"`
	// Directory is changed into before the buildfile is loaded.
	Directory   string      `koanf:"directory"`
	Limit       int         `koanf:"limit"`
	Log         Log         `koanf:"log"`
	Healthcheck Healthcheck `koanf:"healthcheck"`
}

// Log configures the application logger.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Healthcheck configures the HTTP server exposing /health and /metrics.
// A zero port disables it.
type Healthcheck struct {
	Port int `koanf:"port"`
}

// Options controls where Load reads settings from.
type Options struct {
	// File is an explicit settings file. It must exist when set.
	File string
	// Flags holds the command-line values the user set, keyed like the
	// settings themselves ("log.level", "limit").
	Flags map[string]any
}

// Load merges every source in priority order and returns the validated
// result.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if err := loadFile(k, opts.File); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	for key, value := range opts.Flags {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFile reads the YAML settings file. A missing default file is not an
// error, a missing explicit one is.
func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return nil
}

// envTransform maps BUILDGRID_LOG_LEVEL to log.level.
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}
