package config

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/logging"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Buildfile == "" {
		errs = append(errs, errors.New("buildfile cannot be empty"))
	}
	if c.Limit < 1 {
		errs = append(errs, fmt.Errorf("limit must be at least 1, got %d", c.Limit))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: must be 'debug', 'info', 'warn', or 'error': %w", err))
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON, logging.FormatCompact:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text', 'json' or 'compact'", c.Log.Format))
	}
	if c.Healthcheck.Port < 0 || c.Healthcheck.Port > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck port %d out of range", c.Healthcheck.Port))
	}
	return errors.Join(errs...)
}
