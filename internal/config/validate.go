package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Script == "" {
		errs = append(errs, ValidationError{
			Field:   "script",
			Message: "worker script path is required",
		})
	}

	if cfg.MaxRestarts < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_restarts",
			Message: "must be >= 0",
		})
	}

	if cfg.RestartDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "restart_delay",
			Message: "must not be negative",
		})
	}

	if cfg.KillTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "kill_timeout",
			Message: "must be positive",
		})
	}

	if cfg.SampleInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "sample_interval",
			Message: "must be positive",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.StatusAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.StatusAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("must be host:port (got %q)", cfg.StatusAddr),
			})
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
