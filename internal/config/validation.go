package config

import (
	"fmt"
	"strings"

	"vikeyd/internal/appdetect"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateInjection(&c.Injection)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateIPC(&c.IPC)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateInput(c *InputConfig) ValidationErrors {
	var errs ValidationErrors

	switch c.Method {
	case "telex", "vni":
	default:
		errs = append(errs, ValidationError{
			Field:   "input.method",
			Message: fmt.Sprintf("must be telex or vni, got %q", c.Method),
		})
	}

	return errs
}

func validateInjection(c *InjectionConfig) ValidationErrors {
	var errs ValidationErrors

	if c.CacheTTLMs <= 0 || c.CacheTTLMs > 10_000 {
		errs = append(errs, ValidationError{
			Field:   "injection.cache_ttl_ms",
			Message: fmt.Sprintf("must be in (0, 10000], got %d", c.CacheTTLMs),
		})
	}
	if c.QueueSize < 2 || c.QueueSize > 1<<16 {
		errs = append(errs, ValidationError{
			Field:   "injection.queue_size",
			Message: fmt.Sprintf("must be in [2, 65536], got %d", c.QueueSize),
		})
	}

	for i, o := range c.Overrides {
		field := fmt.Sprintf("injection.overrides[%d]", i)
		if o.Process == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".process",
				Message: "must not be empty",
			})
		}
		if _, ok := appdetect.ParseMethod(o.Method); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".method",
				Message: fmt.Sprintf("must be fast, slow, or selection, got %q", o.Method),
			})
		}
		for name, v := range map[string]int{
			field + ".backspace_delay_us": o.BackspaceDelayUs,
			field + ".wait_delay_us":      o.WaitDelayUs,
			field + ".char_delay_us":      o.CharDelayUs,
		} {
			if v < 0 || v > 1_000_000 {
				errs = append(errs, ValidationError{
					Field:   name,
					Message: fmt.Sprintf("must be in [0, 1000000], got %d", v),
				})
			}
		}
	}

	return errs
}

func validateLogging(c *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be debug, info, warn, or error, got %q", c.Level),
		})
	}

	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be text or json, got %q", c.Format),
		})
	}

	switch c.Output {
	case "stdout", "stderr", "file", "both":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("must be stdout, stderr, file, or both, got %q", c.Output),
		})
	}

	if (c.Output == "file" || c.Output == "both") && c.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.file_path",
			Message: "required when output includes file",
		})
	}

	return errs
}

func validateIPC(c *IPCConfig) ValidationErrors {
	var errs ValidationErrors

	if !c.Enabled {
		return nil
	}
	if c.SocketPath == "" {
		errs = append(errs, ValidationError{
			Field:   "ipc.socket_path",
			Message: "must not be empty when IPC is enabled",
		})
	}
	if c.TimeoutSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "ipc.timeout_sec",
			Message: fmt.Sprintf("must be positive, got %d", c.TimeoutSec),
		})
	}

	return errs
}
