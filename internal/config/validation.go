package config

import (
	"fmt"
	"math"
	"strings"

	"timewarp/internal/logging"
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any error concerns field.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validate checks the configuration. It returns ValidationErrors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.TickInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "tick_interval",
			Message: "must be positive",
		})
	}
	if c.HookDelay < 0 {
		errs = append(errs, ValidationError{
			Field:   "hook_delay",
			Message: "cannot be negative",
		})
	}

	errs = append(errs, validateKeys("reload_keys", c.ReloadKeys, true)...)

	if c.Startup != nil {
		if msg := speedProblem(c.Startup.Speed); msg != "" {
			errs = append(errs, ValidationError{Field: "startup.speed", Message: msg})
		}
		if c.Startup.Duration < 0 {
			errs = append(errs, ValidationError{
				Field:   "startup.duration",
				Message: "cannot be negative",
			})
		}
	}

	for i, b := range c.Bindings {
		prefix := fmt.Sprintf("bindings[%d]", i)
		if msg := speedProblem(b.Speed); msg != "" {
			errs = append(errs, ValidationError{Field: prefix + ".speed", Message: msg})
		}
		errs = append(errs, validateKeys(prefix+".keys", b.Keys, false)...)
	}

	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func speedProblem(speed float64) string {
	switch {
	case math.IsNaN(speed) || math.IsInf(speed, 0):
		return "must be a finite number"
	case speed <= 0:
		return fmt.Sprintf("must be more than 0, found %v", speed)
	default:
		return ""
	}
}

func validateKeys(field string, keys []Key, allowEmpty bool) ValidationErrors {
	var errs ValidationErrors
	if len(keys) == 0 && !allowEmpty {
		errs = append(errs, ValidationError{Field: field, Message: "at least one key is required"})
	}
	for i, k := range keys {
		if !k.VK().Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("key code %d is out of range", uint16(k)),
			})
		}
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of: debug, info, warn, error",
		})
	}
	if _, err := logging.ParseFormat(l.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}
	if !logging.ValidOutput(l.Output) {
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: "must be one of: stdout, stderr, file, both",
		})
	}
	return errs
}
