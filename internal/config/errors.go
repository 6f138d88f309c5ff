package config

import "errors"

// ErrInvalidConfig matches every configuration failure via errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports a missing or malformed configuration field. It is fatal:
// the run stops before any data access.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "config error: " + e.Field + " " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.Err}
}
