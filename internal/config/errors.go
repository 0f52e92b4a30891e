package config

import "fmt"

// ConfigurationError is a setting that prevents the process from starting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

func NewConfigurationError(key, reason string) *ConfigurationError {
	return &ConfigurationError{
		Key:    key,
		Reason: reason,
	}
}
