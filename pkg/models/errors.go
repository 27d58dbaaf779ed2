package models

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates invalid engine configuration. It is fatal at
// construction time.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid engine configuration: %s", e.Reason)
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ContractViolationError indicates a record missing a required identity field
// reached the engine. The upstream cleaning stage guarantees name and
// raw_address are populated; a violation is surfaced to the caller rather
// than silently skipped, since dropping records would corrupt dataset counts.
type ContractViolationError struct {
	RecordIndex int
	Field       string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("record %d violates the input contract: required field %q is empty", e.RecordIndex, e.Field)
}

// IsContractViolation reports whether err is a ContractViolationError
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}
