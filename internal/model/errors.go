package model

import "fmt"

// ValidationError reports a rejected configuration parameter.
// Field uses the config key name (e.g. "energy_capacity_mwh", "horizon").
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
