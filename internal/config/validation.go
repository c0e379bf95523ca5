package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateEnvKey checks that key can be used as an environment variable name.
func ValidateEnvKey(field, key string) error {
	if !envKeyPattern.MatchString(key) {
		return ValidationError{
			Field:   field,
			Value:   key,
			Message: fmt.Sprintf("%q is not a valid environment variable name", key),
		}
	}
	return nil
}

// FormatValidationError creates a consistent validation error message
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}

	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}

// Validate checks a loaded configuration for values relay cannot run with.
func Validate(cfg RelayConfig) error {
	var errs ValidationErrors

	if err := ValidateOneOf("store.driver", cfg.Store.Driver, []string{StoreDriverYAML, StoreDriverPostgres}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if cfg.Store.Driver == StoreDriverPostgres && strings.TrimSpace(cfg.Store.DSN) == "" {
		errs.Add("store.dsn", "is required for the postgres driver")
	}
	if err := ValidateOneOf("secrets.policy", cfg.Secrets.Policy, []string{SecretPolicyFailOpen, SecretPolicyFailClosed}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if cfg.Protocol.AttemptBudget <= 0 {
		errs.Add("protocol.attemptBudget", "must be positive", cfg.Protocol.AttemptBudget)
	}

	durations := map[string]time.Duration{
		"protocol.lineWait":          cfg.Protocol.LineWait,
		"protocol.initTimeout":       cfg.Protocol.InitTimeout,
		"protocol.listTimeout":       cfg.Protocol.ListTimeout,
		"protocol.callTimeout":       cfg.Protocol.CallTimeout,
		"supervisor.stopGracePeriod": cfg.Supervisor.StopGracePeriod,
	}
	for field, d := range durations {
		if d <= 0 {
			errs.Add(field, "must be a positive duration", d.String())
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
