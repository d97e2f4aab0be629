package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput    = "INVALID_INPUT"
	ErrValueOutOfRange = "VALUE_OUT_OF_RANGE"
	ErrConfiguration   = "CONFIGURATION_ERROR"
	ErrRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrValidation      = "VALIDATION_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ConfigLoadError is fatal at startup: the risk configuration source is
// missing, malformed or inconsistent.
type ConfigLoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigLoadError) Error() string {
	msg := fmt.Sprintf("failed to load risk configuration from %s: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// UnknownParameterError means a key absent from the configuration was requested.
// It signals broken wiring, never bad user input.
type UnknownParameterError struct {
	Key ParameterKey
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", string(e.Key))
}

// ValueOutOfRangeError means a well-formed number matched none of the
// configured ranges for its parameter.
type ValueOutOfRangeError struct {
	Key   ParameterKey
	Value float64
	Min   float64
	Max   float64
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("value %s out of acceptable range for %s (%s..%s)",
		formatNumber(e.Value), e.Key, formatNumber(e.Min), formatNumber(e.Max))
}

// UnclassifiedScoreError means the total score fell into a gap of the risk
// level table.
type UnclassifiedScoreError struct {
	Score int
}

func (e *UnclassifiedScoreError) Error() string {
	return fmt.Sprintf("score %d matches no configured risk level", e.Score)
}

// IsConfigurationDefect reports whether err signals a broken risk table or
// wiring rather than bad user input.
func IsConfigurationDefect(err error) bool {
	var unknown *UnknownParameterError
	var unclassified *UnclassifiedScoreError
	var load *ConfigLoadError
	return errors.As(err, &unknown) || errors.As(err, &unclassified) || errors.As(err, &load)
}

// IsInputError reports whether err is a recoverable user input error.
func IsInputError(err error) bool {
	var validation *ValidationError
	var outOfRange *ValueOutOfRangeError
	return errors.As(err, &validation) || errors.As(err, &outOfRange) || errors.Is(err, ErrIncompleteInput)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
