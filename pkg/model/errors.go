package model

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError through errors.Is.
var ErrConfiguration = errors.New("invalid timetable configuration")

// Configuration error codes.
const (
	CodeInvalidCatalogue   = "INVALID_CATALOGUE"
	CodeUnknownReference   = "UNKNOWN_REFERENCE"
	CodeDuplicateId        = "DUPLICATE_ID"
	CodeEmptyCollection    = "EMPTY_COLLECTION"
	CodeInvalidTimeslot    = "INVALID_TIMESLOT"
	CodeInvalidConstraints = "INVALID_CONSTRAINTS"
	CodeUnreadableInput    = "UNREADABLE_INPUT"
)

// ConfigurationError reports a catalogue or constraint set that cannot be scheduled at all.
type ConfigurationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (err *ConfigurationError) Error() string {
	if err == nil {
		return "<nil>"
	}

	message := err.Message
	if err.Field != "" {
		message = fmt.Sprintf("%v: %v", err.Field, err.Message)
	}
	if err.Err != nil {
		return fmt.Sprintf("%v: %v", message, err.Err)
	}
	return message
}

func (err *ConfigurationError) Unwrap() error {
	if err == nil {
		return nil
	}
	return err.Err
}

func (err *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func newConfigurationError(code, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

func wrapConfigurationError(err error, code, field, message string) *ConfigurationError {
	return &ConfigurationError{Code: code, Field: field, Message: message, Err: err}
}
