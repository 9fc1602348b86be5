// Package errors provides structured error handling for nmap-parse.
// It defines error codes and the typed errors raised while reading sources,
// rendering facts and loading configuration.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeCanceled      ErrorCode = "CANCELED"

	// Source errors.
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	CodeMalformedInput    ErrorCode = "MALFORMED_INPUT"

	// Output errors.
	CodeRender   ErrorCode = "RENDER"
	CodeTemplate ErrorCode = "TEMPLATE"
)

// SourceError represents a failure to turn one input source into facts.
type SourceError struct {
	Code    ErrorCode
	Message string
	Source  string
	Cause   error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Source != "" {
		msg = fmt.Sprintf("%s (source: %s)", msg, e.Source)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError creates a source error for the given path.
func NewSourceError(code ErrorCode, message, source string) *SourceError {
	return &SourceError{
		Code:    code,
		Message: message,
		Source:  source,
	}
}

// WrapSourceError wraps an existing error as a source error.
func WrapSourceError(code ErrorCode, message, source string, err error) *SourceError {
	return &SourceError{
		Code:    code,
		Message: message,
		Source:  source,
		Cause:   err,
	}
}

// RenderError is raised when a template references a field the fact
// does not provide.
type RenderError struct {
	Code  ErrorCode
	Field string
	Host  string
	Port  string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("[%s] formatting error for entry (ip: %s, port: %s): missing key '%s'",
		e.Code, e.Host, e.Port, e.Field)
}

// NewRenderError creates a render error for the given entry and field.
func NewRenderError(field, host, port string) *RenderError {
	return &RenderError{
		Code:  CodeRender,
		Field: field,
		Host:  host,
		Port:  port,
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *SourceError:
		return e.Code
	case *RenderError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsFatal determines if an error should stop the process. Only errors raised
// before any source is read qualify.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation, CodeTemplate:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrUnsupportedFormat creates an error for a source whose kind has no parser.
func ErrUnsupportedFormat(source string) *SourceError {
	return NewSourceError(CodeUnsupportedFormat,
		"Unsupported file format, please use a .gnmap or .xml file", source)
}

// ErrMalformedInput creates an error for a source that could not be read or parsed.
func ErrMalformedInput(source string, err error) *SourceError {
	return WrapSourceError(CodeMalformedInput, "Failed to parse source", source, err)
}

// ErrTemplateSyntax creates an error for an output template that cannot be compiled.
func ErrTemplateSyntax(template string, err error) *ConfigError {
	e := WrapConfigError(CodeTemplate, "Invalid output template", err)
	e.Field = "format"
	e.Value = template
	return e
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}
