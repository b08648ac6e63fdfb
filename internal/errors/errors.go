// Package errors defines the error taxonomy shared by the relay components.
// Every error carries a code so callers can classify wrapped errors without
// depending on concrete types.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown  = "UNKNOWN"
	CodeConfig   = "CONFIG"
	CodeNetwork  = "NETWORK"
	CodeUpstream = "UPSTREAM"
	CodeParse    = "PARSE"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't contain one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ConfigurationError reports missing or invalid settings. It is fatal at startup.
type ConfigurationError struct {
	base Error
}

func (e *ConfigurationError) Error() string { return e.base.Error() }
func (e *ConfigurationError) Code() string  { return e.base.Code() }
func (e *ConfigurationError) Unwrap() error { return e.base.Unwrap() }

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{
		base: Error{
			code:    CodeConfig,
			message: message,
			err:     cause,
		},
	}
}

// NetworkError reports a transport failure before any response was received.
type NetworkError struct {
	base Error
}

func (e *NetworkError) Error() string { return e.base.Error() }
func (e *NetworkError) Code() string  { return e.base.Code() }
func (e *NetworkError) Unwrap() error { return e.base.Unwrap() }

func NewNetworkError(message string, cause error) error {
	return &NetworkError{
		base: Error{
			code:    CodeNetwork,
			message: message,
			err:     cause,
		},
	}
}

// UpstreamError reports a non-2xx answer or a timeout from the remote service.
// StatusCode is zero for timeouts.
type UpstreamError struct {
	base       Error
	StatusCode int
}

func (e *UpstreamError) Error() string { return e.base.Error() }
func (e *UpstreamError) Code() string  { return e.base.Code() }
func (e *UpstreamError) Unwrap() error { return e.base.Unwrap() }

func NewUpstreamError(message string, statusCode int, cause error) error {
	return &UpstreamError{
		base: Error{
			code:    CodeUpstream,
			message: message,
			err:     cause,
		},
		StatusCode: statusCode,
	}
}

// ParseError reports a response body that could not be understood.
type ParseError struct {
	base Error
}

func (e *ParseError) Error() string { return e.base.Error() }
func (e *ParseError) Code() string  { return e.base.Code() }
func (e *ParseError) Unwrap() error { return e.base.Unwrap() }

func NewParseError(message string, cause error) error {
	return &ParseError{
		base: Error{
			code:    CodeParse,
			message: message,
			err:     cause,
		},
	}
}

func IsConfiguration(err error) bool { return Code(err) == CodeConfig }
func IsNetwork(err error) bool       { return Code(err) == CodeNetwork }
func IsUpstream(err error) bool      { return Code(err) == CodeUpstream }
func IsParse(err error) bool         { return Code(err) == CodeParse }
