package http

import (
	"errors"
	"fmt"
)

// ClientError represents the different kinds of errors a request can end with
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	// ConfigurationError: a named client was requested but is not configured
	ConfigurationError ErrorType = "configuration"
	// ConnectionError: the transport failed to establish or complete the exchange
	ConnectionError ErrorType = "connection"
	// HTTPError: a response arrived with a non-success status
	HTTPError ErrorType = "http"
	// ValidationError: the request could not be built from the given inputs
	ValidationError ErrorType = "validation"
)

// configurationError is returned by the registry for unknown client names
type configurationError struct {
	name    string
	wrapped error
}

func (e *configurationError) Error() string {
	return fmt.Sprintf("configuration error: http client [%s] not configured: %v", e.name, e.wrapped)
}

func (e *configurationError) Type() ErrorType {
	return ConfigurationError
}

func (e *configurationError) Unwrap() error {
	return e.wrapped
}

// connectionError wraps a transport-level failure
type connectionError struct {
	message string
	wrapped error
}

func (e *connectionError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("connection error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("connection error: %s", e.message)
}

func (e *connectionError) Type() ErrorType {
	return ConnectionError
}

func (e *connectionError) Unwrap() error {
	return e.wrapped
}

// ResponseError is raised by Response.Throw and by the retry wrapper when a
// response has a non-success status. It carries the response for inspection.
type ResponseError struct {
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("HTTP error: request returned status code %d", e.Response.StatusCode)
}

func (e *ResponseError) Type() ErrorType {
	return HTTPError
}

// StatusCode returns the status of the carried response
func (e *ResponseError) StatusCode() int {
	return e.Response.StatusCode
}

// validationError represents request building errors
type validationError struct {
	message string
	field   string
	wrapped error
}

func (e *validationError) Error() string {
	msg := fmt.Sprintf("validation error: %s", e.message)
	if e.field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.field)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

func (e *validationError) Unwrap() error {
	return e.wrapped
}

// NewConfigurationError creates an error for a client name missing from configuration
func NewConfigurationError(name string, wrapped error) ClientError {
	return &configurationError{name: name, wrapped: wrapped}
}

// NewConnectionError creates a new connection error
func NewConnectionError(message string, wrapped error) ClientError {
	return &connectionError{message: message, wrapped: wrapped}
}

// NewResponseError creates an error carrying resp
func NewResponseError(resp *Response) *ResponseError {
	return &ResponseError{Response: resp}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string, wrapped error) ClientError {
	return &validationError{message: message, field: field, wrapped: wrapped}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode() == statusCode
	}
	return false
}

// ResponseFromError returns the response carried by an HTTP error, if any
func ResponseFromError(err error) (*Response, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response, true
	}
	return nil, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
