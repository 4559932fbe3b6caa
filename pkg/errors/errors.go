package errors

import (
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	CategoryApproved             ErrorCategory = "approved"
	CategoryDeclined             ErrorCategory = "declined"
	CategoryAuthenticationFailed ErrorCategory = "authentication_failed"
	CategorySystemError          ErrorCategory = "system_error"
	CategoryNetworkError         ErrorCategory = "network_error"
	CategoryInvalidRequest       ErrorCategory = "invalid_request"
)

// PaymentError represents a gateway processing failure with detailed context
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	IsRetriable    bool
	Category       ErrorCategory
	Details        map[string]interface{}
	Cause          error
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As
func (e *PaymentError) Unwrap() error {
	return e.Cause
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Details:     make(map[string]interface{}),
	}
}

// WithCause attaches the underlying error
func (e *PaymentError) WithCause(err error) *PaymentError {
	e.Cause = err
	return e
}

// WithGatewayMessage attaches the message returned by the remote party
func (e *PaymentError) WithGatewayMessage(msg string) *PaymentError {
	e.GatewayMessage = msg
	return e
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
