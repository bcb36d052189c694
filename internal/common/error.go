// Package common defines shared constants and sentinel errors used across
// the order-to-activation pipeline. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Business-rule errors, all terminal.
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrServiceNotFound  = errors.New("service not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyActivated = errors.New("account already activated")

	// Pending-order lifecycle. ErrAlreadyProcessed is the single-use guard:
	// exactly one MarkProcessed call may succeed per pending order.
	ErrAlreadyProcessed = errors.New("pending order already processed")

	// Activation token lifecycle, distinguished for user messaging.
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")

	// External collaborators.
	ErrPaymentGateway   = errors.New("payment gateway error")
	ErrWebhookSignature = errors.New("webhook signature verification failed")

	// Anything unexpected collapses to this before leaving the pipeline.
	ErrInternal = errors.New("internal error")
)

// ValidationError enumerates every violated field of a submission.
// It is client-caused and never retried.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}
