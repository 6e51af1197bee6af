package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures for logging, metrics and
// caller-visible responses.
type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeRecipientMissing ErrorCode = "RECIPIENT_MISSING"
	CodeTemplateRender   ErrorCode = "TEMPLATE_RENDER"
	CodeAdapterTransient ErrorCode = "ADAPTER_TRANSIENT"
	CodeAdapterPermanent ErrorCode = "ADAPTER_PERMANENT"
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	CodeQueueUnavailable ErrorCode = "QUEUE_UNAVAILABLE"
	CodeEventMalformed   ErrorCode = "EVENT_MALFORMED"
)

// Domain Const errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyDelivered  = errors.New("notification already delivered")
	ErrRecipientMissing  = errors.New("no recipient for channel")
	ErrBatchSizeExceeded = errors.New("batch size exceeded maximum limit")
	ErrBatchEmpty        = errors.New("batch contains no notifications")
	ErrEventMalformed    = errors.New("malformed event payload")
	ErrQueueEmpty        = errors.New("queue is empty")
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// AdapterError is a delivery failure reported by a channel adapter.
// Retryable errors go back to the queue; permanent ones end the job.
type AdapterError struct {
	Code      ErrorCode
	Message   string
	Retryable bool

	// Tokens identifies rejected device tokens on PUSH failures so the
	// resolver can deactivate them.
	Tokens []string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewTransientAdapterError(message string) *AdapterError {
	return &AdapterError{Code: CodeAdapterTransient, Message: message, Retryable: true}
}

func NewPermanentAdapterError(message string) *AdapterError {
	return &AdapterError{Code: CodeAdapterPermanent, Message: message, Retryable: false}
}

// CodeOf maps an error to its taxonomy code, defaulting to transient so
// unknown failures stay retryable.
func CodeOf(err error) ErrorCode {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Code
	}
	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return CodeInvalidArgument
	}
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrBatchSizeExceeded), errors.Is(err, ErrBatchEmpty):
		return CodeInvalidArgument
	case errors.Is(err, ErrRecipientMissing):
		return CodeRecipientMissing
	case errors.Is(err, ErrEventMalformed):
		return CodeEventMalformed
	}
	return CodeAdapterTransient
}
