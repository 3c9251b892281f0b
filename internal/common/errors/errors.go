// Package errors provides standardized error handling for the benefit
// application integration core.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration        ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeTokenAcquisition     ErrorCode = "TOKEN_ACQUISITION_FAILED"
	ErrCodeTransport            ErrorCode = "TRANSPORT_ERROR"
	ErrCodeCaseSystemValidation ErrorCode = "CASE_SYSTEM_VALIDATION_FAILED"
	ErrCodeCaseSystemAPI        ErrorCode = "CASE_SYSTEM_API_ERROR"
	ErrCodeTemplateRender       ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeReconciliation       ErrorCode = "RECONCILIATION_INCONSISTENT"
	ErrCodeCallbackPayload      ErrorCode = "CALLBACK_PAYLOAD_INVALID"
	ErrCodeDatabase             ErrorCode = "DATABASE_ERROR"
	ErrCodeApplicationNotFound  ErrorCode = "APPLICATION_NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigurationError creates a fatal configuration error. A job run hit by
// one must stop before producing any side effects.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Missing or invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenAcquisitionError creates an error signalling the dispatch cycle
// should be skipped. The next scheduled run retries naturally.
func NewTokenAcquisitionError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenAcquisition,
		Message:   "Failed to acquire case system token",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError creates a retryable per-application transport error.
func NewTransportError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   "Case system request failed in transport",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaseSystemValidationError wraps a validation failure reported by the
// case system itself. It is surfaced to handlers, never retried blindly.
func NewCaseSystemValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCaseSystemValidation,
		Message:   "Case system rejected the request payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaseSystemAPIError creates an error for a non-2xx case system response.
func NewCaseSystemAPIError(statusCode int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCaseSystemAPI,
		Message:   fmt.Sprintf("Case system API returned status %d", statusCode),
		Details:   body,
		Retryable: IsTransientHTTPStatus(statusCode),
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateRenderError creates an error fatal to a single send only.
func NewTemplateRenderError(placeholder string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateRender,
		Message:   fmt.Sprintf("Decision text references an unknown placeholder: %s", placeholder),
		Details:   fmt.Sprintf("placeholder: %s", placeholder),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReconciliationError creates an error for a callback that does not match
// local state. Callers log and discard it; it never crashes the handler.
func NewReconciliationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReconciliation,
		Message:   "Callback is inconsistent with local integration state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCallbackPayloadError creates a non-retryable error for a malformed
// inbound callback body.
func NewCallbackPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCallbackPayload,
		Message:   "Callback payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError creates a retryable database error.
func NewDatabaseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabase,
		Message:   "Database operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// potentially transient failure worth retrying on a later cycle.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,         // 502
		http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout:     // 504
		return true
	default:
		return false
	}
}

// IsCode reports whether err is a StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}
