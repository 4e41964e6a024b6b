// Package errors provides the structured error type returned by every swiftclient operation.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for client operations.
type ErrorCode string

const (
	// Authentication
	ErrCodeAuthFailed         ErrorCode = "AUTH_FAILED"
	ErrCodeEndpointNotFound   ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrCodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"

	// Remote operations
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"
	ErrCodeDecodeFailed    ErrorCode = "DECODE_FAILED"

	// Transport
	ErrCodeTransport          ErrorCode = "TRANSPORT_ERROR"
	ErrCodeCertificateInvalid ErrorCode = "CERTIFICATE_INVALID"

	// Local validation
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidType      ErrorCode = "INVALID_TYPE"
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"

	// Retry coordination
	ErrCodeResetFailed ErrorCode = "RESET_FAILED"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryAuth          ErrorCategory = "auth"
	CategoryOperation     ErrorCategory = "operation"
	CategoryTransport     ErrorCategory = "transport"
	CategoryValidation    ErrorCategory = "validation"
	CategoryReset         ErrorCategory = "reset"
	CategoryConfiguration ErrorCategory = "configuration"
)

// HTTPInfo carries the diagnostics of the exchange that produced an error.
type HTTPInfo struct {
	Scheme string `json:"scheme,omitempty"`
	Host   string `json:"host,omitempty"`
	Path   string `json:"path,omitempty"`
	Query  string `json:"query,omitempty"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
	Body   []byte `json:"-"`
}

// Error is a structured error with context and HTTP diagnostics.
type Error struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	HTTP      *HTTPInfo `json:"http,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`

	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Retryable is set by the retry loop once it has classified the error.
	// It is false until then.
	Retryable bool `json:"retryable"`
}

// snippetLen is how much of a response body is quoted in error text.
const snippetLen = 60

// Error implements the error interface.
//
// The text reads "CODE: message scheme://host/path?query status reason
// [first 60 chars of response] body", omitting absent parts.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		if e.Operation != "" {
			fmt.Fprintf(&b, "[%s:%s] ", e.Component, e.Operation)
		} else {
			fmt.Fprintf(&b, "[%s] ", e.Component)
		}
	}
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	if h := e.HTTP; h != nil {
		if h.Scheme != "" {
			fmt.Fprintf(&b, " %s://", h.Scheme)
		}
		b.WriteString(h.Host)
		b.WriteString(h.Path)
		if h.Query != "" {
			fmt.Fprintf(&b, "?%s", h.Query)
		}
		if h.Status != 0 {
			fmt.Fprintf(&b, " %d", h.Status)
		}
		if h.Reason != "" {
			fmt.Fprintf(&b, " %s", h.Reason)
		}
		if len(h.Body) > 0 {
			body := h.Body
			if len(body) > snippetLen {
				body = body[:snippetLen]
			}
			fmt.Fprintf(&b, "   [first %d chars of response] %s", snippetLen, body)
		}
	}

	if e.Cause != nil && e.HTTP == nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *Error) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.HTTP != nil && e.HTTP.Status != 0 {
		parts = append(parts, fmt.Sprintf("Status=%d", e.HTTP.Status))
	}
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("RequestID=%s", e.RequestID))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("Error{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *Error) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new error with default values for its code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// NewAuthError reports a failed authentication exchange.
func NewAuthError(message string, info *HTTPInfo) *Error {
	e := NewError(ErrCodeAuthFailed, message)
	e.HTTP = info
	return e
}

// NewOperationError reports a non-2xx response from a resource operation.
func NewOperationError(message string, info *HTTPInfo) *Error {
	e := NewError(ErrCodeOperationFailed, message)
	e.HTTP = info
	return e
}

// NewTransportError wraps a connection level failure.
func NewTransportError(message string, cause error) *Error {
	return NewError(ErrCodeTransport, message).WithCause(cause)
}

// NewCertificateError wraps a TLS verification failure. These are never retried.
func NewCertificateError(cause error) *Error {
	return NewError(ErrCodeCertificateInvalid, "certificate verification failed").WithCause(cause)
}

// NewValidationError reports invalid caller input detected before any I/O.
func NewValidationError(message string) *Error {
	return NewError(ErrCodeValidationFailed, message)
}

// NewResetError reports that a request body could not be rewound for a retry.
func NewResetError(message string) *Error {
	return NewError(ErrCodeResetFailed, message)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeAuthFailed, ErrCodeEndpointNotFound, ErrCodeCredentialsMissing:
		return CategoryAuth
	case ErrCodeTransport, ErrCodeCertificateInvalid:
		return CategoryTransport
	case ErrCodeValidationFailed, ErrCodeInvalidType:
		return CategoryValidation
	case ErrCodeResetFailed:
		return CategoryReset
	case ErrCodeInvalidConfig:
		return CategoryConfiguration
	default:
		return CategoryOperation
	}
}

// WithDetail adds detailed information to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRequestID records the server transaction id.
func (e *Error) WithRequestID(id string) *Error {
	e.RequestID = id
	return e
}

// WithRetryable records whether the error will be retried.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, category ErrorCategory) bool {
	e, ok := As(err)
	return ok && e.Category == category
}

// HTTPStatus returns the response status attached to err, or 0.
func HTTPStatus(err error) int {
	if e, ok := As(err); ok && e.HTTP != nil {
		return e.HTTP.Status
	}
	return 0
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *Error) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeAuthFailed: "Verify the auth URL, user and key. " +
			"For v2 auth also check the tenant name or id.",
		ErrCodeEndpointNotFound: "The service catalog has no matching object-store endpoint. " +
			"Check the region, service type and endpoint type.",
		ErrCodeCredentialsMissing: "Set ST_AUTH, ST_USER and ST_KEY (or the OS_* equivalents).",
		ErrCodeCertificateInvalid: "The server certificate could not be verified. " +
			"Supply a CA bundle or enable insecure mode for testing.",
		ErrCodeTransport: "Network connectivity issue detected. " +
			"Verify the storage endpoint is reachable.",
		ErrCodeResetFailed: "Supply upload contents that can be rewound so the request can be retried.",
		ErrCodeInvalidConfig: "Configuration validation failed. " +
			"Check your configuration file syntax and required parameters.",
	}

	if rec, ok := recommendations[e.Code]; ok {
		return rec
	}
	return "Please check the error message for details."
}
