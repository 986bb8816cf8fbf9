package domain

import (
	"fmt"
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
	ErrInvalidInput       = "INVALID_INPUT"
	ErrInsufficientData   = "INSUFFICIENT_DATA"
	ErrDegenerateTimeAxis = "DEGENERATE_TIME_AXIS"
	ErrRender             = "RENDER_ERROR"
	ErrRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
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

// InsufficientDataError is returned when a trend is requested over fewer
// points than a line fit needs.
type InsufficientDataError struct {
	Count    int `json:"count"`
	Required int `json:"required"`
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d measurements, at least %d required", e.Count, e.Required)
}

// DegenerateTimeAxisError is returned when every measurement falls on the same
// day, leaving the line fit undefined.
type DegenerateTimeAxisError struct {
	Count int `json:"count"`
}

func (e *DegenerateTimeAxisError) Error() string {
	return fmt.Sprintf("degenerate time axis: all %d measurements share the same date", e.Count)
}

// RenderError wraps a failure while drawing or encoding a chart or report.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
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

// NewRenderError creates a new RenderError for the given stage
func NewRenderError(stage string, err error) *RenderError {
	return &RenderError{Stage: stage, Err: err}
}
