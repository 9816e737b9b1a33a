package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorCode defines standard error codes.
type ErrorCode string

const (
	// Validation errors (4xx)
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"

	// Server errors (5xx)
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Business logic errors
	ErrCodeInvalidSymbol   ErrorCode = "INVALID_SYMBOL"
	ErrCodeOrderNotFound   ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeOrderRejected   ErrorCode = "ORDER_REJECTED"
	ErrCodeInvalidPrice    ErrorCode = "INVALID_PRICE"
	ErrCodeInvalidQuantity ErrorCode = "INVALID_QUANTITY"
	ErrCodeInvalidSide     ErrorCode = "INVALID_SIDE"
	ErrCodeInvalidType     ErrorCode = "INVALID_TYPE"
)

// NewErrorResponse creates a new error response.
func NewErrorResponse(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   string(code),
		Message: message,
		Code:    string(code),
	}
}

// NewErrorResponseWithDetails creates a new error response with details.
func NewErrorResponseWithDetails(code ErrorCode, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{
		Error:   string(code),
		Message: message,
		Code:    string(code),
		Details: details,
	}
}

// AbortWithError aborts the request with a standardized error response.
func AbortWithError(c *gin.Context, status int, code ErrorCode, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(code, message))
}

// APIValidationError represents a validation error for a specific field.
type APIValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// AbortWithValidationErrors aborts with multiple validation errors.
func AbortWithValidationErrors(c *gin.Context, errors []*APIValidationError) {
	details := make(map[string]string)
	for _, e := range errors {
		details[e.Field] = e.Message
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponseWithDetails(
		ErrCodeValidationFailed,
		"Validation failed",
		details,
	))
}

// SuccessResponse represents a successful response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewSuccessResponse creates a new success response.
func NewSuccessResponse(data interface{}, message string) *SuccessResponse {
	return &SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}

// NewHealthResponse creates a new health response.
func NewHealthResponse(version string, services map[string]string) *HealthResponse {
	status := "healthy"
	for _, v := range services {
		if v != "healthy" {
			status = "degraded"
			break
		}
	}

	return &HealthResponse{
		Status:   status,
		Version:  version,
		Services: services,
	}
}
