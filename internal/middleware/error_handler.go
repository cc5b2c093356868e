package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails contains the error information
type ErrorDetails struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"trace_id"`
}

// CustomError represents a custom application error
type CustomError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
}

func (e CustomError) Error() string {
	return e.Message
}

// Common error codes
const (
	// Workforce-specific errors
	ErrCodeEmployeeNotFound = "EMPLOYEE_NOT_FOUND"
	ErrCodeLeadNotFound     = "LEAD_NOT_FOUND"
	ErrCodeRoleNotFound     = "ROLE_NOT_FOUND"
	ErrCodeRoleInUse        = "ROLE_IN_USE"
	ErrCodeSystemRole       = "SYSTEM_ROLE_PROTECTED"

	// General errors
	ErrCodeInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
)

// ErrorHandler is a middleware that handles errors in a consistent way
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			handleError(c, err.Err, log)
		}
	}
}

func handleError(c *gin.Context, err error, log *logrus.Logger) {
	var response ErrorResponse
	var statusCode int

	traceID, exists := c.Get("trace_id")
	if !exists {
		traceID = uuid.New().String()
	}

	if customErr, ok := err.(CustomError); ok {
		statusCode = customErr.StatusCode
		response = ErrorResponse{
			Error: ErrorDetails{
				Code:      customErr.Code,
				Message:   customErr.Message,
				Details:   customErr.Details,
				Timestamp: time.Now().UTC(),
				TraceID:   traceID.(string),
			},
		}
	} else {
		statusCode = http.StatusInternalServerError
		response = ErrorResponse{
			Error: ErrorDetails{
				Code:      ErrCodeInternalServer,
				Message:   "An unexpected error occurred",
				Timestamp: time.Now().UTC(),
				TraceID:   traceID.(string),
			},
		}
	}

	log.WithFields(logrus.Fields{
		"trace_id": response.Error.TraceID,
		"code":     response.Error.Code,
		"path":     c.Request.URL.Path,
		"method":   c.Request.Method,
	}).WithError(err).Error(response.Error.Message)

	c.JSON(statusCode, response)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details map[string]interface{}) CustomError {
	return CustomError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(details map[string]interface{}) CustomError {
	return CustomError{
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) CustomError {
	return CustomError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) CustomError {
	return CustomError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) CustomError {
	return CustomError{
		Code:       ErrCodeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details map[string]interface{}) CustomError {
	return CustomError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
		Details:    details,
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(message string) CustomError {
	return CustomError{
		Code:       ErrCodeDatabaseError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewEmployeeNotFoundError creates a new employee not found error
func NewEmployeeNotFoundError(employeeID string) CustomError {
	return CustomError{
		Code:       ErrCodeEmployeeNotFound,
		Message:    "Employee not found",
		StatusCode: http.StatusNotFound,
		Details: map[string]interface{}{
			"employee_id": employeeID,
		},
	}
}

// NewLeadNotFoundError creates a new lead not found error
func NewLeadNotFoundError(leadID string) CustomError {
	return CustomError{
		Code:       ErrCodeLeadNotFound,
		Message:    "Lead not found",
		StatusCode: http.StatusNotFound,
		Details: map[string]interface{}{
			"lead_id": leadID,
		},
	}
}

// NewRoleNotFoundError creates a new role not found error
func NewRoleNotFoundError(code string) CustomError {
	return CustomError{
		Code:       ErrCodeRoleNotFound,
		Message:    "Role not found",
		StatusCode: http.StatusNotFound,
		Details: map[string]interface{}{
			"role_code": code,
		},
	}
}
