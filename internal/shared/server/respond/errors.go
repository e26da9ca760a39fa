package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if cause := c.GetString("internalError"); cause != "" {
		fields["error"] = cause
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// NotFound sends a 404 with the standard envelope.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "not_found", message, nil)
}

// BadRequest sends a 400 validation error with optional field issues.
func BadRequest(c *gin.Context, message string, details interface{}) {
	Error(c, http.StatusBadRequest, "validation_error", message, details)
}

// Internal sends a 500 and logs the cause without exposing it.
func Internal(c *gin.Context, err error) {
	if err != nil {
		c.Set("internalError", err.Error())
	}
	Error(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}
