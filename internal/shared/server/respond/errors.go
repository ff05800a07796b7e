package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/shared/telemetry"
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

// FromError converts a pipeline error into its response class. Missing
// identity is 401, input problems 400, unreadable backend output 422,
// backend or credential outages 503 and everything else 500. Only the end-user message is sent.
func FromError(c *gin.Context, err error) {
	class := apperr.Classify(err)
	status := http.StatusInternalServerError
	switch class {
	case apperr.ClassAnalysisFailed:
		status = http.StatusUnprocessableEntity
		if apperr.Kind(err) == "invalid_input" {
			status = http.StatusBadRequest
		}
	case apperr.ClassServiceUnavailable:
		status = http.StatusServiceUnavailable
	case apperr.ClassUnauthorized:
		status = http.StatusUnauthorized
	}
	Error(c, status, string(class), apperr.UserMessage(err), gin.H{"kind": apperr.Kind(err)})
}
