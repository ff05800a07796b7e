package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/shared/telemetry"
)

// Context keys handlers may set so the request log carries pipeline detail.
const (
	AnalysisIDKey       = "analysisId"
	StatusTransitionKey = "statusTransition"
	RiskLevelKey        = "riskLevel"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"analysis_id":       c.GetString(AnalysisIDKey),
			"risk_level":        c.GetString(RiskLevelKey),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
