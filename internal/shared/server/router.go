package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/services/health"
	"pet-triage-backend/internal/shared/auth"
	"pet-triage-backend/internal/shared/config"
	"pet-triage-backend/internal/shared/metrics"
	"pet-triage-backend/internal/shared/server/middleware"
	"pet-triage-backend/internal/triage"
)

// Rate limit group for image submissions.
const analyzeGroup = "ANALYZE"

// RouterDeps carries the handlers mounted on the engine.
type RouterDeps struct {
	Config         config.Config
	Verifier       *auth.Verifier
	Health         *health.Service
	TriageHandler  *triage.Handler
	RecordsHandler *records.Handler
	Limiter        *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, "/api/v1/health", "/metrics"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				analyzeGroup: {
					PerMinute: deps.Config.RateLimit.AnalyzePerMinute,
					Burst:     deps.Config.RateLimit.Burst,
				},
			},
			GroupFor: rateLimitGroup,
			Limiter:  deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	} else {
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}
	if deps.TriageHandler != nil {
		deps.TriageHandler.RegisterRoutes(api)
	}
	if deps.RecordsHandler != nil {
		deps.RecordsHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/analyses" {
		return analyzeGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
