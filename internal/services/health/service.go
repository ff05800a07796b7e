package health

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/shared/server/respond"
	"pet-triage-backend/internal/shared/trust"
)

// Credentials lists the backend settings whose presence is reported. Values
// are never echoed.
type Credentials struct {
	VisionBackend  string
	VisionEndpoint string
	VisionAPIKey   string
	ReportAPIKey   string
	DatabaseURL    string
	JWTSecret      string
}

// ConfigReport is the credential presence summary.
type ConfigReport struct {
	Healthy       bool            `json:"healthy"`
	Trusted       bool            `json:"trustedRuntime"`
	VisionBackend string          `json:"visionBackend,omitempty"`
	Present       map[string]bool `json:"present"`
	Missing       []string        `json:"missing,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	creds Credentials
}

// NewService constructs a new health service.
func NewService(creds Credentials) *Service {
	return &Service{creds: creds}
}

// Status returns a simple liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Config reports which credentials are set without running the pipeline.
// The vision endpoint and key are required; the report key is optional
// because reports fall back to the offline template.
func (s *Service) Config() ConfigReport {
	present := map[string]bool{
		"vision_endpoint": set(s.creds.VisionEndpoint),
		"vision_api_key":  set(s.creds.VisionAPIKey),
		"report_api_key":  set(s.creds.ReportAPIKey),
		"database_url":    set(s.creds.DatabaseURL),
		"jwt_secret":      set(s.creds.JWTSecret),
	}
	report := ConfigReport{Healthy: true, Trusted: trust.Trusted(), VisionBackend: s.creds.VisionBackend, Present: present}
	for _, required := range []string{"vision_endpoint", "vision_api_key"} {
		if !present[required] {
			report.Healthy = false
			report.Missing = append(report.Missing, required)
		}
	}
	return report
}

// RegisterRoutes attaches the health routes to the router group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, s.Status())
	})
	rg.GET("/health/config", func(c *gin.Context) {
		report := s.Config()
		status := http.StatusOK
		if !report.Healthy {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
}

func set(v string) bool { return strings.TrimSpace(v) != "" }
