package records

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/shared/server/middleware"
	"pet-triage-backend/internal/shared/server/respond"
	"pet-triage-backend/internal/shared/storage/object"
	"pet-triage-backend/internal/shared/telemetry"
)

// ImageOpener reads a stored image back by key.
type ImageOpener interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// Handler wires HTTP handlers to the records service.
type Handler struct {
	Svc    *Service
	Images ImageOpener
}

// NewHandler constructs a Handler. images may be nil, in which case image
// downloads report not found.
func NewHandler(svc *Service, images ImageOpener) *Handler {
	return &Handler{Svc: svc, Images: images}
}

// RegisterRoutes attaches the history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listRecords)
	rg.GET("/analyses/trends", h.trends)
	rg.GET("/analyses/:id", h.getRecord)
	rg.GET("/analyses/:id/image", h.getImage)
}

func (h *Handler) listRecords(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	recs, err := h.Svc.History(c.Request.Context(), ownerID, limit)
	if err != nil {
		telemetry.Error("records.list_failed", map[string]any{"user_id": ownerID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	items := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		items = append(items, View(rec))
	}
	respond.JSON(c, http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getRecord(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set(middleware.AnalysisIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			telemetry.Error("records.get_failed", map[string]any{"user_id": ownerID, "analysis_id": id, "error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	c.Set(middleware.RiskLevelKey, string(rec.RiskLevel))
	respond.JSON(c, http.StatusOK, View(rec))
}

// getImage streams the stored photo of a record. The record lookup is owner
// scoped, so another owner's image is reported as not found.
func (h *Handler) getImage(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	c.Set(middleware.AnalysisIDKey, id)

	rec, err := h.Svc.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
			return
		}
		telemetry.Error("records.get_failed", map[string]any{"user_id": ownerID, "analysis_id": id, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		return
	}
	if h.Images == nil || rec.ImageKey == "" {
		respond.Error(c, http.StatusNotFound, "not_found", "image not available", nil)
		return
	}

	rc, err := h.Images.Open(c.Request.Context(), rec.ImageKey)
	if err != nil {
		telemetry.Error("records.image_open_failed", map[string]any{"user_id": ownerID, "analysis_id": id, "error": err.Error()})
		respond.Error(c, http.StatusNotFound, "not_found", "image not available", nil)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, -1, object.ContentTypeFor(rec.ImageKey), rc, nil)
}

func (h *Handler) trends(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	out, err := h.Svc.Trends(c.Request.Context(), ownerID, days)
	if err != nil {
		telemetry.Error("records.trends_failed", map[string]any{"user_id": ownerID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute trends", nil)
		return
	}
	respond.JSON(c, http.StatusOK, out)
}

// View renders a record for API responses.
func View(rec Record) gin.H {
	resp := gin.H{
		"id":           rec.ID,
		"imageKey":     rec.ImageKey,
		"features":     rec.Features,
		"riskLevel":    rec.RiskLevel,
		"report":       rec.Report,
		"reportSource": rec.ReportSource,
		"createdAt":    rec.CreatedAt,
	}
	if rec.OwnerNote != "" {
		resp["ownerNote"] = rec.OwnerNote
	}
	if rec.Pet != nil {
		resp["pet"] = rec.Pet
	}
	return resp
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", name+" must be an integer", []map[string]string{
			{"field": name, "issue": "not_an_integer"},
		})
		return 0, false
	}
	if n <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", name+" must be positive", []map[string]string{
			{"field": name, "issue": "not_positive"},
		})
		return 0, false
	}
	return n, true
}
