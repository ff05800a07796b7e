package triage

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/imageprep"
	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/shared/server/middleware"
	"pet-triage-backend/internal/shared/server/respond"
	"pet-triage-backend/internal/vision"
)

const maxNoteLength = 2000

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the submission route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.submit)
}

func (h *Handler) submit(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	if strings.TrimSpace(ownerID) == "" {
		err := &StageError{State: StateReceived, Err: apperr.Unauthorized("owner identity is required")}
		c.Set(middleware.StatusTransitionKey, Transition(err))
		respond.FromError(c, err)
		return
	}

	sub, err := readSubmission(c)
	if err != nil {
		c.Set(middleware.StatusTransitionKey, Transition(err))
		respond.FromError(c, err)
		return
	}
	sub.OwnerID = ownerID

	ctx := vision.WithEndUserRequest(c.Request.Context())
	rec, err := h.Svc.Run(ctx, sub)
	c.Set(middleware.StatusTransitionKey, Transition(err))
	if err != nil {
		respond.FromError(c, err)
		return
	}

	c.Set(middleware.AnalysisIDKey, rec.ID)
	c.Set(middleware.RiskLevelKey, string(rec.RiskLevel))
	respond.JSON(c, http.StatusCreated, records.View(rec))
}

// maxBodyBytes bounds the whole multipart body: the image ceiling plus room
// for the text fields and part headers.
const maxBodyBytes = imageprep.MaxBytes + 1<<20

func readSubmission(c *gin.Context) (Submission, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Submission{}, apperr.InvalidInput("image exceeds the 10 MB limit")
		}
		return Submission{}, apperr.InvalidInput("image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return Submission{}, apperr.InvalidInput("image file could not be read")
	}
	defer f.Close()

	// one byte past the ceiling so the preprocessor sees oversize uploads
	data, err := io.ReadAll(io.LimitReader(f, imageprep.MaxBytes+1))
	if err != nil {
		return Submission{}, apperr.InvalidInput("image file could not be read")
	}

	note := strings.TrimSpace(c.PostForm("description"))
	if note == "" {
		note = strings.TrimSpace(c.PostForm("note"))
	}
	if len([]rune(note)) > maxNoteLength {
		return Submission{}, apperr.InvalidInput("description must be at most %d characters", maxNoteLength)
	}

	sub := Submission{
		Image:       data,
		ContentType: fh.Header.Get("Content-Type"),
		Note:        note,
	}
	if raw := strings.TrimSpace(c.PostForm("pet")); raw != "" {
		var pet feature.Pet
		if err := json.Unmarshal([]byte(raw), &pet); err != nil {
			return Submission{}, apperr.InvalidInput("pet must be a JSON object")
		}
		if !pet.IsZero() {
			sub.Pet = &pet
		}
	}
	return sub, nil
}
