package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/risk"
	"pet-triage-backend/internal/shared/storage/object/local"
)

func newTestRouter(repo Repo, owner string) *gin.Engine {
	return newImageRouter(repo, nil, owner)
}

func newImageRouter(repo Repo, images ImageOpener, owner string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", owner)
		c.Next()
	})
	NewHandler(NewService(repo), images).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandlerGetOtherOwnerIsNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	rec := newRecord("owner-a", time.Now().UTC(), risk.High)
	if err := repo.Insert(context.Background(), "owner-a", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	w := httptest.NewRecorder()
	newTestRouter(repo, "owner-b").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+rec.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	newTestRouter(repo, "owner-a").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+rec.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["riskLevel"] != "high" || body["id"] != rec.ID {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHandlerListAndTrends(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_ = repo.Insert(context.Background(), "o", newRecord("o", now.Add(-time.Duration(i)*time.Hour), risk.Low))
	}
	router := newTestRouter(repo, "o")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=2", nil))
	var list struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusOK || len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d (%d)", len(list.Items), w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/trends?days=3", nil))
	var trends Trends
	if err := json.Unmarshal(w.Body.Bytes(), &trends); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if trends.Days != 3 || trends.Summary.Total != 3 || trends.Summary.Advice != AdviceStable {
		t.Fatalf("unexpected trends %+v", trends)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestHandlerRejectsNonPositiveQuery(t *testing.T) {
	router := newTestRouter(NewMemoryRepo(), "o")
	for _, target := range []string{
		"/api/v1/analyses?limit=-5",
		"/api/v1/analyses?limit=0",
		"/api/v1/analyses/trends?days=0",
		"/api/v1/analyses/trends?days=-1",
	} {
		t.Run(target, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "not_positive") {
				t.Fatalf("expected 400 not_positive, got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandlerImageDownloadIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	key, _, err := store.Save(ctx, "owner-a", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	repo := NewMemoryRepo()
	rec := newRecord("owner-a", time.Now().UTC(), risk.Low)
	rec.ImageKey = key
	if err := repo.Insert(ctx, "owner-a", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	target := "/api/v1/analyses/" + rec.ID + "/image"

	w := httptest.NewRecorder()
	newImageRouter(repo, store, "owner-a").ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	if w.Code != http.StatusOK || w.Body.String() != "jpeg-bytes" {
		t.Fatalf("expected image bytes, got %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}

	w = httptest.NewRecorder()
	newImageRouter(repo, store, "owner-b").ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	newImageRouter(repo, nil, "owner-a").ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without an image store, got %d", w.Code)
	}
}
