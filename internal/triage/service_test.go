package triage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/parser"
	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/report"
	"pet-triage-backend/internal/risk"
	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/shared/storage/object/local"
	"pet-triage-backend/internal/vision"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":` + quote(content) + `}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

type fixture struct {
	svc     *Service
	repo    *records.MemoryRepo
	baseDir string
}

func newFixture(t *testing.T, analyzer Analyzer) fixture {
	t.Helper()
	dir := t.TempDir()
	repo := records.NewMemoryRepo()
	return fixture{
		svc: &Service{
			Vision:  analyzer,
			Parser:  parser.New(parser.KeywordStrategy{}, nil),
			Reports: &report.Generator{},
			Store:   local.New(dir),
			Repo:    repo,
		},
		repo:    repo,
		baseDir: dir,
	}
}

func visionClient(t *testing.T, endpoint string) *vision.Client {
	t.Helper()
	c, err := vision.New(vision.Config{
		Backend:  vision.BackendChatCompletions,
		Endpoint: endpoint,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("vision.New: %v", err)
	}
	return c
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestRunBloodKeywordIsHighRisk(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "颜色：棕色，质地：成形。检测到血丝，建议观察。")
	fx := newFixture(t, visionClient(t, srv.URL))

	rec, err := fx.svc.Run(context.Background(), Submission{
		OwnerID:     "owner-1",
		Image:       testPNG(t, 1600, 900),
		ContentType: "image/png",
		Note:        "ate grass yesterday",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rec.Features.Blood || rec.RiskLevel != risk.High {
		t.Fatalf("expected blood and high risk, got %+v", rec)
	}
	if rec.OwnerNote != "ate grass yesterday" || rec.ImageKey == "" {
		t.Fatalf("record missing note or image key: %+v", rec)
	}

	stored, err := fx.repo.GetByID(context.Background(), "owner-1", rec.ID)
	if err != nil || stored.ID != rec.ID {
		t.Fatalf("record not persisted: %v", err)
	}
	if countFiles(t, fx.baseDir) != 1 {
		t.Fatalf("expected one stored image")
	}
}

func TestRunNoKeywordsUsesDefaults(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "The photo is a bit blurry.")
	fx := newFixture(t, visionClient(t, srv.URL))

	rec, err := fx.svc.Run(context.Background(), Submission{OwnerID: "owner-1", Image: testPNG(t, 40, 40), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	f := rec.Features
	if f.Color != feature.ColorBrown || f.Texture != feature.TextureFormed || f.Blood || f.Mucus || f.Worms ||
		f.Classification != feature.ClassificationNormal {
		t.Fatalf("expected documented defaults, got %+v", f)
	}
	if rec.RiskLevel != risk.Low {
		t.Fatalf("expected low risk, got %s", rec.RiskLevel)
	}
}

func TestRunUpstreamFailurePersistsNothing(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	fx := newFixture(t, visionClient(t, srv.URL))

	_, err := fx.svc.Run(context.Background(), Submission{OwnerID: "owner-1", Image: testPNG(t, 40, 40), ContentType: "image/png"})
	var se *StageError
	if !errors.As(err, &se) || se.State != StateAnalyzed {
		t.Fatalf("expected failure at analyzed, got %v", err)
	}
	var up *apperr.UpstreamError
	if !errors.As(err, &up) || up.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected upstream error with status, got %v", err)
	}
	if Transition(err) != "analyzed->failed" {
		t.Fatalf("unexpected transition %q", Transition(err))
	}

	list, _ := fx.repo.ListByOwner(context.Background(), "owner-1", 10)
	if len(list) != 0 {
		t.Fatalf("failed run must not persist, got %d records", len(list))
	}
	if countFiles(t, fx.baseDir) != 0 {
		t.Fatalf("failed run must not store the image")
	}
}

func TestRunWithoutTextBackendStillPersists(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "颜色：黄色，质地：偏软，有粘液")
	fx := newFixture(t, visionClient(t, srv.URL))

	rec, err := fx.svc.Run(context.Background(), Submission{OwnerID: "owner-1", Image: testPNG(t, 40, 40), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.ReportSource != report.SourceFallback {
		t.Fatalf("expected fallback report, got %q", rec.ReportSource)
	}
	for _, want := range []string{string(rec.Features.Color), string(rec.Features.Texture), string(rec.Features.Classification), "有粘液"} {
		if !strings.Contains(rec.Report, want) {
			t.Fatalf("fallback report missing %q:\n%s", want, rec.Report)
		}
	}
	if rec.RiskLevel != risk.Medium {
		t.Fatalf("mucus should be medium risk, got %s", rec.RiskLevel)
	}
}

func TestRunRejectsInvalidImage(t *testing.T) {
	fx := newFixture(t, visionClient(t, "http://127.0.0.1:1"))
	_, err := fx.svc.Run(context.Background(), Submission{OwnerID: "owner-1", Image: []byte("plain text"), ContentType: "text/plain"})
	var se *StageError
	if !errors.As(err, &se) || se.State != StatePreprocessed || !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected invalid input at preprocessing, got %v", err)
	}
}

func TestRunWithoutOwnerIsUnauthorized(t *testing.T) {
	fx := newFixture(t, visionClient(t, "http://127.0.0.1:1"))
	_, err := fx.svc.Run(context.Background(), Submission{OwnerID: "  ", Image: testPNG(t, 10, 10), ContentType: "image/png"})
	var se *StageError
	if !errors.As(err, &se) || se.State != StateReceived || !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized before received, got %v", err)
	}
	if apperr.Classify(err) != apperr.ClassUnauthorized {
		t.Fatalf("unexpected class %s", apperr.Classify(err))
	}
}

func TestRunUnconfiguredVisionForEndUser(t *testing.T) {
	c, err := vision.New(vision.Config{})
	if err != nil {
		t.Fatalf("vision.New: %v", err)
	}
	fx := newFixture(t, c)
	ctx := vision.WithEndUserRequest(context.Background())
	_, err = fx.svc.Run(ctx, Submission{OwnerID: "owner-1", Image: testPNG(t, 20, 20), ContentType: "image/png"})
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEvaluatePlaceholderOutsideEndUserRequest(t *testing.T) {
	c, _ := vision.New(vision.Config{})
	fx := newFixture(t, c)
	out, err := fx.svc.Evaluate(context.Background(), Submission{Image: testPNG(t, 20, 20), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !out.Features.IsPlaceholder() || out.Risk != risk.Low {
		t.Fatalf("expected placeholder record, got %+v", out.Features)
	}
}

type failingRepo struct{ records.Repo }

func (failingRepo) Insert(context.Context, string, records.Record) error {
	return errors.New("connection reset")
}

func TestRunInsertFailureRemovesImage(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "正常")
	fx := newFixture(t, visionClient(t, srv.URL))
	fx.svc.Repo = failingRepo{}

	_, err := fx.svc.Run(context.Background(), Submission{OwnerID: "owner-1", Image: testPNG(t, 20, 20), ContentType: "image/png"})
	var se *StageError
	if !errors.As(err, &se) || se.State != StatePersisted {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if apperr.Classify(err) != apperr.ClassInternal {
		t.Fatalf("storage failures are internal errors")
	}
	if countFiles(t, fx.baseDir) != 0 {
		t.Fatalf("image should be removed after a failed insert")
	}
}
