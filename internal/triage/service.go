package triage

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/imageprep"
	"pet-triage-backend/internal/parser"
	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/report"
	"pet-triage-backend/internal/risk"
	"pet-triage-backend/internal/shared/apperr"
	"pet-triage-backend/internal/shared/metrics"
	"pet-triage-backend/internal/shared/storage/object"
	"pet-triage-backend/internal/shared/telemetry"
	"pet-triage-backend/internal/vision"
)

// Analyzer sends a prepared image to the vision backend.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, contentType string) (vision.RawOutput, error)
}

// Reporter writes the narrative report. It must not fail.
type Reporter interface {
	Generate(ctx context.Context, rec feature.Record, ownerNote string, pet feature.Pet) report.Report
}

// Submission is one image from an authenticated owner.
type Submission struct {
	OwnerID     string
	Image       []byte
	ContentType string
	Note        string
	Pet         *feature.Pet
}

// Outcome is everything produced before persistence.
type Outcome struct {
	Image    imageprep.Image
	Features feature.Record
	Risk     risk.Level
	Report   report.Report
}

// Service sequences the pipeline stages. Nothing is retried.
type Service struct {
	Vision  Analyzer
	Parser  *parser.Parser
	Reports Reporter
	Store   object.ObjectStore
	Repo    records.Repo
	Now     func() time.Time
}

// Evaluate runs every stage up to Reported without touching storage.
func (s *Service) Evaluate(ctx context.Context, sub Submission) (Outcome, error) {
	run := s.start(sub.OwnerID)
	out, err := s.evaluate(ctx, sub, run)
	if err != nil {
		run.fail(err)
		return Outcome{}, err
	}
	run.finish(StateReported, out.Risk)
	return out, nil
}

// Run executes the full pipeline and persists exactly one record on
// success. A failed run leaves no record behind.
func (s *Service) Run(ctx context.Context, sub Submission) (records.Record, error) {
	run := s.start(sub.OwnerID)
	if strings.TrimSpace(sub.OwnerID) == "" {
		err := &StageError{State: StateReceived, Err: apperr.Unauthorized("owner identity is required")}
		run.fail(err)
		return records.Record{}, err
	}

	out, err := s.evaluate(ctx, sub, run)
	if err != nil {
		run.fail(err)
		return records.Record{}, err
	}

	rec, err := s.persist(ctx, sub, out)
	if err != nil {
		err = &StageError{State: StatePersisted, Err: err}
		run.fail(err)
		return records.Record{}, err
	}
	run.analysisID = rec.ID
	run.advance(StatePersisted)
	run.finish(StatePersisted, out.Risk)
	return rec, nil
}

func (s *Service) evaluate(ctx context.Context, sub Submission, run *tracker) (Outcome, error) {
	var out Outcome

	img, err := imageprep.Prepare(sub.Image, sub.ContentType)
	if err != nil {
		return out, &StageError{State: StatePreprocessed, Err: err}
	}
	out.Image = img
	run.advance(StatePreprocessed)

	raw, err := s.Vision.Analyze(ctx, img.Data, img.ContentType)
	if err != nil {
		return out, &StageError{State: StateAnalyzed, Err: err}
	}
	run.advance(StateAnalyzed)

	features, err := s.Parser.Parse(raw)
	if err != nil {
		return out, &StageError{State: StateParsed, Err: err}
	}
	out.Features = features
	run.advance(StateParsed)

	out.Risk = risk.Classify(features)
	run.advance(StateClassified)

	var pet feature.Pet
	if sub.Pet != nil {
		pet = *sub.Pet
	}
	out.Report = s.Reports.Generate(ctx, features, sub.Note, pet)
	run.advance(StateReported)
	return out, nil
}

func (s *Service) persist(ctx context.Context, sub Submission, out Outcome) (records.Record, error) {
	key, _, err := s.Store.Save(ctx, sub.OwnerID, out.Image.ContentType, bytes.NewReader(out.Image.Data))
	if err != nil {
		return records.Record{}, err
	}

	rec := records.Record{
		ID:           uuid.NewString(),
		OwnerID:      sub.OwnerID,
		ImageKey:     key,
		Features:     out.Features,
		Report:       out.Report.Text,
		ReportSource: out.Report.Source,
		RiskLevel:    out.Risk,
		OwnerNote:    strings.TrimSpace(sub.Note),
		Pet:          sub.Pet,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Insert(ctx, sub.OwnerID, rec); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			telemetry.Warn("triage.orphan_image", map[string]any{"image_key": key, "error": delErr.Error()})
		}
		return records.Record{}, err
	}
	return rec, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// tracker logs transitions and records run metrics.
type tracker struct {
	ownerID    string
	analysisID string
	state      State
	started    time.Time
}

func (s *Service) start(ownerID string) *tracker {
	metrics.IncTriageStarted()
	return &tracker{ownerID: ownerID, state: StateReceived, started: time.Now()}
}

func (t *tracker) advance(to State) {
	telemetry.Info("triage.transition", map[string]any{
		"user_id": t.ownerID,
		"from":    string(t.state),
		"to":      string(to),
	})
	t.state = to
}

func (t *tracker) fail(err error) {
	kind := apperr.Kind(err)
	fields := map[string]any{
		"user_id": t.ownerID,
		"from":    string(t.state),
		"to":      string(StateFailed),
		"kind":    kind,
		"error":   err.Error(),
	}
	telemetry.Error("triage.transition", fields)
	t.state = StateFailed
	metrics.IncTriageFailed(kind)
	metrics.ObserveTriageDurationMs(float64(time.Since(t.started).Milliseconds()))
}

func (t *tracker) finish(final State, level risk.Level) {
	fields := map[string]any{
		"user_id":     t.ownerID,
		"state":       string(final),
		"risk_level":  string(level),
		"duration_ms": time.Since(t.started).Milliseconds(),
	}
	if t.analysisID != "" {
		fields["analysis_id"] = t.analysisID
	}
	telemetry.Info("triage.complete", fields)
	metrics.IncTriageCompleted(string(level))
	metrics.ObserveTriageDurationMs(float64(time.Since(t.started).Milliseconds()))
}
