package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pet-triage-backend/internal/risk"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 50
	DefaultTrendDays    = 7
	MaxTrendDays        = 90
)

// Trend advice values.
const (
	AdviceConsultVet     = "consult_vet"
	AdviceMonitorClosely = "monitor_closely"
	AdviceStable         = "stable"
)

// Service exposes the owner-scoped read side of the record store.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// TrendPoint is one record inside the trend window.
type TrendPoint struct {
	ID        string     `json:"id"`
	RiskLevel risk.Level `json:"riskLevel"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TrendSummary counts records by risk level.
type TrendSummary struct {
	Total  int    `json:"total"`
	High   int    `json:"high"`
	Medium int    `json:"medium"`
	Low    int    `json:"low"`
	Advice string `json:"advice"`
}

// Trends is the rolling-window view of an owner's records.
type Trends struct {
	Days    int          `json:"days"`
	Since   time.Time    `json:"since"`
	Points  []TrendPoint `json:"points"`
	Summary TrendSummary `json:"summary"`
}

// History returns the owner's most recent records.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit)
}

// Get returns a single record owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, id)
}

// Trends summarises the owner's records over the last days days.
func (s *Service) Trends(ctx context.Context, ownerID string, days int) (Trends, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	if days > MaxTrendDays {
		days = MaxTrendDays
	}
	since := s.now().AddDate(0, 0, -days)
	recs, err := s.Repo.ListSince(ctx, ownerID, since)
	if err != nil {
		return Trends{}, err
	}

	out := Trends{Days: days, Since: since, Points: make([]TrendPoint, 0, len(recs))}
	for _, rec := range recs {
		out.Points = append(out.Points, TrendPoint{ID: rec.ID, RiskLevel: rec.RiskLevel, CreatedAt: rec.CreatedAt})
		switch rec.RiskLevel {
		case risk.High:
			out.Summary.High++
		case risk.Medium:
			out.Summary.Medium++
		default:
			out.Summary.Low++
		}
	}
	out.Summary.Total = len(recs)
	out.Summary.Advice = advice(out.Summary)
	return out, nil
}

func advice(s TrendSummary) string {
	if s.Total == 0 {
		return AdviceStable
	}
	total := float64(s.Total)
	switch {
	case float64(s.High)/total > 0.3:
		return AdviceConsultVet
	case float64(s.Medium)/total > 0.5:
		return AdviceMonitorClosely
	default:
		return AdviceStable
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
