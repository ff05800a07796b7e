package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/risk"
)

func newRecord(owner string, createdAt time.Time, level risk.Level) Record {
	return Record{
		ID:           uuid.NewString(),
		OwnerID:      owner,
		ImageKey:     "k/" + owner,
		Features:     feature.Defaults("ai", createdAt),
		Report:       "report",
		ReportSource: "fallback",
		RiskLevel:    level,
		CreatedAt:    createdAt,
	}
}

func TestMemoryRepoOwnerScoping(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	now := time.Now().UTC()

	mine := newRecord("owner-a", now, risk.Low)
	if err := repo.Insert(ctx, "owner-a", mine); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, "owner-b", newRecord("owner-a", now, risk.Low)); !errors.Is(err, ErrOwnerMismatch) {
		t.Fatalf("expected ErrOwnerMismatch, got %v", err)
	}
	if err := repo.Insert(ctx, "owner-a", mine); err == nil {
		t.Fatalf("duplicate insert should fail")
	}

	if _, err := repo.GetByID(ctx, "owner-b", mine.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner must not see record, got %v", err)
	}
	got, err := repo.GetByID(ctx, "owner-a", mine.ID)
	if err != nil || got.ID != mine.ID {
		t.Fatalf("GetByID: %+v %v", got, err)
	}
	if list, _ := repo.ListByOwner(ctx, "owner-b", 10); len(list) != 0 {
		t.Fatalf("owner-b should have no records, got %d", len(list))
	}
}

func TestMemoryRepoOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := repo.Insert(ctx, "o", newRecord("o", base.Add(time.Duration(i)*time.Hour), risk.Low)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	list, err := repo.ListByOwner(ctx, "o", 3)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 3 || !list[0].CreatedAt.Equal(base.Add(4*time.Hour)) {
		t.Fatalf("expected newest first, got %v", list[0].CreatedAt)
	}

	since, err := repo.ListSince(ctx, "o", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(since) != 3 || !since[0].CreatedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("expected 3 oldest-first records from the cutoff, got %d", len(since))
	}
}
