// Package records persists analysis records scoped to their owner.
package records

import (
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/risk"
)

// Record is one persisted analysis. Records are append-only.
type Record struct {
	ID           string
	OwnerID      string
	ImageKey     string
	Features     feature.Record
	Report       string
	ReportSource string
	RiskLevel    risk.Level
	OwnerNote    string
	Pet          *feature.Pet
	CreatedAt    time.Time
}
