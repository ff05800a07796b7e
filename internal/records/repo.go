package records

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis records. Every read is
// filtered by the owner id.
type Repo interface {
	Insert(ctx context.Context, ownerID string, rec Record) error
	GetByID(ctx context.Context, ownerID, id string) (Record, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Record, error)
	ListSince(ctx context.Context, ownerID string, since time.Time) ([]Record, error)
}

func checkOwner(ownerID string, rec Record) error {
	if ownerID == "" || rec.OwnerID != ownerID {
		return ErrOwnerMismatch
	}
	return nil
}
