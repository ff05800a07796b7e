package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Record
	byOwner map[string][]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Record),
		byOwner: make(map[string][]Record),
	}
}

// Insert stores rec once.
func (r *MemoryRepo) Insert(ctx context.Context, ownerID string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkOwner(ownerID, rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[rec.ID]; exists {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	r.byID[rec.ID] = rec
	r.byOwner[ownerID] = append(r.byOwner[ownerID], rec)
	return nil
}

// GetByID returns the owner's record. Records of other owners are reported as not found.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok || rec.OwnerID != ownerID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// ListByOwner returns up to limit records, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.snapshot(ownerID)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListSince returns records created at or after since, oldest first.
func (r *MemoryRepo) ListSince(ctx context.Context, ownerID string, since time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := r.snapshot(ownerID)
	out := all[:0]
	for _, rec := range all {
		if !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) snapshot(ownerID string) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.byOwner[ownerID]))
	copy(out, r.byOwner[ownerID])
	return out
}
