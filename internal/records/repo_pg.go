package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pet-triage-backend/internal/feature"
	"pet-triage-backend/internal/risk"
)

// PGRepo implements Repo using Postgres. It only ever inserts and selects.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, owner_id, image_key, features, report, report_source, risk_level, owner_note, pet, created_at`

// Insert writes rec in a single statement.
func (r *PGRepo) Insert(ctx context.Context, ownerID string, rec Record) error {
	if err := checkOwner(ownerID, rec); err != nil {
		return err
	}
	const query = `
INSERT INTO analysis_records (` + selectColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	var pet any
	if rec.Pet != nil {
		b, err := json.Marshal(rec.Pet)
		if err != nil {
			return fmt.Errorf("marshal pet: %w", err)
		}
		pet = string(b)
	}
	var note any
	if rec.OwnerNote != "" {
		note = rec.OwnerNote
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		ownerID,
		rec.ImageKey,
		string(features),
		rec.Report,
		rec.ReportSource,
		string(rec.RiskLevel),
		note,
		pet,
		rec.CreatedAt,
	)
	return err
}

// GetByID returns the owner's record by id.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, id string) (Record, error) {
	query := `
SELECT ` + selectColumns + `
FROM analysis_records
WHERE id = $1 AND owner_id = $2
LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListByOwner returns up to limit records, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Record, error) {
	query := `
SELECT ` + selectColumns + `
FROM analysis_records
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListSince returns records created at or after since, oldest first.
func (r *PGRepo) ListSince(ctx context.Context, ownerID string, since time.Time) ([]Record, error) {
	query := `
SELECT ` + selectColumns + `
FROM analysis_records
WHERE owner_id = $1 AND created_at >= $2
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, since)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		features  []byte
		riskLevel string
		note      sql.NullString
		pet       []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.ImageKey,
		&features,
		&rec.Report,
		&rec.ReportSource,
		&riskLevel,
		&note,
		&pet,
		&rec.CreatedAt,
	); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(features, &rec.Features); err != nil {
		return Record{}, fmt.Errorf("decode features for %s: %w", rec.ID, err)
	}
	level, err := risk.ParseLevel(riskLevel)
	if err != nil {
		return Record{}, err
	}
	rec.RiskLevel = level
	rec.OwnerNote = note.String
	if len(pet) > 0 {
		rec.Pet = new(feature.Pet)
		if err := json.Unmarshal(pet, rec.Pet); err != nil {
			return Record{}, fmt.Errorf("decode pet for %s: %w", rec.ID, err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func collect(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
