// README: Deposit repository on database/sql; insert and list only.
package deposit

import (
	"context"
	"database/sql"
	"encoding/json"

	"kurs/internal/types"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, d *Deposit) error {
	photos, err := json.Marshal(d.Photos)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deposits (
			id, depositor_id, verified_by, facility_id, waste_type, weight_kg, photos, status, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(d.ID),
		string(d.DepositorID),
		string(d.VerifiedBy),
		d.FacilityID,
		d.WasteType,
		d.WeightKg,
		string(photos),
		d.Status,
		d.Notes,
		d.CreatedAt,
	)
	return err
}

func (s *Store) ListByDepositor(ctx context.Context, depositorID types.ID, limit int) ([]Deposit, error) {
	return s.list(ctx, `
		SELECT id, depositor_id, verified_by, facility_id, waste_type, weight_kg, photos, status, notes, created_at
		FROM deposits
		WHERE depositor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(depositorID), limit)
}

func (s *Store) ListByStaff(ctx context.Context, staffID types.ID, limit int) ([]Deposit, error) {
	return s.list(ctx, `
		SELECT id, depositor_id, verified_by, facility_id, waste_type, weight_kg, photos, status, notes, created_at
		FROM deposits
		WHERE verified_by = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(staffID), limit)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Deposit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Deposit{}
	for rows.Next() {
		var d Deposit
		var facility, notes sql.NullString
		var photos []byte
		if err := rows.Scan(
			&d.ID, &d.DepositorID, &d.VerifiedBy, &facility, &d.WasteType,
			&d.WeightKg, &photos, &d.Status, &notes, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		if facility.Valid {
			d.FacilityID = &facility.String
		}
		if notes.Valid {
			d.Notes = &notes.String
		}
		if err := json.Unmarshal(photos, &d.Photos); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
