// README: Facility store backed by PostgreSQL. The directory is read-only for the API.
package facility

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurs/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectFacility = `
	SELECT id, name, type, address, lat, lng, contact, opening_hours, created_at
	FROM facilities`

func (s *Store) Get(ctx context.Context, id types.ID) (*Facility, error) {
	f, err := scanFacility(s.db.QueryRow(ctx, selectFacility+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// List returns facilities ordered by name. An empty typ matches every type.
func (s *Store) List(ctx context.Context, typ Type, limit int) ([]Facility, error) {
	rows, err := s.db.Query(ctx, selectFacility+`
		WHERE ($1 = '' OR type = $1)
		ORDER BY name
		LIMIT $2`, string(typ), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	var typ string
	var address, contact sql.NullString
	var lat, lng sql.NullFloat64
	var hours []byte
	if err := row.Scan(&f.ID, &f.Name, &typ, &address, &lat, &lng, &contact, &hours, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Type = Type(typ)
	if address.Valid {
		f.Address = &address.String
	}
	if contact.Valid {
		f.Contact = &contact.String
	}
	if lat.Valid && lng.Valid {
		f.Location = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &f.OpeningHours); err != nil {
			return nil, fmt.Errorf("facility %s opening hours: %w", f.ID, err)
		}
	}
	return &f, nil
}
