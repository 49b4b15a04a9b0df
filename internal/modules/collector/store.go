// README: Collector store backed by PostgreSQL.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

const selectCollector = `
	SELECT user_id, availability, vehicle_type, license_plate, lat, lng, last_seen_at, updated_at
	FROM collectors`

func (s *Store) Get(ctx context.Context, userID types.ID) (*Collector, error) {
	row := s.db.QueryRow(ctx, selectCollector+` WHERE user_id = $1`, string(userID))
	c, err := scanCollector(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Store) SetAvailability(ctx context.Context, userID types.ID, a Availability, at time.Time) (*Collector, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO collectors (user_id, availability, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET availability = EXCLUDED.availability,
		    last_seen_at = EXCLUDED.last_seen_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING user_id, availability, vehicle_type, license_plate, lat, lng, last_seen_at, updated_at`,
		string(userID), string(a), at,
	)
	return scanCollector(row)
}

func (s *Store) UpdateLocation(ctx context.Context, userID types.ID, p types.Point, at time.Time) (*Collector, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO collectors (user_id, lat, lng, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET lat = EXCLUDED.lat,
		    lng = EXCLUDED.lng,
		    last_seen_at = EXCLUDED.last_seen_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING user_id, availability, vehicle_type, license_plate, lat, lng, last_seen_at, updated_at`,
		string(userID), p.Lat, p.Lng, at,
	)
	return scanCollector(row)
}

// SetOffline reports whether the collector was available before the call.
func (s *Store) SetOffline(ctx context.Context, userID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE collectors
		SET availability = 'offline', updated_at = NOW()
		WHERE user_id = $1 AND availability = 'available'`,
		string(userID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListIdle returns available collectors not seen since before.
func (s *Store) ListIdle(ctx context.Context, before time.Time) ([]types.ID, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id FROM collectors
		WHERE availability = 'available'
		  AND (last_seen_at IS NULL OR last_seen_at < $1)`,
		before,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []types.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, types.ID(id))
	}
	return ids, rows.Err()
}

func scanCollector(row pgx.Row) (*Collector, error) {
	var c Collector
	var availability string
	var vehicle, plate sql.NullString
	var lat, lng sql.NullFloat64
	var lastSeen sql.NullTime
	if err := row.Scan(&c.UserID, &availability, &vehicle, &plate, &lat, &lng, &lastSeen, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Availability = Availability(availability)
	if vehicle.Valid {
		c.VehicleType = &vehicle.String
	}
	if plate.Valid {
		c.LicensePlate = &plate.String
	}
	if lat.Valid && lng.Valid {
		c.Location = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		c.LastSeenAt = &t
	}
	return &c, nil
}
