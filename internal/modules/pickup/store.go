// README: Pickup store backed by PostgreSQL.
package pickup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

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

const selectPickup = `
	SELECT id, requester_id, collector_id, status, status_version,
	       address, lat, lng, waste_types, photos, notes, volume_estimate, scheduled_at,
	       fee_amount, fee_currency, created_at, updated_at
	FROM pickups`

func (s *Store) Create(ctx context.Context, p *Pickup) error {
	wasteTypes, err := json.Marshal(p.WasteTypes)
	if err != nil {
		return err
	}
	photos, err := json.Marshal(p.Photos)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO pickups (
			id, requester_id, collector_id, status, status_version,
			address, lat, lng, waste_types, photos, notes, volume_estimate, scheduled_at,
			fee_amount, fee_currency, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)`,
		string(p.ID),
		string(p.RequesterID),
		toStringPtr(p.CollectorID),
		string(p.Status),
		p.StatusVersion,
		p.Address,
		p.Location.Lat, p.Location.Lng,
		wasteTypes,
		photos,
		p.Notes,
		p.VolumeEstimate,
		p.ScheduledAt,
		p.Fee.Amount,
		p.Fee.Currency,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Pickup, error) {
	row := s.db.QueryRow(ctx, selectPickup+` WHERE id = $1`, string(id))
	p, err := scanPickup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus is a compare-and-set on (status, status_version). collector_id is
// written as given, so passing nil clears it.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, collectorID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE pickups
		SET status = $1,
		    status_version = status_version + 1,
		    collector_id = $2,
		    updated_at = NOW()
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		toStringPtr(collectorID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pickup_state_events (
			pickup_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.PickupID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) ListEvents(ctx context.Context, pickupID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, pickup_id, from_status, to_status, actor_type, actor_id, created_at
		FROM pickup_state_events
		WHERE pickup_id = $1
		ORDER BY id`, string(pickupID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var from, to string
		var actorID sql.NullString
		if err := rows.Scan(&e.ID, &e.PickupID, &from, &to, &e.ActorType, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus, e.ToStatus = Status(from), Status(to)
		if actorID.Valid {
			a := types.ID(actorID.String)
			e.ActorID = &a
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]Pickup, error) {
	return s.list(ctx, selectPickup+`
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`, string(status), limit)
}

func (s *Store) ListByCollector(ctx context.Context, collectorID types.ID, statuses []Status) ([]Pickup, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.list(ctx, selectPickup+`
		WHERE collector_id = $1 AND status = ANY($2)
		ORDER BY updated_at DESC`, string(collectorID), names)
}

func (s *Store) ListByRequester(ctx context.Context, requesterID types.ID, limit int) ([]Pickup, error) {
	return s.list(ctx, selectPickup+`
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(requesterID), limit)
}

func (s *Store) Earnings(ctx context.Context, collectorID types.ID) (*Earnings, error) {
	e := &Earnings{CollectorID: collectorID, Total: types.IDR(0)}
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(fee_amount), 0)
		FROM pickups
		WHERE collector_id = $1 AND status = 'completed'`, string(collectorID),
	).Scan(&e.Completed, &e.Total.Amount)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Pickup, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Pickup{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPickup(row pgx.Row) (*Pickup, error) {
	var p Pickup
	var status string
	var collectorID, notes, volume sql.NullString
	var scheduledAt sql.NullTime
	var wasteTypes, photos []byte

	err := row.Scan(
		&p.ID, &p.RequesterID, &collectorID, &status, &p.StatusVersion,
		&p.Address, &p.Location.Lat, &p.Location.Lng, &wasteTypes, &photos, &notes, &volume, &scheduledAt,
		&p.Fee.Amount, &p.Fee.Currency, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	if collectorID.Valid {
		c := types.ID(collectorID.String)
		p.CollectorID = &c
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	if volume.Valid {
		p.VolumeEstimate = &volume.String
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		p.ScheduledAt = &t
	}
	if err := json.Unmarshal(wasteTypes, &p.WasteTypes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(photos, &p.Photos); err != nil {
		return nil, err
	}
	return &p, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
