// README: Payment intent store backed by PostgreSQL.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kurs/internal/types"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const intentColumns = `id, pickup_id, amount, currency, external_id, provider_id, qr_string,
	       status, created_at, completed_at, superseded_at, checked_at`

// CreateIntent supersedes the pickup's open intent and inserts in in one transaction.
func (s *Store) CreateIntent(ctx context.Context, in *Intent) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE payment_intents
		SET superseded_at = $2
		WHERE pickup_id = $1 AND status = 'pending' AND superseded_at IS NULL`,
		string(in.PickupID), in.CreatedAt,
	); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO payment_intents (
			id, pickup_id, amount, currency, external_id, provider_id, qr_string, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(in.ID),
		string(in.PickupID),
		in.Amount.Amount,
		in.Amount.Currency,
		in.ExternalID,
		in.ProviderID,
		in.QRString,
		string(in.Status),
		in.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConcurrentOpen
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Latest(ctx context.Context, pickupID types.ID) (*Intent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE pickup_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, string(pickupID),
	)
	in, err := scanIntent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return in, err
}

func (s *Store) Open(ctx context.Context, pickupID types.ID) (*Intent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE pickup_id = $1 AND status = 'pending' AND superseded_at IS NULL`, string(pickupID),
	)
	in, err := scanIntent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenIntent
	}
	return in, err
}

func (s *Store) HasCompleted(ctx context.Context, pickupID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_intents
			WHERE pickup_id = $1 AND status = 'completed'
		)`, string(pickupID),
	).Scan(&exists)
	return exists, err
}

// Complete flips a pending intent to completed. It returns (nil, false, nil)
// for an unknown reference and (intent, false, nil) when already completed.
func (s *Store) Complete(ctx context.Context, externalID string, at time.Time) (*Intent, bool, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE payment_intents
		SET status = 'completed', completed_at = $2
		WHERE external_id = $1 AND status = 'pending'
		RETURNING `+intentColumns, externalID, at,
	)
	in, err := scanIntent(row)
	if err == nil {
		return in, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	row = s.db.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE external_id = $1`, externalID)
	in, err = scanIntent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return in, false, nil
}

// ListSweepable returns pending intents created inside [from, to). Intents the
// sweep has never polled come first, then the least recently polled, newest first.
func (s *Store) ListSweepable(ctx context.Context, from, to time.Time, limit int) ([]Intent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE status = 'pending' AND created_at >= $1 AND created_at < $2
		ORDER BY checked_at ASC NULLS FIRST, created_at DESC
		LIMIT $3`, from, to, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *Store) MarkChecked(ctx context.Context, ids []types.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	_, err := s.db.Exec(ctx, `UPDATE payment_intents SET checked_at = $2 WHERE id = ANY($1)`, raw, at)
	return err
}

func scanIntent(row pgx.Row) (*Intent, error) {
	var in Intent
	var status string
	var completedAt, supersededAt, checkedAt sql.NullTime
	err := row.Scan(
		&in.ID, &in.PickupID, &in.Amount.Amount, &in.Amount.Currency,
		&in.ExternalID, &in.ProviderID, &in.QRString,
		&status, &in.CreatedAt, &completedAt, &supersededAt, &checkedAt,
	)
	if err != nil {
		return nil, err
	}
	in.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		in.CompletedAt = &t
	}
	if supersededAt.Valid {
		t := supersededAt.Time
		in.SupersededAt = &t
	}
	if checkedAt.Valid {
		t := checkedAt.Time
		in.CheckedAt = &t
	}
	return &in, nil
}
