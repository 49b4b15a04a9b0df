// README: Role grant repository on database/sql.
package role

import (
	"context"
	"database/sql"

	"kurs/internal/types"
)

type GrantStore struct {
	db *sql.DB
}

func NewGrantStore(db *sql.DB) *GrantStore {
	return &GrantStore{db: db}
}

func (s *GrantStore) ListGrants(ctx context.Context, userID types.ID) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, Role(r))
	}
	return roles, rows.Err()
}

func (s *GrantStore) Grant(ctx context.Context, userID types.ID, r Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`,
		string(userID), string(r),
	)
	return err
}
