package role

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurs/internal/testutil"
	"kurs/internal/types"
)

func TestGrantStore_ListGrants(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := NewGrantStore(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT role FROM user_roles").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("collector").AddRow("staff"))

		roles, err := store.ListGrants(ctx, "u1")
		assert.NoError(t, err)
		assert.Equal(t, []Role{Collector, Staff}, roles)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("SELECT role FROM user_roles").
			WithArgs("u2").
			WillReturnError(errors.New("connection reset"))

		_, err := store.ListGrants(ctx, "u2")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantStore_Grant(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("u1", "collector").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewGrantStore(db).Grant(context.Background(), "u1", Collector)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActingStore(t *testing.T) {
	ctx := context.Background()
	store := NewActingStore(testutil.Redis(t))

	r, err := store.Get(ctx, types.ID("u1"))
	require.NoError(t, err)
	assert.Equal(t, Role(""), r)

	require.NoError(t, store.Set(ctx, "u1", Staff))
	r, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Staff, r)
}
