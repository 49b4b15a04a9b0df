// README: Shared helpers for DB-backed tests; skipped unless KURS_TEST_DSN is set.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"kurs/internal/migrate"
)

// Pool connects to KURS_TEST_DSN, applies the schema and truncates every table.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("KURS_TEST_DSN")
	if dsn == "" {
		t.Skip("KURS_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := ApplyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE pickup_state_events, payment_intents, pickups, collectors, user_roles, deposits, facilities"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return db
}

func ApplyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := RepoRoot()
	if err != nil {
		return err
	}
	return migrate.ApplyFile(ctx, db, filepath.Join(root, "migrations", "0001_init.sql"))
}

func RepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}
