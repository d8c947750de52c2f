//go:build integration

// Package integration runs the repositories and services against a real
// PostgreSQL. Run with: go test -tags integration ./test/integration/...
// TEST_DATABASE_URL points the suite at an existing database instead of
// starting a container.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthsync/healthsync/internal/platform/auth"
	"github.com/healthsync/healthsync/internal/platform/db"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := setupDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up database: %v\n", err)
		os.Exit(1)
	}

	testPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupDatabase(ctx context.Context) (*pgxpool.Pool, func(), error) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	stop := func() {}
	if connStr == "" {
		var err error
		connStr, stop, err = startPostgresContainer(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("start postgres container: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, connStr, db.PoolOptions{MaxConns: 8})
	if err != nil {
		stop()
		return nil, nil, err
	}

	if _, err := db.NewMigrator(pool, findMigrationsDir()).Up(ctx); err != nil {
		pool.Close()
		stop()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		stop()
	}, nil
}

// findMigrationsDir locates the migrations directory relative to this file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// resetTables empties every application table so each test starts clean.
func resetTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE medicine_inventory, medicines, pharmacies, appointments,
		         prescriptions, doctor_visits, users CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// createUser inserts a user row directly and returns a context
// authenticated as that user.
func createUser(t *testing.T, email string) (uuid.UUID, context.Context) {
	t.Helper()
	id := uuid.New()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO users (id, email, password_hash, full_name) VALUES ($1, $2, $3, $4)`,
		id, email, "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva", "Test User")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id, auth.WithUserID(context.Background(), id.String())
}

func ptr[T any](v T) *T { return &v }
