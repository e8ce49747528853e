package integration

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/db"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool          *pgxpool.Pool
	ConnStr       string
	MigrationsDir string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

// TestMain connects to TEST_DATABASE_URL, or starts a throwaway Postgres
// container when INTEGRATION_DOCKER=1. Without either the suite is skipped.
func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("TEST_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		if os.Getenv("INTEGRATION_DOCKER") != "1" {
			fmt.Fprintln(os.Stderr, "integration: TEST_DATABASE_URL not set, skipping")
			os.Exit(0)
		}
		var err error
		connStr, cleanup, err = startWithDocker(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, connStr, db.PoolOptions{MaxConns: 4})
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool, ConnStr: connStr, MigrationsDir: findMigrationsDir()}
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// schemaPool creates an isolated schema, migrates it and returns a pool whose
// connections use it as their search_path. Everything is dropped when the
// test ends.
func schemaPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	schema := "it_" + strings.ReplaceAll(uuid.New().String()[:8], "-", "")
	if _, err := globalDB.Pool.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	u, err := url.Parse(globalDB.ConnStr)
	if err != nil {
		t.Fatalf("parse conn string: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	pool, err := db.NewPool(ctx, u.String(), db.PoolOptions{MaxConns: 16})
	if err != nil {
		t.Fatalf("schema pool: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		if _, err := globalDB.Pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
	})

	if _, err := db.NewMigrator(pool, globalDB.MigrationsDir).Up(ctx); err != nil {
		t.Fatalf("migrate %s: %v", schema, err)
	}
	return pool
}

// seed inserts a doctor, a parent and the parent's child patient.
type seed struct {
	Doctor  uuid.UUID
	Parent  uuid.UUID
	Patient uuid.UUID
}

func seedPeople(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seed {
	t.Helper()
	s := seed{Doctor: uuid.New(), Parent: uuid.New(), Patient: uuid.New()}
	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{`INSERT INTO users (id, first_name, last_name, role) VALUES ($1, 'Ana', 'Rojas', $2)`, []interface{}{s.Doctor, identity.RoleDoctor}},
		{`INSERT INTO users (id, first_name, last_name, role) VALUES ($1, 'Luis', 'Quispe', $2)`, []interface{}{s.Parent, identity.RoleParent}},
		{`INSERT INTO patients (id, parent_id, first_name, last_name) VALUES ($1, $2, 'Sofía', 'Quispe')`, []interface{}{s.Patient, s.Parent}},
	}
	for _, st := range stmts {
		if _, err := pool.Exec(ctx, st.sql, st.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return s
}

func ptrStr(s string) *string { return &s }
