// Package testutil wires integration tests to a throwaway Postgres database.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/johndosdos/hybridchat/internal/database"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DbInit connects to TEST_DB_URL and applies a fresh schema. The test is
// skipped when no test database is configured. Migrations are rolled back
// when the test finishes.
func DbInit(t testing.TB) *pgxpool.Pool {
	t.Helper()

	env, err := godotenv.Read(filepath.Join(ProjectRoot(), ".env"))
	if err != nil {
		t.Logf("no .env file loaded: %v", err)
	}

	testURL := lookupTestURL(env)
	if testURL == "" {
		t.Skip("TEST_DB_URL is not set; skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		t.Fatalf("could not reach the postgresql database: %v", err)
	}

	dbForGoose := stdlib.OpenDBFromPool(dbPool)
	if err := database.Reset(dbForGoose); err != nil {
		t.Fatalf("database.Reset() error = %+v", err)
	}
	if err := database.Migrate(dbForGoose); err != nil {
		t.Fatalf("database.Migrate() error = %+v", err)
	}

	t.Cleanup(func() {
		if err := database.Reset(dbForGoose); err != nil {
			t.Errorf("database.Reset() error = %+v", err)
		}
		if err := dbForGoose.Close(); err != nil {
			t.Errorf("db.Close() error = %+v", err)
		}
		dbPool.Close()
	})

	return dbPool
}

func lookupTestURL(dotenv map[string]string) string {
	if v := os.Getenv("TEST_DB_URL"); v != "" {
		return v
	}
	return dotenv["TEST_DB_URL"]
}
