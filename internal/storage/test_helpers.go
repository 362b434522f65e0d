package storage

import (
	"context"
	"testing"
	"time"

	"github.com/swap-notifier/internal/config"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// testDB connects to the local development database, skipping the test when
// Postgres is not reachable.
func testDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "swap_notifier",
		User:           "notifier",
		Password:       "notifier_dev_password",
		MaxConnections: 10,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
		return nil
	}
	t.Cleanup(db.Close)

	if err := db.Ping(testContext(t)); err != nil {
		t.Skipf("Skipping test - Postgres not reachable: %v", err)
	}

	return db
}
