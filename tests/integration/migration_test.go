//go:build integration

package integration_test

import (
	"context"
	"testing"

	"github.com/Strob0t/TaskForge/internal/adapter/postgres"
)

// TestMigrationUpDown rolls the whole schema back and re-applies it,
// proving every migration's Down section works.
func TestMigrationUpDown(t *testing.T) {
	ctx := context.Background()
	dsn := testDSN()
	const totalMigrations = 2

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("RunMigrations (up): %v", err)
	}
	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		t.Fatalf("MigrationVersion after up: %v", err)
	}
	if v != totalMigrations {
		t.Fatalf("version %d after up, want %d", v, totalMigrations)
	}

	if err := postgres.RollbackMigrations(ctx, dsn, totalMigrations); err != nil {
		t.Fatalf("RollbackMigrations: %v", err)
	}
	v, err = postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		t.Fatalf("MigrationVersion after rollback: %v", err)
	}
	if v != 0 {
		t.Fatalf("version %d after full rollback, want 0", v)
	}

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("RunMigrations (re-up): %v", err)
	}
	v, err = postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		t.Fatalf("MigrationVersion after re-up: %v", err)
	}
	if v != totalMigrations {
		t.Fatalf("version %d after re-up, want %d", v, totalMigrations)
	}
}
