package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/watzon/virtualdate/internal/config"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := &config.DatabaseConfig{
		Path:         dbPath,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestOpenAndClose(t *testing.T) {
	db := testDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestMigrationsApplied(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, table := range []string{"builds", "instances"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %q to exist: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.DatabaseConfig{
		Path:         filepath.Join(tmpDir, "test.db"),
		BusyTimeout:  time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db, err = Open(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM _virtualdate_versions",
	).Scan(&count)
	if err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
	}
}

func TestTransaction(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec("INSERT INTO builds (id, window_start, window_end) VALUES ('b1', '2026-01-01T00:00:00Z', '2026-01-08T00:00:00Z')")
		if err != nil {
			return err
		}
		_, err = tx.Exec("INSERT INTO instances (build_id, task_id, start, finish) VALUES ('b1', 'standup', '2026-01-01T10:00:00Z', '2026-01-01T10:15:00Z')")
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM instances").Scan(&count)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestTransactionRollback(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec("INSERT INTO builds (id, window_start, window_end) VALUES ('b1', '2026-01-01T00:00:00Z', '2026-01-08T00:00:00Z')")
		if err != nil {
			return err
		}
		_, err = tx.Exec("INSERT INTO builds (id, window_start, window_end) VALUES ('b1', '2026-01-01T00:00:00Z', '2026-01-08T00:00:00Z')")
		return err
	})
	if err == nil {
		t.Fatal("expected transaction to fail")
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM builds").Scan(&count)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 rows after rollback, got %d", count)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO builds (id, window_start, window_end) VALUES ('b1', '2026-01-01T00:00:00Z', '2026-01-08T00:00:00Z')")
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.ExecContext(ctx, "INSERT INTO instances (build_id, task_id, start, finish) VALUES ('b1', 'standup', '2026-01-01T10:00:00Z', '2026-01-01T10:15:00Z')")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM builds WHERE id = 'b1'"); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM instances").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected cascade delete to remove instances, got %d", count)
	}
}
