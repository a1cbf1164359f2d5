package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()
}

func TestOpen_TablesExist(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	tables := []string{"conversations", "turns", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := database.Conn().QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("query table %q: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %q not found", table)
		}
	}
}

func TestOpen_MigrationsRecorded(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	var count int
	err = database.Conn().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count)
	if err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Opening twice must not re-apply migrations.
	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	// Verify tables still exist.
	var count int
	db2.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='turns'`).Scan(&count)
	if count != 1 {
		t.Error("turns table missing after re-open")
	}
}

func TestOpen_TurnsCascadeOnConversationDelete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	conn := database.Conn()
	if _, err := conn.Exec(`INSERT INTO conversations (id, owner) VALUES ('c1', 'alice')`); err != nil {
		t.Fatalf("insert conversation: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO turns (conversation_id, position, model, user_text) VALUES ('c1', 0, 'gpt-3.5-turbo', 'hi')`); err != nil {
		t.Fatalf("insert turn: %v", err)
	}
	if _, err := conn.Exec(`DELETE FROM conversations WHERE id = 'c1'`); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}

	var count int
	conn.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&count)
	if count != 0 {
		t.Errorf("expected turns to be removed with their conversation, got %d", count)
	}
}

func TestOpen_DuplicatePositionRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	conn := database.Conn()
	conn.Exec(`INSERT INTO conversations (id, owner) VALUES ('c1', 'alice')`)
	conn.Exec(`INSERT INTO turns (conversation_id, position, model) VALUES ('c1', 0, 'm')`)
	if _, err := conn.Exec(`INSERT INTO turns (conversation_id, position, model) VALUES ('c1', 0, 'm')`); err == nil {
		t.Error("expected unique constraint on (conversation_id, position)")
	}
}

func TestConn_ReturnsNonNil(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	if database.Conn() == nil {
		t.Error("Conn() returned nil")
	}
}

func TestClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := database.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// After close, Ping should fail.
	if err := database.Ping(); err == nil {
		t.Error("expected Ping to fail after Close")
	}
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	err = database.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO conversations (id, owner) VALUES ('kept', 'alice')`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}

	boom := errors.New("boom")
	err = database.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO conversations (id, owner) VALUES ('dropped', 'alice')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	var ids []string
	rows, err := database.Conn().Query(`SELECT id FROM conversations ORDER BY id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		rows.Scan(&id)
		ids = append(ids, id)
	}
	if len(ids) != 1 || ids[0] != "kept" {
		t.Errorf("conversations = %v, want [kept]", ids)
	}
}
