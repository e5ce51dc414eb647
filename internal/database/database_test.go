package database

import (
	"os"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tmpFile := "test_database.db"
	defer os.Remove(tmpFile)

	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if db.Dialect() != DialectSQLite {
		t.Errorf("Expected sqlite dialect, got %s", db.Dialect())
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
}

func TestInitialize(t *testing.T) {
	tmpFile := "test_init.db"
	defer os.Remove(tmpFile)

	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", "tasks").Scan(&name)
	if err != nil {
		t.Errorf("Table tasks was not created: %v", err)
	}

	indexes := []string{
		"idx_tasks_status",
		"idx_tasks_priority",
		"idx_tasks_created_at",
	}
	for _, index := range indexes {
		var idxName string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&idxName)
		if err != nil {
			t.Errorf("Index %s was not created: %v", index, err)
		}
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	tmpFile := "test_idempotent.db"
	defer os.Remove(tmpFile)

	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		t.Fatalf("First initialization failed: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Second initialization failed: %v", err)
	}
}

func TestIDsNotReusedAfterDelete(t *testing.T) {
	tmpFile := "test_id_reuse.db"
	defer os.Remove(tmpFile)

	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	now := time.Now()
	insert := func(title string) int64 {
		res, err := db.Exec(
			"INSERT INTO tasks (title, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			title, "todo", "medium", now, now,
		)
		if err != nil {
			t.Fatalf("Failed to insert task: %v", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("LastInsertId failed: %v", err)
		}
		return id
	}

	first := insert("one")
	if _, err := db.Exec("DELETE FROM tasks WHERE id = ?", first); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	second := insert("two")
	if second <= first {
		t.Errorf("Expected id after delete to advance past %d, got %d", first, second)
	}
}

func TestRebind(t *testing.T) {
	tmpFile := "test_rebind.db"
	defer os.Remove(tmpFile)

	db, err := New(tmpFile)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	// sqlite keeps ? placeholders untouched
	query := "SELECT * FROM tasks WHERE status = ? AND priority = ?"
	if got := db.Rebind(query); got != query {
		t.Errorf("Expected unchanged query for sqlite, got %s", got)
	}

	pg := &DB{dialect: DialectPostgres}
	got := pg.Rebind("UPDATE tasks SET title = ?, updated_at = ? WHERE id = ?")
	want := "UPDATE tasks SET title = $1, updated_at = $2 WHERE id = $3"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
