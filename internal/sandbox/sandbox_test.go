package sandbox

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newSandboxDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sandbox.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := db.Exec(`CREATE TABLE orders (id INTEGER PRIMARY KEY, total NUMERIC)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO orders (total) VALUES (10), (20)`); err != nil {
		t.Fatalf("failed to seed test table: %v", err)
	}
	return path
}

func TestSandbox_Explain(t *testing.T) {
	path := newSandboxDatabase(t)
	sb := New(&DSNFactory{Driver: "sqlite3", DSN: path})

	plan, err := sb.Explain(context.Background(), "SELECT id FROM orders WHERE total > 15", "sqlite")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(plan), "orders") {
		t.Errorf("Explain() plan does not mention the table:\n%s", plan)
	}
}

func TestSandbox_ExplainAlreadyPrefixed(t *testing.T) {
	path := newSandboxDatabase(t)
	sb := New(&DSNFactory{Driver: "sqlite3", DSN: path})

	// A statement that already carries EXPLAIN is not double-wrapped.
	plan, err := sb.Explain(context.Background(), "EXPLAIN SELECT id FROM orders", "sqlite")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if plan == "" {
		t.Error("Explain() returned an empty plan")
	}
}

func TestSandbox_RefusesNonSelect(t *testing.T) {
	sb := New(&DSNFactory{Driver: "sqlite3", DSN: "unused"})

	for _, stmt := range []string{
		"DELETE FROM orders",
		"UPDATE orders SET total = 0",
		"DROP TABLE orders",
		"INSERT INTO orders (total) VALUES (1)",
	} {
		if _, err := sb.Explain(context.Background(), stmt, "sqlite"); err == nil {
			t.Errorf("Explain(%q) expected refusal, got nil error", stmt)
		}
	}
}

func TestSandbox_NoFactory(t *testing.T) {
	sb := New(nil)
	if _, err := sb.Explain(context.Background(), "SELECT 1", "sqlite"); err == nil {
		t.Fatal("Explain() expected error without a connection factory")
	}
}

func TestSandbox_InvalidStatement(t *testing.T) {
	path := newSandboxDatabase(t)
	sb := New(&DSNFactory{Driver: "sqlite3", DSN: path})

	if _, err := sb.Explain(context.Background(), "SELECT nope FROM missing_table", "sqlite"); err == nil {
		t.Fatal("Explain() expected error for a statement over a missing table")
	}
}

func TestDSNFactory_OpenFailure(t *testing.T) {
	factory := &DSNFactory{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "no", "such", "dir.db")}
	if _, err := factory.Open(context.Background()); err == nil {
		t.Fatal("Open() expected error for unreachable path")
	}
}
