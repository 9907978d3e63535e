// Package sandbox previews statements against a real engine without ever
// executing DML: EXPLAIN output only, behind its own SELECT whitelist.
package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"askdb/internal/contextutil"
	"askdb/internal/dialect"
)

// ConnFactory opens a raw database connection for the sandbox. Implemented by
// the hosting layer; the sandbox never manages DSNs itself.
type ConnFactory interface {
	Open(ctx context.Context) (*sql.DB, error)
}

// DSNFactory is a ConnFactory over a database/sql driver name and DSN.
type DSNFactory struct {
	Driver string
	DSN    string
}

// Open opens and pings a new database handle.
func (f *DSNFactory) Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(f.Driver, f.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", f.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s connection: %w", f.Driver, err)
	}
	return db, nil
}

// explainable is the sandbox's own whitelist, enforced independently of the
// validator: this is the last line of defense before a real connection.
var explainable = regexp.MustCompile(`(?i)^\s*(EXPLAIN\s+)?SELECT\b`)

// Sandbox issues read-only execution previews.
type Sandbox struct {
	factory ConnFactory
}

// New creates a sandbox over a connection factory.
func New(factory ConnFactory) *Sandbox {
	return &Sandbox{factory: factory}
}

// Explain returns the engine's textual plan for the statement. It refuses
// anything outside the SELECT/EXPLAIN-SELECT whitelist and never returns row
// results.
func (s *Sandbox) Explain(ctx context.Context, sqlText, dialectName string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !explainable.MatchString(sqlText) {
		return "", fmt.Errorf("refusing to preview non-SELECT statement")
	}
	if s.factory == nil {
		return "", fmt.Errorf("no connection factory configured")
	}

	db, err := s.factory.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = db.Close()
	}()

	name := dialect.Normalize(dialectName)
	if name == dialect.MSSQL {
		return s.explainShowplan(ctx, db, sqlText)
	}

	stmt := sqlText
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "EXPLAIN") {
		switch name {
		case dialect.SQLite:
			stmt = "EXPLAIN QUERY PLAN " + stmt
		default:
			stmt = "EXPLAIN " + stmt
		}
	}

	plan, err := queryPlanText(ctx, db, stmt)
	if err != nil {
		logger.WarnContext(ctx, "execution preview failed", "dialect", name, "error", err)
		return "", fmt.Errorf("failed to explain statement: %w", err)
	}
	return plan, nil
}

// explainShowplan handles engines without a bare EXPLAIN verb: the
// session-scoped plan-only toggle is set, the statement run, and the toggle
// cleared best-effort afterwards.
func (s *Sandbox) explainShowplan(ctx context.Context, db *sql.DB, sqlText string) (string, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if _, err := conn.ExecContext(ctx, "SET SHOWPLAN_ALL ON"); err != nil {
		return "", fmt.Errorf("failed to enable plan-only mode: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, "SET SHOWPLAN_ALL OFF")
	}()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return "", fmt.Errorf("failed to explain statement: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	return renderRows(rows)
}

func queryPlanText(ctx context.Context, db *sql.DB, stmt string) (string, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rows.Close()
	}()
	return renderRows(rows)
}

// renderRows flattens a plan result set into tab-separated lines.
func renderRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to read plan columns: %w", err)
	}

	var b strings.Builder
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("failed to scan plan row: %w", err)
		}
		fields := make([]string, 0, len(values))
		for _, v := range values {
			switch val := v.(type) {
			case nil:
				continue
			case []byte:
				fields = append(fields, string(val))
			default:
				fields = append(fields, fmt.Sprintf("%v", val))
			}
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate plan rows: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
