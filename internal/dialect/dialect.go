// Package dialect centralizes SQL-dialect differences: canonical names,
// parameter placeholder styles, and the syntax notes included in prompts.
package dialect

import (
	"fmt"
	"strings"
)

// Canonical dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	MSSQL    = "mssql"
)

// Normalize maps common aliases onto the canonical dialect name. Unknown
// values are lowercased and passed through so callers can still carry them.
func Normalize(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	case "mssql", "sqlserver", "sql server":
		return MSSQL
	case "":
		return SQLite
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// Placeholder renders the n-th (1-based) parameter placeholder for a dialect.
func Placeholder(name string, n int) string {
	switch Normalize(name) {
	case Postgres:
		return fmt.Sprintf("$%d", n)
	case MSSQL:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// SyntaxNotes returns the dialect-specific hints that prompt assembly embeds
// so the model emits syntax the target engine accepts.
func SyntaxNotes(name string) []string {
	switch Normalize(name) {
	case Postgres:
		return []string{
			"Use $1, $2, ... for query parameters.",
			"Auto-increment columns use SERIAL or GENERATED AS IDENTITY.",
			"String concatenation uses the || operator.",
			"Row count limiting uses LIMIT n.",
		}
	case MySQL:
		return []string{
			"Use ? for query parameters.",
			"Auto-increment columns use AUTO_INCREMENT.",
			"String concatenation uses CONCAT().",
			"Row count limiting uses LIMIT n.",
		}
	case MSSQL:
		return []string{
			"Use @p1, @p2, ... for query parameters.",
			"Auto-increment columns use IDENTITY.",
			"String concatenation uses the + operator.",
			"Row count limiting uses SELECT TOP n.",
		}
	default:
		return []string{
			"Use ? for query parameters.",
			"Auto-increment columns use INTEGER PRIMARY KEY AUTOINCREMENT.",
			"String concatenation uses the || operator.",
			"Row count limiting uses LIMIT n.",
		}
	}
}
