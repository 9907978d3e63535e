// Package sqlcheck post-processes and safety-checks model-generated SQL. It
// is deliberately lexical: keyword tokens and regular expressions over the
// statement text, never a dialect-specific grammar.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strings"

	"askdb/internal/dialect"
	"askdb/internal/llm"
)

// placeholderPattern recognizes every placeholder family a model might emit:
// @pN, :pN, $N, and bare ?.
var placeholderPattern = regexp.MustCompile(`@p\d+|:p\d+|\$\d+|\?`)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// PostProcess normalizes a generated statement for the target dialect: the
// trailing semicolon is stripped, whitespace runs collapse to single spaces,
// and recognized placeholders are rewritten into the dialect's canonical
// style, numbered left to right.
func PostProcess(generated llm.GeneratedSql, dialectName string) llm.GeneratedSql {
	sql := strings.TrimSpace(generated.Sql)
	sql = strings.TrimRight(sql, ";")
	sql = strings.TrimSpace(whitespaceRuns.ReplaceAllString(sql, " "))
	sql = RewritePlaceholders(sql, dialectName)

	generated.Sql = sql
	return generated
}

// RewritePlaceholders rewrites every recognized placeholder into the single
// canonical style for the dialect. Purely textual; string literals containing
// placeholder-shaped text are rewritten too, which matches the lexical
// contract of this package.
func RewritePlaceholders(sql, dialectName string) string {
	name := dialect.Normalize(dialectName)
	n := 0
	return placeholderPattern.ReplaceAllStringFunc(sql, func(string) string {
		n++
		switch name {
		case dialect.Postgres:
			return fmt.Sprintf("$%d", n)
		case dialect.MSSQL:
			return fmt.Sprintf("@p%d", n)
		default:
			return "?"
		}
	})
}
