package sqlcheck

import (
	"fmt"
	"regexp"
	"strings"

	"askdb/internal/schema"
)

// Confidence levels derived from validity.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
)

// Options controls validation policy.
type Options struct {
	// AllowWrite disables the forbidden-keyword errors for write statements.
	AllowWrite bool
}

// Report is the validator's verdict. TouchedTables is extracted lexically
// from the SQL itself and is the authoritative answer to "what tables does
// this statement use", not the model's claim.
type Report struct {
	IsValid       bool     `json:"is_valid"`
	Warnings      []string `json:"warnings,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	TouchedTables []string `json:"touched_tables,omitempty"`
	Confidence    string   `json:"confidence"`
}

var (
	selectWhitelist = regexp.MustCompile(`(?i)^\s*(EXPLAIN\s+)?SELECT\b`)
	selectStar      = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	whereClause     = regexp.MustCompile(`(?i)\bWHERE\b`)
	limitClause     = regexp.MustCompile(`(?i)\b(LIMIT|TOP)\b`)
	forbiddenWords  = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate)\b`)
)

// Validate applies every rule and reports all findings; rules are never
// short-circuited so the caller sees the full picture at once.
func Validate(sql string, sctx *schema.Context, opts Options) Report {
	var report Report

	if !selectWhitelist.MatchString(sql) {
		report.Errors = append(report.Errors, "only SELECT statements are allowed")
	}

	if !opts.AllowWrite {
		seen := map[string]bool{}
		for _, match := range forbiddenWords.FindAllString(sql, -1) {
			keyword := strings.ToLower(match)
			if seen[keyword] {
				continue
			}
			seen[keyword] = true
			report.Errors = append(report.Errors, fmt.Sprintf("forbidden keyword: %s", keyword))
		}
	}

	if selectStar.MatchString(sql) {
		report.Warnings = append(report.Warnings, "SELECT * returns all columns; prefer an explicit column list")
	}
	if !whereClause.MatchString(sql) {
		report.Warnings = append(report.Warnings, "no WHERE clause; the statement scans the whole table")
	}
	if !limitClause.MatchString(sql) {
		report.Warnings = append(report.Warnings, "no LIMIT clause; the result set is unbounded")
	}

	report.TouchedTables = ExtractTables(sql)
	if sctx != nil {
		for _, table := range report.TouchedTables {
			if !contextContains(sctx, table) {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("table %q is not in the retrieved schema context; retrieval may have been incomplete", table))
			}
		}
	}

	report.IsValid = len(report.Errors) == 0
	if report.IsValid {
		report.Confidence = ConfidenceMedium
	} else {
		report.Confidence = ConfidenceLow
	}
	return report
}

// identifier characters, including quoting and schema qualification.
var identifierChars = func(r rune) bool {
	return !(r == '_' || r == '.' || r == '"' || r == '`' || r == '[' || r == ']' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9'))
}

// ExtractTables tokenizes the SQL and collects the identifier immediately
// following each FROM or JOIN keyword. Subqueries contribute nothing (the
// next token is a parenthesis, not an identifier).
func ExtractTables(sql string) []string {
	tokens := strings.FieldsFunc(sql, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})

	var tables []string
	seen := map[string]bool{}
	for i := 0; i < len(tokens)-1; i++ {
		keyword := strings.ToUpper(tokens[i])
		if keyword != "FROM" && keyword != "JOIN" {
			continue
		}
		next := tokens[i+1]
		if strings.HasPrefix(next, "(") {
			continue
		}
		name := cleanIdentifier(next)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if !seen[lower] {
			seen[lower] = true
			tables = append(tables, name)
		}
	}
	return tables
}

// cleanIdentifier strips trailing punctuation and per-segment quoting from a
// candidate table token, so public."orders" and [dbo].[users] both normalize.
func cleanIdentifier(token string) string {
	if idx := strings.IndexFunc(token, identifierChars); idx >= 0 {
		token = token[:idx]
	}
	parts := strings.Split(token, ".")
	for i, part := range parts {
		parts[i] = strings.Trim(part, "\"`[]")
	}
	return strings.Join(parts, ".")
}

// contextContains matches a lexically-extracted table name against the
// context, case-insensitively, comparing both the full form and the last
// segment of schema-qualified names.
func contextContains(sctx *schema.Context, table string) bool {
	lower := strings.ToLower(table)
	last := lower
	if idx := strings.LastIndex(lower, "."); idx >= 0 {
		last = lower[idx+1:]
	}
	for _, t := range sctx.Tables {
		name := strings.ToLower(t.Name)
		qualified := strings.ToLower(t.QualifiedName())
		if lower == name || lower == qualified || last == name {
			return true
		}
	}
	return false
}
