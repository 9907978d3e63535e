// Package prompt renders dialect-aware, schema-grounded generation prompts.
package prompt

import (
	"fmt"
	"strings"

	"askdb/internal/dialect"
	"askdb/internal/llm"
	"askdb/internal/schema"
)

// maxSummaryColumns bounds how many columns each table contributes to the
// compact schema summary.
const maxSummaryColumns = 8

const systemPreamble = "You are an expert SQL engineer. You translate a user's question into a single " +
	"SQL statement grounded strictly in the database schema provided. Use only the tables and columns " +
	"listed; never invent columns or tables. Prefer explicit column lists over SELECT *."

const outputShape = `Respond with a single JSON object and nothing else:
{"sql": "<the SQL statement>", "params": {"<name>": <value>}, "tables": ["<table>", ...], "explanation": "<one sentence>"}`

// Options tunes prompt assembly.
type Options struct {
	// ReturnExplanation asks the model for a short natural-language
	// explanation alongside the SQL.
	ReturnExplanation bool
	// RepairErrors, when non-empty, turns the prompt into a corrective
	// regeneration request carrying the prior attempt's validation errors.
	RepairErrors []string
	// LastSql is the rejected statement a repair round should correct.
	LastSql string
}

// Assemble renders the generation prompt for one question against the
// retrieved schema context.
func Assemble(question, dialectName string, sctx *schema.Context, opts Options) llm.Prompt {
	var b strings.Builder

	b.WriteString("Database dialect: ")
	b.WriteString(dialect.Normalize(dialectName))
	b.WriteString("\n\nSchema:\n")

	for _, table := range sctx.Tables {
		writeTableSummary(&b, table)
	}

	writeRelationships(&b, sctx.Tables)

	b.WriteString("\nDialect notes:\n")
	for _, note := range dialect.SyntaxNotes(dialectName) {
		b.WriteString("- ")
		b.WriteString(note)
		b.WriteString("\n")
	}

	if len(opts.RepairErrors) > 0 {
		b.WriteString("\nYour previous statement was rejected:\n")
		if opts.LastSql != "" {
			b.WriteString(opts.LastSql)
			b.WriteString("\n")
		}
		b.WriteString("Problems:\n")
		for _, e := range opts.RepairErrors {
			b.WriteString("- ")
			b.WriteString(e)
			b.WriteString("\n")
		}
		b.WriteString("Produce a corrected statement that fixes every problem above.\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(outputShape)
	if opts.ReturnExplanation {
		b.WriteString("\nInclude a brief explanation of what the query does.")
	} else {
		b.WriteString("\nThe explanation field may be empty.")
	}

	return llm.Prompt{
		System: systemPreamble,
		User:   b.String(),
	}
}

func writeTableSummary(b *strings.Builder, table schema.TableDoc) {
	b.WriteString("- ")
	b.WriteString(table.QualifiedName())
	if table.Description != "" {
		b.WriteString(": ")
		b.WriteString(table.Description)
	}
	b.WriteString("\n")

	for _, col := range schema.KeyColumns(table, maxSummaryColumns) {
		b.WriteString("    ")
		b.WriteString(col.Name)
		if col.DataType != "" {
			b.WriteString(" ")
			b.WriteString(col.DataType)
		}
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.Description != "" {
			b.WriteString(" -- ")
			b.WriteString(col.Description)
		}
		b.WriteString("\n")
	}
	if len(table.PrimaryKey) > 0 {
		fmt.Fprintf(b, "    primary key (%s)\n", strings.Join(table.PrimaryKey, ", "))
	}
}

func writeRelationships(b *strings.Builder, tables []schema.TableDoc) {
	var lines []string
	for _, table := range tables {
		for _, fk := range table.ForeignKeys {
			lines = append(lines, fmt.Sprintf("%s.%s -> %s.%s", table.Name, fk.Column, fk.RefTable, fk.RefColumn))
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("\nRelationships:\n")
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}
