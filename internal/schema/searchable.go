package schema

import "strings"

// commonKeyColumns are column names that usually carry the business meaning of
// a table and therefore earn a slot in compact prompt summaries.
var commonKeyColumns = map[string]bool{
	"id":         true,
	"name":       true,
	"title":      true,
	"status":     true,
	"type":       true,
	"email":      true,
	"amount":     true,
	"created_at": true,
	"updated_at": true,
}

// BuildSearchableText concatenates everything worth embedding about a table:
// name, aliases, description, and each column's name and description. The
// exact text is persisted alongside the vector so staleness and re-embedding
// decisions can be debugged later.
func BuildSearchableText(t TableDoc) string {
	var b strings.Builder

	b.WriteString("Table: ")
	b.WriteString(t.QualifiedName())
	b.WriteString("\n")

	if len(t.Aliases) > 0 {
		b.WriteString("Aliases: ")
		b.WriteString(strings.Join(t.Aliases, ", "))
		b.WriteString("\n")
	}
	if t.Description != "" {
		b.WriteString("Description: ")
		b.WriteString(t.Description)
		b.WriteString("\n")
	}

	for _, c := range t.Columns {
		b.WriteString("Column: ")
		b.WriteString(c.Name)
		if c.DataType != "" {
			b.WriteString(" (")
			b.WriteString(c.DataType)
			b.WriteString(")")
		}
		if len(c.Aliases) > 0 {
			b.WriteString(" aka ")
			b.WriteString(strings.Join(c.Aliases, ", "))
		}
		if c.Description != "" {
			b.WriteString(": ")
			b.WriteString(c.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// KeyColumns selects up to max columns for a compact table summary. Primary
// key and foreign key columns always qualify; commonly meaningful names fill
// the remaining slots, then the leading columns in declaration order.
func KeyColumns(t TableDoc, max int) []ColumnDoc {
	if max <= 0 || len(t.Columns) <= max {
		return t.Columns
	}

	inKeys := make(map[string]bool, len(t.PrimaryKey)+len(t.ForeignKeys))
	for _, pk := range t.PrimaryKey {
		inKeys[strings.ToLower(pk)] = true
	}
	for _, fk := range t.ForeignKeys {
		inKeys[strings.ToLower(fk.Column)] = true
	}

	selected := make([]ColumnDoc, 0, max)
	seen := make(map[string]bool, max)

	pick := func(keep func(ColumnDoc) bool) {
		for _, c := range t.Columns {
			if len(selected) >= max {
				return
			}
			lower := strings.ToLower(c.Name)
			if seen[lower] || !keep(c) {
				continue
			}
			seen[lower] = true
			selected = append(selected, c)
		}
	}

	pick(func(c ColumnDoc) bool { return inKeys[strings.ToLower(c.Name)] })
	pick(func(c ColumnDoc) bool { return commonKeyColumns[strings.ToLower(c.Name)] })
	pick(func(ColumnDoc) bool { return true })

	return selected
}
