package schema

// DatabaseSchema is an immutable snapshot of one database: its dialect and the
// ordered set of tables a provider discovered. Providers reload it wholesale;
// nothing mutates it in place.
type DatabaseSchema struct {
	Name    string     `json:"name"`
	Dialect string     `json:"dialect"`
	Tables  []TableDoc `json:"tables"`
}

// TableDoc describes a single table. Identity within one DatabaseSchema is
// (Schema, Name). The Vector field is attached lazily by the indexer and is
// never part of the persisted metadata snapshot.
type TableDoc struct {
	Schema      string       `json:"schema,omitempty"`
	Name        string       `json:"name"`
	Aliases     []string     `json:"aliases,omitempty"`
	Description string       `json:"description,omitempty"`
	Columns     []ColumnDoc  `json:"columns,omitempty"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Vector      []float32    `json:"-"`
}

// ForeignKey links a local column to a referenced table.column.
type ForeignKey struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// ColumnDoc describes a single column.
type ColumnDoc struct {
	Name        string    `json:"name"`
	Aliases     []string  `json:"aliases,omitempty"`
	Description string    `json:"description,omitempty"`
	DataType    string    `json:"data_type,omitempty"`
	Nullable    bool      `json:"nullable,omitempty"`
	Default     string    `json:"default,omitempty"`
	Vector      []float32 `json:"-"`
}

// QualifiedName returns "schema.name", or just the name when the table has no
// schema qualifier.
func (t TableDoc) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Context is the retrieval result for one question: an ordered subset of
// tables judged relevant. Created per request, never persisted.
type Context struct {
	ConnectionID string     `json:"connection_id"`
	Tables       []TableDoc `json:"tables"`
}

// TableNames returns the table names in retrieval order.
func (c *Context) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	return names
}
