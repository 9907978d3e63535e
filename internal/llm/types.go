package llm

// GeneratedSql is the parsed shape of one model generation round. The Tables
// field is the model's own claim about what it touched; safety decisions never
// trust it and rely on the validator's lexical extraction instead.
type GeneratedSql struct {
	Sql         string         `json:"sql"`
	Parameters  map[string]any `json:"params,omitempty"`
	Tables      []string       `json:"tables,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

// Prompt is one assembled generation request: a role preamble and the
// schema-grounded user message.
type Prompt struct {
	System string
	User   string
}
