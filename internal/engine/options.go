package engine

// AskOptions tunes one Ask request.
type AskOptions struct {
	// Dialect overrides the schema snapshot's dialect.
	Dialect string `json:"dialect,omitempty"`
	// Execute requests a read-only execution preview of a valid statement.
	Execute bool `json:"execute,omitempty"`
	// TopK bounds how many tables retrieval may return; 0 uses the default.
	TopK int `json:"top_k,omitempty"`
	// ReturnExplanation asks for a natural-language explanation.
	ReturnExplanation bool `json:"return_explanation,omitempty"`
	// AllowWrite disables the forbidden-keyword gate.
	AllowWrite bool `json:"allow_write,omitempty"`
}

// SqlResult is the terminal artifact of one Ask: the statement, its context,
// and every warning or error the pipeline produced. Soft failures (invalid or
// unsafe SQL) are embedded here rather than raised as errors.
type SqlResult struct {
	Sql              string         `json:"sql"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	Dialect          string         `json:"dialect"`
	TouchedTables    []string       `json:"touched_tables,omitempty"`
	Explanation      string         `json:"explanation,omitempty"`
	Confidence       string         `json:"confidence"`
	Warnings         []string       `json:"warnings,omitempty"`
	Errors           []string       `json:"errors,omitempty"`
	ExecutionPreview *string        `json:"execution_preview,omitempty"`
}
