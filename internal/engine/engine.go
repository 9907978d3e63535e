// Package engine composes retrieval, prompting, generation, validation,
// repair, caching, and preview into the end-to-end ask pipeline.
package engine

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks askdb/internal/engine SqlGenerator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"askdb/internal/cache"
	"askdb/internal/contextutil"
	"askdb/internal/dialect"
	"askdb/internal/indexer"
	"askdb/internal/llm"
	"askdb/internal/prompt"
	"askdb/internal/schema"
	"askdb/internal/sqlcheck"
)

// SqlGenerator produces a candidate SQL statement from an assembled prompt.
// Implemented by llm.Client; defined here from the consumer's perspective.
type SqlGenerator interface {
	GenerateSQL(ctx context.Context, p llm.Prompt) (llm.GeneratedSql, error)
}

// Explainer previews a statement against a real engine, read-only.
type Explainer interface {
	Explain(ctx context.Context, sqlText, dialectName string) (string, error)
}

// Config is the engine's process-wide wiring: set once at startup and
// replaced only wholesale.
type Config struct {
	Provider     schema.Provider
	Retriever    *indexer.Retriever
	Generator    SqlGenerator
	Explainer    Explainer // optional; Execute degrades to a warning without it
	ConnectionID string
	CacheTTL     time.Duration
}

// DefaultCacheTTL bounds how long a generation result is reusable.
const DefaultCacheTTL = 5 * time.Minute

// Engine is the orchestrator. Safe for concurrent use; each Ask is an
// independent, strictly-ordered pipeline over a config snapshot.
type Engine struct {
	mu    sync.RWMutex
	cfg   Config
	cache *cache.Cache[*SqlResult]
}

// New creates an engine with the given wiring.
func New(cfg Config) *Engine {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	return &Engine{
		cfg:   cfg,
		cache: cache.New[*SqlResult](),
	}
}

// Reconfigure atomically replaces the whole wiring. Requests already in
// flight finish against the snapshot they started with.
func (e *Engine) Reconfigure(cfg Config) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) snapshot() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Ask runs the full pipeline: retrieve context, consult the cache, generate,
// post-process, validate with at most one repair round, optionally preview,
// then cache and return. Validation failures come back inside the result;
// only infrastructure faults are returned as errors.
func (e *Engine) Ask(ctx context.Context, question string, opts AskOptions) (*SqlResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	cfg := e.snapshot()

	question = normalizeQuestion(question)
	if question == "" {
		return nil, &ValidationError{Field: "question", Message: "cannot be empty"}
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: schema provider missing", ErrNotConfigured)
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever missing", ErrNotConfigured)
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("%w: sql generator missing", ErrNotConfigured)
	}

	sch, err := cfg.Provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	dialectName := opts.Dialect
	if dialectName == "" {
		dialectName = sch.Dialect
	}
	dialectName = dialect.Normalize(dialectName)

	sctx, err := cfg.Retriever.Retrieve(ctx, cfg.ConnectionID, question, sch, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve schema context: %w", err)
	}

	key := cache.Key(dialectName, question, sctx.TableNames())
	if cached, ok := e.cache.Get(key); ok {
		logger.InfoContext(ctx, "semantic cache hit", "dialect", dialectName)
		return cached, nil
	}

	generated, report, err := e.generateAndValidate(ctx, cfg, question, dialectName, sctx, opts)
	if err != nil {
		return nil, err
	}

	result := &SqlResult{
		Sql:           generated.Sql,
		Parameters:    generated.Parameters,
		Dialect:       dialectName,
		TouchedTables: report.TouchedTables,
		Confidence:    report.Confidence,
		Warnings:      report.Warnings,
		Errors:        report.Errors,
	}
	if opts.ReturnExplanation {
		result.Explanation = generated.Explanation
	}

	if opts.Execute && report.IsValid {
		e.attachPreview(ctx, cfg, result)
	}

	// Only fully successful results are cached; a transient failure must not
	// poison subsequent identical questions.
	if report.IsValid {
		e.cache.Set(key, result, cfg.CacheTTL)
	}

	logger.InfoContext(ctx, "ask completed",
		"dialect", dialectName,
		"valid", report.IsValid,
		"tables", len(result.TouchedTables),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// generateAndValidate runs generation, post-processing, and validation, with
// at most one corrective regeneration round when validation fails. This
// bounds every question to two model calls.
func (e *Engine) generateAndValidate(
	ctx context.Context,
	cfg Config,
	question, dialectName string,
	sctx *schema.Context,
	opts AskOptions,
) (llm.GeneratedSql, sqlcheck.Report, error) {
	logger := contextutil.LoggerFromContext(ctx)
	checkOpts := sqlcheck.Options{AllowWrite: opts.AllowWrite}

	p := prompt.Assemble(question, dialectName, sctx, prompt.Options{
		ReturnExplanation: opts.ReturnExplanation,
	})
	generated, err := cfg.Generator.GenerateSQL(ctx, p)
	if err != nil {
		return llm.GeneratedSql{}, sqlcheck.Report{}, fmt.Errorf("generation failed: %w", err)
	}

	generated = sqlcheck.PostProcess(generated, dialectName)
	report := sqlcheck.Validate(generated.Sql, sctx, checkOpts)
	if report.IsValid {
		return generated, report, nil
	}

	logger.InfoContext(ctx, "validation failed, attempting repair", "errors", report.Errors)

	repairPrompt := prompt.Assemble(question, dialectName, sctx, prompt.Options{
		ReturnExplanation: opts.ReturnExplanation,
		RepairErrors:      report.Errors,
		LastSql:           generated.Sql,
	})
	repaired, err := cfg.Generator.GenerateSQL(ctx, repairPrompt)
	if err != nil {
		return llm.GeneratedSql{}, sqlcheck.Report{}, fmt.Errorf("repair generation failed: %w", err)
	}

	repaired = sqlcheck.PostProcess(repaired, dialectName)
	repairedReport := sqlcheck.Validate(repaired.Sql, sctx, checkOpts)
	repairedReport.Warnings = mergeUnique(report.Warnings, repairedReport.Warnings)
	return repaired, repairedReport, nil
}

// attachPreview runs the execution preview; a failure degrades to a warning
// and never fails the request.
func (e *Engine) attachPreview(ctx context.Context, cfg Config, result *SqlResult) {
	if cfg.Explainer == nil {
		result.Warnings = append(result.Warnings, "execution preview unavailable: no sandbox configured")
		return
	}
	preview, err := cfg.Explainer.Explain(ctx, result.Sql, result.Dialect)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("execution preview failed: %v", err))
		return
	}
	result.ExecutionPreview = &preview
}

// InitializeIndex fully rebuilds the vector index for the configured
// connection. Returns the number of tables indexed.
func (e *Engine) InitializeIndex(ctx context.Context) (int, error) {
	cfg := e.snapshot()
	sch, err := e.loadForIndexing(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return cfg.Retriever.InitializeIndex(ctx, cfg.ConnectionID, sch)
}

// UpdateIndex incrementally refreshes the vector index. Returns the number
// of tables that were stale and got re-embedded.
func (e *Engine) UpdateIndex(ctx context.Context) (int, error) {
	cfg := e.snapshot()
	sch, err := e.loadForIndexing(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return cfg.Retriever.UpdateIndex(ctx, cfg.ConnectionID, sch)
}

// HasIndex reports whether the configured connection has any indexed tables.
func (e *Engine) HasIndex(ctx context.Context) (bool, error) {
	cfg := e.snapshot()
	if cfg.Retriever == nil {
		return false, fmt.Errorf("%w: retriever missing", ErrNotConfigured)
	}
	return cfg.Retriever.HasIndex(ctx, cfg.ConnectionID)
}

func (e *Engine) loadForIndexing(ctx context.Context, cfg Config) (*schema.DatabaseSchema, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("%w: schema provider missing", ErrNotConfigured)
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever missing", ErrNotConfigured)
	}
	sch, err := cfg.Provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return sch, nil
}

// normalizeQuestion collapses internal whitespace and trims the ends, so
// cache keys are stable across formatting-only variations.
func normalizeQuestion(question string) string {
	return strings.Join(strings.Fields(question), " ")
}

func mergeUnique(first, second []string) []string {
	seen := make(map[string]bool, len(first)+len(second))
	merged := make([]string, 0, len(first)+len(second))
	for _, s := range append(append([]string{}, first...), second...) {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	return merged
}
