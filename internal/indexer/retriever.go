// Package indexer keeps the table vector index consistent with the live
// schema and answers "which tables matter for this question".
package indexer

import (
	"context"
	"fmt"

	"askdb/internal/contextutil"
	"askdb/internal/schema"
	"askdb/internal/vectorstore"
)

// Default and maximum retrieval depth, mirroring the clamp the ask pipeline
// applies to caller-supplied values.
const (
	DefaultTopK = 5
	MaxTopK     = 20
)

// TableVectorStore is the slice of the table store the retriever needs.
type TableVectorStore interface {
	SaveTableVectorsBatch(ctx context.Context, connectionID string, tables []schema.TableDoc) error
	SearchSimilarTables(ctx context.Context, connectionID, query string, topK int) ([]vectorstore.ScoredTable, error)
	DeleteConnectionVectors(ctx context.Context, connectionID string) error
	IsTableVectorUpToDate(ctx context.Context, connectionID, schemaName, tableName string) (bool, error)
	CountConnectionVectors(ctx context.Context, connectionID string) (int, error)
}

// Retriever narrows a schema snapshot to the tables relevant to one question,
// refreshing stale vectors incrementally before each search.
type Retriever struct {
	store TableVectorStore
	locks connLocks
}

// NewRetriever creates a retriever on top of a table vector store.
func NewRetriever(store TableVectorStore) *Retriever {
	return &Retriever{store: store}
}

// ClampTopK applies the default and upper bound to a requested depth.
func ClampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// Retrieve returns the topK most relevant tables for the question. Stale
// vectors in the snapshot are re-embedded first, so the index drifts back
// toward the live schema without a full rebuild on every request. Hit order
// is the store's native descending-similarity order; no secondary sort is
// imposed.
func (r *Retriever) Retrieve(ctx context.Context, connectionID, question string, sch *schema.DatabaseSchema, topK int) (*schema.Context, error) {
	logger := contextutil.LoggerFromContext(ctx)
	topK = ClampTopK(topK)

	stale, err := r.staleTables(ctx, connectionID, sch)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		logger.InfoContext(ctx, "refreshing stale table vectors",
			"connection_id", connectionID, "stale", len(stale), "total", len(sch.Tables))
		if err := r.store.SaveTableVectorsBatch(ctx, connectionID, stale); err != nil {
			return nil, fmt.Errorf("failed to refresh stale vectors: %w", err)
		}
	}

	hits, err := r.store.SearchSimilarTables(ctx, connectionID, question, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar tables: %w", err)
	}

	tables := make([]schema.TableDoc, 0, len(hits))
	for _, hit := range hits {
		tables = append(tables, hit.Table)
	}

	logger.InfoContext(ctx, "schema context retrieved",
		"connection_id", connectionID, "top_k", topK, "tables", len(tables))
	return &schema.Context{ConnectionID: connectionID, Tables: tables}, nil
}

// staleTables returns the subset of the snapshot whose vectors are missing,
// from another embedding model, or older than the configured expiration.
func (r *Retriever) staleTables(ctx context.Context, connectionID string, sch *schema.DatabaseSchema) ([]schema.TableDoc, error) {
	var stale []schema.TableDoc
	for _, table := range sch.Tables {
		upToDate, err := r.store.IsTableVectorUpToDate(ctx, connectionID, table.Schema, table.Name)
		if err != nil {
			return nil, fmt.Errorf("failed staleness check for %s: %w", table.QualifiedName(), err)
		}
		if !upToDate {
			stale = append(stale, table)
		}
	}
	return stale, nil
}
