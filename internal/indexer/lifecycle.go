package indexer

import (
	"context"
	"errors"
	"fmt"

	"askdb/internal/contextutil"
	"askdb/internal/schema"
)

// ErrBuildInProgress is returned when an index build or update is requested
// for a connection that already has one in flight. It is an outcome, not a
// failure: the caller gets immediate feedback instead of queueing.
var ErrBuildInProgress = errors.New("index build already in progress")

// InitializeIndex performs a full rebuild for the connection: every existing
// record is deleted, then the whole snapshot is embedded and saved. Returns
// the number of tables indexed. Idempotent; concurrent calls for the same
// connection are rejected with ErrBuildInProgress.
func (r *Retriever) InitializeIndex(ctx context.Context, connectionID string, sch *schema.DatabaseSchema) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !r.locks.TryAcquire(connectionID) {
		return 0, ErrBuildInProgress
	}
	defer r.locks.Release(connectionID)

	if err := r.store.DeleteConnectionVectors(ctx, connectionID); err != nil {
		return 0, fmt.Errorf("failed to clear existing vectors: %w", err)
	}
	if err := r.store.SaveTableVectorsBatch(ctx, connectionID, sch.Tables); err != nil {
		return 0, fmt.Errorf("failed to build index: %w", err)
	}

	logger.InfoContext(ctx, "index initialized", "connection_id", connectionID, "tables", len(sch.Tables))
	return len(sch.Tables), nil
}

// UpdateIndex incrementally refreshes the connection's index: only tables
// whose vectors are stale get re-embedded. Returns the number of tables
// updated. Shares the per-connection lock with InitializeIndex.
func (r *Retriever) UpdateIndex(ctx context.Context, connectionID string, sch *schema.DatabaseSchema) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !r.locks.TryAcquire(connectionID) {
		return 0, ErrBuildInProgress
	}
	defer r.locks.Release(connectionID)

	stale, err := r.staleTables(ctx, connectionID, sch)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		logger.InfoContext(ctx, "index already up to date", "connection_id", connectionID)
		return 0, nil
	}

	if err := r.store.SaveTableVectorsBatch(ctx, connectionID, stale); err != nil {
		return 0, fmt.Errorf("failed to update index: %w", err)
	}

	logger.InfoContext(ctx, "index updated", "connection_id", connectionID, "updated", len(stale))
	return len(stale), nil
}

// HasIndex reports whether any vectors exist for the connection under the
// active embedding model.
func (r *Retriever) HasIndex(ctx context.Context, connectionID string) (bool, error) {
	count, err := r.store.CountConnectionVectors(ctx, connectionID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
