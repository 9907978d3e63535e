package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"askdb/internal/contextutil"
	"askdb/internal/llm"
	"askdb/internal/schema"
)

// probeText is embedded once to detect the embedder's output width when no
// fixed vector size is configured.
const probeText = "dimension probe"

// ScoredTable is one similarity hit: a reconstructed table document and its
// similarity score.
type ScoredTable struct {
	Table schema.TableDoc
	Score float32
}

// TableStoreConfig configures a TableStore.
type TableStoreConfig struct {
	// Collection is the backing collection name.
	Collection string
	// VectorSize fixes the vector width; 0 auto-detects by probing the embedder.
	VectorSize int
	// Expiration bounds record age for staleness checks; 0 means age never
	// expires a record.
	Expiration time.Duration
	// AutoCreate creates the backing collection on first use. When false, a
	// missing collection is a fatal configuration error.
	AutoCreate bool
}

// TableStore persists one vector per (connection, table, embedding model)
// tuple on top of a generic VectorStore. All searches and staleness checks
// are partitioned by the active embedder's model name.
type TableStore struct {
	store    VectorStore
	embedder llm.Embedder
	cfg      TableStoreConfig

	mu      sync.Mutex
	ensured bool
}

// NewTableStore creates a table vector store.
func NewTableStore(store VectorStore, embedder llm.Embedder, cfg TableStoreConfig) *TableStore {
	return &TableStore{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
	}
}

// ensureCollection creates or validates the backing collection exactly once.
// The width comes from configuration, or from embedding a probe string when
// none is configured.
func (s *TableStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return nil
	}

	size := s.cfg.VectorSize
	if size == 0 {
		vectors, err := s.embedder.EmbedTexts(ctx, []string{probeText})
		if err != nil {
			return fmt.Errorf("failed to probe embedding dimension: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return fmt.Errorf("embedding probe returned an empty vector")
		}
		size = len(vectors[0])
		contextutil.LoggerFromContext(ctx).InfoContext(ctx, "detected embedding dimension",
			"model", s.embedder.Model(), "dimensions", size)
	}

	if !s.cfg.AutoCreate {
		// Without auto-create, a missing collection must surface as a fatal
		// configuration error rather than being created silently.
		if _, err := s.store.Count(ctx, s.cfg.Collection, nil); err != nil {
			return fmt.Errorf("collection %q unavailable and auto-create is disabled: %w", s.cfg.Collection, err)
		}
	}
	if err := s.store.EnsureCollection(ctx, s.cfg.Collection, size); err != nil {
		return fmt.Errorf("failed to ensure collection %q: %w", s.cfg.Collection, err)
	}

	s.cfg.VectorSize = size
	s.ensured = true
	return nil
}

// SaveTableVector embeds (if needed) and upserts a single table.
func (s *TableStore) SaveTableVector(ctx context.Context, connectionID string, table schema.TableDoc) error {
	return s.SaveTableVectorsBatch(ctx, connectionID, []schema.TableDoc{table})
}

// SaveTableVectorsBatch embeds every table that lacks a vector, then upserts
// the whole batch. Upserts are keyed by the deterministic composite point ID,
// so re-saving a table under the same model overwrites in place.
func (s *TableStore) SaveTableVectorsBatch(ctx context.Context, connectionID string, tables []schema.TableDoc) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(tables) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	var missingTexts []string
	var missingIdx []int
	for i, table := range tables {
		if len(table.Vector) == 0 {
			missingTexts = append(missingTexts, schema.BuildSearchableText(table))
			missingIdx = append(missingIdx, i)
		}
	}

	if len(missingTexts) > 0 {
		vectors, err := s.embedder.EmbedTexts(ctx, missingTexts)
		if err != nil {
			return fmt.Errorf("failed to embed %d tables: %w", len(missingTexts), err)
		}
		for i, vec := range vectors {
			tables[missingIdx[i]].Vector = vec
		}
	}

	model := s.embedder.Model()
	points := make([]Point, 0, len(tables))
	for _, table := range tables {
		record, err := NewTableVectorRecord(connectionID, table, model)
		if err != nil {
			return err
		}
		points = append(points, Point{
			ID:   PointID(connectionID, table.Schema, table.Name, model),
			Vec:  record.Vector,
			Meta: record.Payload(),
		})
	}

	if err := s.store.Upsert(ctx, s.cfg.Collection, points); err != nil {
		return err
	}

	logger.InfoContext(ctx, "saved table vectors",
		"connection_id", connectionID, "count", len(points), "embedded", len(missingTexts), "model", model)
	return nil
}

// SearchSimilarTables embeds the query and returns the topK most similar
// tables for this connection under the active embedding model, ordered by
// descending similarity.
func (s *TableStore) SearchSimilarTables(ctx context.Context, connectionID, query string, topK int) ([]ScoredTable, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	filters := map[string]string{
		fieldConnectionID:   connectionID,
		fieldEmbeddingModel: s.embedder.Model(),
	}
	results, err := s.store.Search(ctx, s.cfg.Collection, vectors[0], topK, filters)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredTable, 0, len(results))
	for _, result := range results {
		record := recordFromMeta(result.Meta, result.Vec)
		table, err := record.TableDoc()
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable record", "point_id", result.PointID, "error", err)
			continue
		}
		scored = append(scored, ScoredTable{Table: table, Score: result.Score})
	}

	logger.DebugContext(ctx, "similar tables search completed",
		"connection_id", connectionID, "top_k", topK, "results", len(scored))
	return scored, nil
}

// DeleteConnectionVectors removes every record for the connection regardless
// of embedding model. Used before a full rebuild and on connection removal.
func (s *TableStore) DeleteConnectionVectors(ctx context.Context, connectionID string) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	return s.store.DeleteByFilter(ctx, s.cfg.Collection, map[string]string{
		fieldConnectionID: connectionID,
	})
}

// IsTableVectorUpToDate reports whether a record exists for the table under
// the active embedding model and, when an expiration is configured, whether
// it is still young enough.
func (s *TableStore) IsTableVectorUpToDate(ctx context.Context, connectionID, schemaName, tableName string) (bool, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return false, err
	}

	model := s.embedder.Model()
	id := PointID(connectionID, schemaName, tableName, model)
	points, err := s.store.Fetch(ctx, s.cfg.Collection, []string{id})
	if err != nil {
		return false, err
	}
	if len(points) == 0 {
		return false, nil
	}

	record := recordFromMeta(points[0].Meta, nil)
	if record.EmbeddingModel != model {
		return false, nil
	}
	if s.cfg.Expiration > 0 {
		if record.CreatedAt.IsZero() || !time.Now().Before(record.CreatedAt.Add(s.cfg.Expiration)) {
			return false, nil
		}
	}
	return true, nil
}

// CountConnectionVectors returns how many records exist for the connection
// under the active embedding model.
func (s *TableStore) CountConnectionVectors(ctx context.Context, connectionID string) (int, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, s.cfg.Collection, map[string]string{
		fieldConnectionID:   connectionID,
		fieldEmbeddingModel: s.embedder.Model(),
	})
}
