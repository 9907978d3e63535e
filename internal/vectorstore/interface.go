package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks askdb/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Vec     []float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations. Filters
// are exact keyword matches on payload fields; every key this system filters
// on holds a string value.
type VectorStore interface {
	// EnsureCollection creates the collection with the given vector width if
	// it does not exist, and validates the width if it does.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search with optional filters, ordered by
	// descending similarity.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]string) ([]SearchResult, error)

	// Fetch retrieves points by ID, with payloads. Missing IDs are simply
	// absent from the result.
	Fetch(ctx context.Context, collection string, ids []string) ([]Point, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching the filters.
	DeleteByFilter(ctx context.Context, collection string, filters map[string]string) error

	// Count returns the number of points matching the filters.
	Count(ctx context.Context, collection string, filters map[string]string) (int, error)
}
