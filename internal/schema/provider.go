package schema

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider.go -package=mocks askdb/internal/schema Provider

import "context"

// Provider loads a schema snapshot from some catalog source: a live database,
// a static file, or an external registry.
type Provider interface {
	// Load returns a fresh, immutable schema snapshot.
	Load(ctx context.Context) (*DatabaseSchema, error)
}

// StaticProvider serves a fixed snapshot. Useful for tests and for callers
// that manage schema documents outside a live database.
type StaticProvider struct {
	Schema *DatabaseSchema
}

// Load returns the configured snapshot.
func (p *StaticProvider) Load(ctx context.Context) (*DatabaseSchema, error) {
	return p.Schema, nil
}
