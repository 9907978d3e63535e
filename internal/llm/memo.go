package llm

import (
	"context"
	"sync"
)

// MemoEmbedder wraps an Embedder with an exact-text memo so repeated inputs
// skip the network round trip. Writes are last-writer-wins: the mapped value
// is a pure function of the text, so concurrent writers always agree.
type MemoEmbedder struct {
	inner Embedder
	mu    sync.RWMutex
	cache map[string][]float32
}

// NewMemoEmbedder wraps inner with an in-process exact-text memo.
func NewMemoEmbedder(inner Embedder) *MemoEmbedder {
	return &MemoEmbedder{
		inner: inner,
		cache: make(map[string][]float32),
	}
}

// Model returns the wrapped embedder's model name.
func (m *MemoEmbedder) Model() string {
	return m.inner.Model()
}

// EmbedTexts returns memoized vectors where available and embeds only the
// misses, preserving input order in the result.
func (m *MemoEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int

	m.mu.RLock()
	for i, text := range texts {
		if vec, ok := m.cache[text]; ok {
			result[i] = vec
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	m.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}

	vectors, err := m.inner.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for i, vec := range vectors {
		m.cache[missing[i]] = vec
		result[missingIdx[i]] = vec
	}
	m.mu.Unlock()

	return result, nil
}
