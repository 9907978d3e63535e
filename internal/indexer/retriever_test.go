package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"askdb/internal/schema"
	"askdb/internal/vectorstore"
)

// fakeTableStore is an in-memory TableVectorStore keyed by qualified table
// name. It records save batches so tests can assert what got refreshed.
type fakeTableStore struct {
	mu         sync.Mutex
	upToDate   map[string]bool
	hits       []vectorstore.ScoredTable
	saved      [][]schema.TableDoc
	deleted    []string
	saveErr    error
	searchErr  error
	blockSaves chan struct{} // when set, SaveTableVectorsBatch waits on it
}

func newFakeTableStore() *fakeTableStore {
	return &fakeTableStore{upToDate: make(map[string]bool)}
}

func (f *fakeTableStore) SaveTableVectorsBatch(ctx context.Context, connectionID string, tables []schema.TableDoc) error {
	if f.blockSaves != nil {
		<-f.blockSaves
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, tables)
	for _, table := range tables {
		f.upToDate[table.QualifiedName()] = true
	}
	return nil
}

func (f *fakeTableStore) SearchSimilarTables(ctx context.Context, connectionID, query string, topK int) ([]vectorstore.ScoredTable, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

func (f *fakeTableStore) DeleteConnectionVectors(ctx context.Context, connectionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, connectionID)
	f.upToDate = make(map[string]bool)
	return nil
}

func (f *fakeTableStore) IsTableVectorUpToDate(ctx context.Context, connectionID, schemaName, tableName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tableName
	if schemaName != "" {
		key = schemaName + "." + tableName
	}
	return f.upToDate[key], nil
}

func (f *fakeTableStore) CountConnectionVectors(ctx context.Context, connectionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upToDate), nil
}

func testSchema() *schema.DatabaseSchema {
	return &schema.DatabaseSchema{
		Name:    "shop",
		Dialect: "sqlite",
		Tables: []schema.TableDoc{
			{Name: "orders"},
			{Name: "customers"},
			{Name: "products"},
		},
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultTopK},
		{-3, DefaultTopK},
		{7, 7},
		{MaxTopK, MaxTopK},
		{MaxTopK + 1, MaxTopK},
	}
	for _, tt := range tests {
		if got := ClampTopK(tt.in); got != tt.want {
			t.Errorf("ClampTopK(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRetriever_RefreshesOnlyStaleTables(t *testing.T) {
	store := newFakeTableStore()
	store.upToDate["orders"] = true
	store.upToDate["products"] = true
	store.hits = []vectorstore.ScoredTable{
		{Table: schema.TableDoc{Name: "orders"}, Score: 0.9},
		{Table: schema.TableDoc{Name: "customers"}, Score: 0.7},
	}

	retriever := NewRetriever(store)
	sctx, err := retriever.Retrieve(context.Background(), "conn-1", "recent orders", testSchema(), 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("save batches = %d, want 1", len(store.saved))
	}
	if len(store.saved[0]) != 1 || store.saved[0][0].Name != "customers" {
		t.Errorf("refreshed tables = %+v, want only customers", store.saved[0])
	}

	// Hit order is preserved as-is.
	names := sctx.TableNames()
	if len(names) != 2 || names[0] != "orders" || names[1] != "customers" {
		t.Errorf("retrieved tables = %v, want [orders customers]", names)
	}
	if sctx.ConnectionID != "conn-1" {
		t.Errorf("context connection = %q, want conn-1", sctx.ConnectionID)
	}
}

func TestRetriever_NoRefreshWhenFresh(t *testing.T) {
	store := newFakeTableStore()
	for _, name := range []string{"orders", "customers", "products"} {
		store.upToDate[name] = true
	}

	retriever := NewRetriever(store)
	if _, err := retriever.Retrieve(context.Background(), "conn-1", "anything", testSchema(), 5); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(store.saved) != 0 {
		t.Errorf("save batches = %d, want 0 when all vectors are fresh", len(store.saved))
	}
}

func TestRetriever_SearchFailure(t *testing.T) {
	store := newFakeTableStore()
	for _, name := range []string{"orders", "customers", "products"} {
		store.upToDate[name] = true
	}
	store.searchErr = errors.New("store down")

	retriever := NewRetriever(store)
	if _, err := retriever.Retrieve(context.Background(), "conn-1", "anything", testSchema(), 5); err == nil {
		t.Fatal("Retrieve() expected error when search fails")
	}
}

func TestInitializeIndex(t *testing.T) {
	store := newFakeTableStore()
	store.upToDate["stale_leftover"] = true

	retriever := NewRetriever(store)
	count, err := retriever.InitializeIndex(context.Background(), "conn-1", testSchema())
	if err != nil {
		t.Fatalf("InitializeIndex() error = %v", err)
	}
	if count != 3 {
		t.Errorf("InitializeIndex() = %d, want 3", count)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "conn-1" {
		t.Errorf("deleted connections = %v, want [conn-1]", store.deleted)
	}
	if len(store.saved) != 1 || len(store.saved[0]) != 3 {
		t.Errorf("save batches = %+v, want one batch of all 3 tables", store.saved)
	}
}

func TestUpdateIndex_OnlyStale(t *testing.T) {
	store := newFakeTableStore()
	store.upToDate["orders"] = true

	retriever := NewRetriever(store)
	count, err := retriever.UpdateIndex(context.Background(), "conn-1", testSchema())
	if err != nil {
		t.Fatalf("UpdateIndex() error = %v", err)
	}
	if count != 2 {
		t.Errorf("UpdateIndex() = %d, want 2 stale tables", count)
	}

	// A second update finds nothing stale and saves nothing.
	count, err = retriever.UpdateIndex(context.Background(), "conn-1", testSchema())
	if err != nil {
		t.Fatalf("UpdateIndex() second run error = %v", err)
	}
	if count != 0 {
		t.Errorf("UpdateIndex() second run = %d, want 0", count)
	}
	if len(store.saved) != 1 {
		t.Errorf("save batches = %d, want 1", len(store.saved))
	}
}

func TestInitializeIndex_ConcurrentBuildRejected(t *testing.T) {
	store := newFakeTableStore()
	store.blockSaves = make(chan struct{})
	// Pre-mark everything fresh so competing updates in the polling loop below
	// return without saving; only the full rebuild touches the blocked save.
	for _, name := range []string{"orders", "customers", "products"} {
		store.upToDate[name] = true
	}

	retriever := NewRetriever(store)
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		close(started)
		_, err := retriever.InitializeIndex(context.Background(), "conn-1", testSchema())
		done <- err
	}()

	<-started
	// Wait until the first build holds the lock inside the blocked save.
	for {
		if _, err := retriever.UpdateIndex(context.Background(), "conn-1", testSchema()); err != nil {
			if !errors.Is(err, ErrBuildInProgress) {
				t.Fatalf("UpdateIndex() error = %v, want ErrBuildInProgress", err)
			}
			break
		}
		// The goroutine has not acquired the lock yet; its save will block, so
		// an UpdateIndex that succeeded must have run before it. Retry.
	}

	close(store.blockSaves)
	if err := <-done; err != nil {
		t.Fatalf("InitializeIndex() error = %v", err)
	}

	// The lock is released afterwards.
	if _, err := retriever.UpdateIndex(context.Background(), "conn-1", testSchema()); err != nil {
		t.Fatalf("UpdateIndex() after build error = %v", err)
	}
}

func TestHasIndex(t *testing.T) {
	store := newFakeTableStore()
	retriever := NewRetriever(store)

	has, err := retriever.HasIndex(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("HasIndex() error = %v", err)
	}
	if has {
		t.Error("HasIndex() = true for empty store")
	}

	store.upToDate["orders"] = true
	has, err = retriever.HasIndex(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("HasIndex() error = %v", err)
	}
	if !has {
		t.Error("HasIndex() = false after indexing")
	}
}
