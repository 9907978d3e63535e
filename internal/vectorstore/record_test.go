package vectorstore

import (
	"testing"
	"time"

	"askdb/internal/schema"
)

func TestRecordKey(t *testing.T) {
	got := RecordKey("conn-1", "public", "orders", "model-a")
	want := "conn-1:public:orders:model-a"
	if got != want {
		t.Errorf("RecordKey() = %q, want %q", got, want)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("conn-1", "public", "orders", "model-a")
	b := PointID("conn-1", "public", "orders", "model-a")
	if a != b {
		t.Errorf("PointID() not deterministic: %q vs %q", a, b)
	}

	other := PointID("conn-1", "public", "orders", "model-b")
	if a == other {
		t.Error("PointID() collides across embedding models")
	}
}

func TestNewTableVectorRecord_RoundTrip(t *testing.T) {
	table := schema.TableDoc{
		Schema:      "public",
		Name:        "orders",
		Description: "Customer orders",
		Columns: []schema.ColumnDoc{
			{Name: "id", DataType: "integer", Vector: []float32{9}},
			{Name: "total", DataType: "numeric"},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []schema.ForeignKey{
			{Column: "customer_id", RefTable: "customers", RefColumn: "id"},
		},
		Vector: []float32{0.1, 0.2, 0.3},
	}

	record, err := NewTableVectorRecord("conn-1", table, "model-a")
	if err != nil {
		t.Fatalf("NewTableVectorRecord() error = %v", err)
	}

	if record.Dimensions != 3 {
		t.Errorf("Dimensions = %d, want 3", record.Dimensions)
	}
	if record.SearchableText == "" {
		t.Error("SearchableText is empty")
	}
	if record.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	// The caller's document must survive metadata encoding untouched.
	if table.Columns[0].Vector == nil {
		t.Error("encoding cleared the caller's column vector")
	}

	rebuilt := recordFromMeta(record.Payload(), record.Vector)
	if rebuilt.ConnectionID != "conn-1" || rebuilt.Schema != "public" || rebuilt.Table != "orders" {
		t.Errorf("recordFromMeta() identity = %s:%s:%s, want conn-1:public:orders",
			rebuilt.ConnectionID, rebuilt.Schema, rebuilt.Table)
	}
	if rebuilt.EmbeddingModel != "model-a" {
		t.Errorf("recordFromMeta() model = %q, want model-a", rebuilt.EmbeddingModel)
	}
	if rebuilt.Dimensions != 3 {
		t.Errorf("recordFromMeta() dimensions = %d, want 3", rebuilt.Dimensions)
	}
	if rebuilt.CreatedAt.IsZero() {
		t.Error("recordFromMeta() lost created_at")
	}

	doc, err := rebuilt.TableDoc()
	if err != nil {
		t.Fatalf("TableDoc() error = %v", err)
	}
	if doc.Name != "orders" || doc.Schema != "public" {
		t.Errorf("TableDoc() identity = %s.%s, want public.orders", doc.Schema, doc.Name)
	}
	if len(doc.Columns) != 2 || doc.Columns[1].Name != "total" {
		t.Errorf("TableDoc() columns = %+v, want id and total", doc.Columns)
	}
	if len(doc.ForeignKeys) != 1 || doc.ForeignKeys[0].RefTable != "customers" {
		t.Errorf("TableDoc() foreign keys = %+v", doc.ForeignKeys)
	}
	if len(doc.Columns[0].Vector) != 0 {
		t.Error("column vectors must not be persisted in metadata")
	}
	if len(doc.Vector) != 3 {
		t.Errorf("TableDoc() vector length = %d, want 3", len(doc.Vector))
	}
}

func TestRecordFromMeta_NumericDimensions(t *testing.T) {
	// Payloads read back from the store carry numbers as int64 or float64
	// depending on the transport.
	for _, dims := range []any{int64(42), float64(42)} {
		record := recordFromMeta(map[string]any{
			fieldDimensions: dims,
		}, nil)
		if record.Dimensions != 42 {
			t.Errorf("recordFromMeta() dimensions = %d for %T, want 42", record.Dimensions, dims)
		}
	}
}

func TestRecordFromMeta_AbsentFields(t *testing.T) {
	record := recordFromMeta(map[string]any{}, nil)
	if record.ConnectionID != "" || record.Dimensions != 0 || !record.CreatedAt.Equal(time.Time{}) {
		t.Errorf("recordFromMeta() on empty payload = %+v, want zero record", record)
	}
}

func TestTableDoc_BadMetadata(t *testing.T) {
	record := &TableVectorRecord{Table: "orders", Metadata: "{not json"}
	if _, err := record.TableDoc(); err == nil {
		t.Fatal("TableDoc() expected error for malformed metadata")
	}
}
