package vectorstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"askdb/internal/schema"
)

// Payload field names for table vector records.
const (
	fieldConnectionID   = "connection_id"
	fieldSchema         = "schema"
	fieldTable          = "table"
	fieldEmbeddingModel = "embedding_model"
	fieldDimensions     = "dimensions"
	fieldSearchableText = "searchable_text"
	fieldMetadata       = "metadata"
	fieldCreatedAt      = "created_at"
)

// TableVectorRecord is the persisted unit of the table vector store. Its
// composite key partitions records by connection and embedding model, so
// vectors from different models coexist without ever being compared.
type TableVectorRecord struct {
	ConnectionID   string
	Schema         string
	Table          string
	EmbeddingModel string
	Dimensions     int
	SearchableText string
	Metadata       string // JSON snapshot of the TableDoc, vectors excluded
	CreatedAt      time.Time
	Vector         []float32
}

// RecordKey builds the composite identity {connectionId}:{schema}:{table}:{embeddingModel}.
func RecordKey(connectionID, schemaName, table, model string) string {
	return strings.Join([]string{connectionID, schemaName, table, model}, ":")
}

// PointID derives a deterministic UUID from the composite key. Re-saving the
// same table under the same model therefore overwrites in place.
func PointID(connectionID, schemaName, table, model string) string {
	key := RecordKey(connectionID, schemaName, table, model)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// NewTableVectorRecord snapshots a table into a persistable record. The
// table's vector must already be attached.
func NewTableVectorRecord(connectionID string, table schema.TableDoc, model string) (*TableVectorRecord, error) {
	meta, err := encodeTableMeta(table)
	if err != nil {
		return nil, err
	}
	return &TableVectorRecord{
		ConnectionID:   connectionID,
		Schema:         table.Schema,
		Table:          table.Name,
		EmbeddingModel: model,
		Dimensions:     len(table.Vector),
		SearchableText: schema.BuildSearchableText(table),
		Metadata:       meta,
		CreatedAt:      time.Now().UTC(),
		Vector:         table.Vector,
	}, nil
}

// Payload renders the record as a vector point payload.
func (r *TableVectorRecord) Payload() map[string]any {
	return map[string]any{
		fieldConnectionID:   r.ConnectionID,
		fieldSchema:         r.Schema,
		fieldTable:          r.Table,
		fieldEmbeddingModel: r.EmbeddingModel,
		fieldDimensions:     r.Dimensions,
		fieldSearchableText: r.SearchableText,
		fieldMetadata:       r.Metadata,
		fieldCreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

// recordFromMeta rebuilds the record fields this package reads back from a
// stored payload. Absent fields stay zero.
func recordFromMeta(meta map[string]any, vec []float32) *TableVectorRecord {
	r := &TableVectorRecord{Vector: vec}
	r.ConnectionID, _ = meta[fieldConnectionID].(string)
	r.Schema, _ = meta[fieldSchema].(string)
	r.Table, _ = meta[fieldTable].(string)
	r.EmbeddingModel, _ = meta[fieldEmbeddingModel].(string)
	r.SearchableText, _ = meta[fieldSearchableText].(string)
	r.Metadata, _ = meta[fieldMetadata].(string)

	switch dims := meta[fieldDimensions].(type) {
	case int:
		r.Dimensions = dims
	case int64:
		r.Dimensions = int(dims)
	case float64:
		r.Dimensions = int(dims)
	}

	if createdAt, ok := meta[fieldCreatedAt].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = parsed
		}
	}
	return r
}

// TableDoc reconstructs the table document from the stored metadata snapshot
// plus the stored vector.
func (r *TableVectorRecord) TableDoc() (schema.TableDoc, error) {
	var table schema.TableDoc
	if err := json.Unmarshal([]byte(r.Metadata), &table); err != nil {
		return table, fmt.Errorf("failed to decode table metadata for %s: %w", r.Table, err)
	}
	table.Vector = r.Vector
	return table, nil
}

// encodeTableMeta serializes everything except the vectors, keeping payload
// size bounded while still allowing full TableDoc reconstruction on search.
func encodeTableMeta(table schema.TableDoc) (string, error) {
	table.Vector = nil
	// Copy the column slice before clearing vectors; the caller's docs must
	// stay untouched.
	cols := make([]schema.ColumnDoc, len(table.Columns))
	copy(cols, table.Columns)
	for i := range cols {
		cols[i].Vector = nil
	}
	table.Columns = cols
	data, err := json.Marshal(table)
	if err != nil {
		return "", fmt.Errorf("failed to encode table metadata for %s: %w", table.Name, err)
	}
	return string(data), nil
}
