package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	if _, err := NewQdrantStore("://invalid"); err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestBuildFilter(t *testing.T) {
	if got := buildFilter(nil); got != nil {
		t.Errorf("buildFilter(nil) = %v, want nil", got)
	}
	if got := buildFilter(map[string]string{}); got != nil {
		t.Errorf("buildFilter(empty) = %v, want nil", got)
	}

	filter := buildFilter(map[string]string{
		"connection_id":   "conn-1",
		"embedding_model": "model-a",
	})
	if filter == nil {
		t.Fatal("buildFilter() = nil for non-empty filters")
	}
	if len(filter.Must) != 2 {
		t.Errorf("buildFilter() must conditions = %d, want 2", len(filter.Must))
	}
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name  string
		value *qdrant.Value
		want  any
	}{
		{"string", qdrant.NewValueString("hello"), "hello"},
		{"int", qdrant.NewValueInt(42), int64(42)},
		{"double", qdrant.NewValueDouble(2.5), 2.5},
		{"bool", qdrant.NewValueBool(true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertValue(tt.value); got != tt.want {
				t.Errorf("convertValue() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"table":      qdrant.NewValueString("orders"),
		"dimensions": qdrant.NewValueInt(768),
	}

	got := convertPayloadToMap(payload)
	if got["table"] != "orders" {
		t.Errorf("payload table = %v, want orders", got["table"])
	}
	if got["dimensions"] != int64(768) {
		t.Errorf("payload dimensions = %v, want int64 768", got["dimensions"])
	}
}
