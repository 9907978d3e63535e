package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080", "test-key", "test-model")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:8080", client.BaseURL)
	}
	if client.Temperature != 0.1 {
		t.Errorf("NewClient() Temperature = %v, want 0.1", client.Temperature)
	}
}

func TestClient_GenerateSQL(t *testing.T) {
	tests := []struct {
		name       string
		serverResp func(w http.ResponseWriter, r *http.Request)
		wantErr    bool
		wantSql    string
	}{
		{
			name: "json reply",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("Authorization = %q, want Bearer test-key", got)
				}

				resp := ChatResponse{
					Choices: []ChatChoice{
						{Message: ChatChoiceMessage{
							Role:    "assistant",
							Content: `{"sql": "SELECT id FROM users", "tables": ["users"], "explanation": "lists ids"}`,
						}},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantSql: "SELECT id FROM users",
		},
		{
			name: "no choices",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr: true,
		},
		{
			name: "server error",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			got, err := client.GenerateSQL(context.Background(), Prompt{System: "sys", User: "user"})

			if tt.wantErr {
				if err == nil {
					t.Fatal("GenerateSQL() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateSQL() error = %v", err)
			}
			if got.Sql != tt.wantSql {
				t.Errorf("GenerateSQL() sql = %q, want %q", got.Sql, tt.wantSql)
			}
		})
	}
}

func TestParseGeneration(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantErr    bool
		wantSql    string
		wantTables []string
	}{
		{
			name:       "plain json",
			content:    `{"sql": "SELECT 1", "tables": ["t"]}`,
			wantSql:    "SELECT 1",
			wantTables: []string{"t"},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"sql\": \"SELECT 1\"}\n```",
			wantSql: "SELECT 1",
		},
		{
			name:    "fenced sql",
			content: "```sql\nSELECT name FROM users\n```",
			wantSql: "SELECT name FROM users",
		},
		{
			name:    "json wrapped in prose",
			content: `Here is the query: {"sql": "SELECT 2"} hope that helps`,
			wantSql: "SELECT 2",
		},
		{
			name:    "bare select fallback",
			content: "The answer is:\nSELECT count(*) FROM orders WHERE total > 10",
			wantSql: "SELECT count(*) FROM orders WHERE total > 10",
		},
		{
			name:    "no sql at all",
			content: "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "json with empty sql falls through",
			content: `{"sql": "  "}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGeneration(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseGeneration() expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseGeneration() error = %v", err)
			}
			if got.Sql != tt.wantSql {
				t.Errorf("ParseGeneration() sql = %q, want %q", got.Sql, tt.wantSql)
			}
			if len(tt.wantTables) > 0 {
				if len(got.Tables) != len(tt.wantTables) || got.Tables[0] != tt.wantTables[0] {
					t.Errorf("ParseGeneration() tables = %v, want %v", got.Tables, tt.wantTables)
				}
			}
		})
	}
}
