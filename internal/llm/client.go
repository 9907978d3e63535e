package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Client is a client for an OpenAI-compatible chat completions API that turns
// assembled prompts into candidate SQL.
type Client struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	Temperature float64
	client      *http.Client
}

// NewClient creates a new SQL generation client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		ModelName:   model,
		Temperature: 0.1,
		client:      http.DefaultClient,
	}
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// GenerateSQL sends the assembled prompt to the model and parses the reply
// into a GeneratedSql. Transport and empty-reply failures are returned as
// errors; malformed JSON falls back to lexical SQL extraction.
func (c *Client) GenerateSQL(ctx context.Context, prompt Prompt) (GeneratedSql, error) {
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return GeneratedSql{}, err
	}

	generated, err := ParseGeneration(content)
	if err != nil {
		return GeneratedSql{}, fmt.Errorf("failed to parse model output: %w", err)
	}
	return generated, nil
}

func (c *Client) complete(ctx context.Context, prompt Prompt) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	payload := ChatRequest{
		Model: c.ModelName,
		Messages: []ChatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: c.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

var selectFallback = regexp.MustCompile(`(?is)\b(select\b.*)$`)

// ParseGeneration parses raw model output into a GeneratedSql. The content is
// model-controlled and therefore untrusted: markdown fences are stripped, the
// JSON shape is attempted first, and when that fails the trailing SELECT
// clause is extracted lexically.
func ParseGeneration(content string) (GeneratedSql, error) {
	trimmed := stripMarkdownFence(content)

	var generated GeneratedSql
	if err := json.Unmarshal([]byte(trimmed), &generated); err == nil && strings.TrimSpace(generated.Sql) != "" {
		return generated, nil
	}

	// Some models wrap the JSON object in prose. Retry on the outermost
	// braces before falling back to plain SQL extraction.
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		var embedded GeneratedSql
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &embedded); err == nil && strings.TrimSpace(embedded.Sql) != "" {
			return embedded, nil
		}
	}

	if match := selectFallback.FindStringSubmatch(trimmed); match != nil {
		return GeneratedSql{Sql: strings.TrimSpace(match[1])}, nil
	}

	return GeneratedSql{}, fmt.Errorf("no SQL found in model output")
}

func stripMarkdownFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
