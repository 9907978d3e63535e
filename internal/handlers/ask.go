package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"askdb/internal/contextutil"
	"askdb/internal/engine"
)

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Question          string `json:"question"`
	Dialect           string `json:"dialect,omitempty"`
	Execute           bool   `json:"execute,omitempty"`
	TopK              int    `json:"top_k,omitempty"`
	ReturnExplanation bool   `json:"return_explanation,omitempty"`
	AllowWrite        bool   `json:"allow_write,omitempty"`
}

// AskHandler serves SQL generation requests.
type AskHandler struct {
	engine *engine.Engine
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(eng *engine.Engine) *AskHandler {
	return &AskHandler{engine: eng}
}

// ServeHTTP handles POST /api/ask.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.engine.Ask(ctx, req.Question, engine.AskOptions{
		Dialect:           req.Dialect,
		Execute:           req.Execute,
		TopK:              req.TopK,
		ReturnExplanation: req.ReturnExplanation,
		AllowWrite:        req.AllowWrite,
	})
	if err != nil {
		var validationErr *engine.ValidationError
		if errors.As(err, &validationErr) {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		logger.ErrorContext(ctx, "ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate SQL")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
