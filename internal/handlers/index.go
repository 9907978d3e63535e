package handlers

import (
	"context"
	"errors"
	"net/http"

	"askdb/internal/contextutil"
	"askdb/internal/engine"
	"askdb/internal/indexer"
)

// IndexHandler serves vector index lifecycle requests: full rebuild,
// incremental update, and existence checks.
type IndexHandler struct {
	engine *engine.Engine
}

// NewIndexHandler creates a new index handler.
func NewIndexHandler(eng *engine.Engine) *IndexHandler {
	return &IndexHandler{engine: eng}
}

// Initialize handles POST /api/index: delete-then-rebuild.
func (h *IndexHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	h.runBuild(w, r, h.engine.InitializeIndex)
}

// Update handles PUT /api/index: incremental refresh of stale vectors.
func (h *IndexHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.runBuild(w, r, h.engine.UpdateIndex)
}

// Status handles GET /api/index.
func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	has, err := h.engine.HasIndex(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "index status check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check index status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"indexed": has})
}

// runBuild shares the response mapping between full and incremental builds.
// Contention is an outcome, not a failure: it maps to 409 so the caller knows
// a build is already running.
func (h *IndexHandler) runBuild(w http.ResponseWriter, r *http.Request, build func(context.Context) (int, error)) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	count, err := build(ctx)
	if err != nil {
		if errors.Is(err, indexer.ErrBuildInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "in_progress"})
			return
		}
		logger.ErrorContext(ctx, "index build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "index build failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated": count})
}
