package handlers

import (
	"net/http"

	apperrors "github.com/facturo/backend/internal/errors"
	syncpkg "github.com/facturo/backend/internal/sync"
)

// SyncHandler exposes sync session control to the shell.
type SyncHandler struct {
	engine *syncpkg.Engine
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(engine *syncpkg.Engine) *SyncHandler {
	return &SyncHandler{engine: engine}
}

// RunSession handles POST /api/v1/sync/run.
// Returns the session aggregate {synced, failed, message}.
func (h *SyncHandler) RunSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunSession(r.Context())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncBusy) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PendingCount handles GET /api/v1/sync/pending.
// Reports 0 when the queue table has not been created yet.
func (h *SyncHandler) PendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.CountPending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": count})
}
