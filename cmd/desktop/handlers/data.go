package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/facturo/backend/internal/db"
	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/logger"
	"github.com/facturo/backend/internal/sync/queue"
)

// DataHandler exposes the generic data-access gateway. Mutating calls with
// "sync": true additionally append a mutation-log entry once the local write
// has committed; this is the sole producer of new queue entries.
type DataHandler struct {
	gateway *db.Gateway
	queue   *queue.Queue
}

// NewDataHandler creates a DataHandler.
func NewDataHandler(gateway *db.Gateway, q *queue.Queue) *DataHandler {
	return &DataHandler{gateway: gateway, queue: q}
}

type statementRequest struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
}

type mutationRequest struct {
	Data map[string]interface{} `json:"data"`
	Sync bool                   `json:"sync"`
}

// Query handles POST /api/v1/db/query.
func (h *DataHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalid, "sql is required"))
		return
	}

	rows, err := h.gateway.Query(req.SQL, req.Params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// Execute handles POST /api/v1/db/execute.
func (h *DataHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalid, "sql is required"))
		return
	}

	affected, err := h.gateway.Exec(req.SQL, req.Params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"affected": affected})
}

// Insert handles POST /api/v1/db/{table}.
func (h *DataHandler) Insert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalid, "data is required"))
		return
	}

	id, err := h.gateway.Insert(table, req.Data)
	if err != nil {
		writeError(w, gatewayStatus(err), err)
		return
	}

	if req.Sync {
		h.enqueue(table, queue.OperationInsert, req.Data, id)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update handles PATCH /api/v1/db/{table}/{id}.
func (h *DataHandler) Update(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalid, "data is required"))
		return
	}

	if err := h.gateway.Update(table, id, req.Data); err != nil {
		writeError(w, gatewayStatus(err), err)
		return
	}

	if req.Sync {
		h.enqueue(table, queue.OperationUpdate, req.Data, id)
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles DELETE /api/v1/db/{table}/{id}. ?sync=1 enqueues the delete
// for remote propagation.
func (h *DataHandler) Delete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id := chi.URLParam(r, "id")

	if err := h.gateway.Delete(table, id); err != nil {
		writeError(w, gatewayStatus(err), err)
		return
	}

	if r.URL.Query().Get("sync") == "1" {
		h.enqueueRaw(table, queue.OperationDelete, nil, id)
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// enqueue appends one mutation-log entry with a JSON payload. A failed
// enqueue is logged but does not fail the already-committed local write.
func (h *DataHandler) enqueue(table, operation string, data map[string]interface{}, recordID string) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Log.Error("failed to marshal sync payload",
			zap.String("table", table), zap.Error(err))
		return
	}
	h.enqueueRaw(table, operation, payload, recordID)
}

func (h *DataHandler) enqueueRaw(table, operation string, payload []byte, recordID string) {
	if err := h.queue.Enqueue(table, operation, payload, recordID); err != nil {
		logger.Log.Error("failed to enqueue sync operation",
			zap.String("table", table),
			zap.String("operation", operation),
			zap.Error(err))
	}
}

func gatewayStatus(err error) int {
	if apperrors.Is(err, apperrors.ErrBadIdent) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
