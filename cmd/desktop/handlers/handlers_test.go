package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facturo/backend/internal/db"
	syncpkg "github.com/facturo/backend/internal/sync"
	"github.com/facturo/backend/internal/sync/queue"
)

func setupRouter(t *testing.T) (http.Handler, *queue.Queue) {
	t.Helper()

	database, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = database.Exec("CREATE TABLE klant (id TEXT PRIMARY KEY, naam TEXT)")
	require.NoError(t, err)

	gateway := db.NewGateway(database)
	q := queue.New(database)
	engine := syncpkg.NewEngine(q, queue.DefaultBatchSize, nil)

	return Routes(NewSyncHandler(engine), NewDataHandler(gateway, q)), q
}

func doJSON(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
}

func TestInsertWithSyncEnqueues(t *testing.T) {
	router, q := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/klant", map[string]interface{}{
		"data": map[string]interface{}{"naam": "Jansen"},
		"sync": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])

	pending, err := q.CountPending()
	require.NoError(t, err)
	require.Equal(t, 1, pending)

	batch, err := q.SelectBatch(queue.DefaultBatchSize)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "klant", batch[0].Table)
	require.Equal(t, queue.OperationInsert, batch[0].Operation)
	require.Equal(t, resp["id"], batch[0].RecordID)

	// The queued payload carries the generated id.
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(batch[0].Data, &payload))
	require.Equal(t, resp["id"], payload["id"])
}

func TestInsertWithoutSyncStaysLocal(t *testing.T) {
	router, q := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/klant", map[string]interface{}{
		"data": map[string]interface{}{"naam": "Jansen"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	pending, err := q.CountPending()
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestUpdateAndDeleteRoundtrip(t *testing.T) {
	router, q := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/klant", map[string]interface{}{
		"data": map[string]interface{}{"id": "k1", "naam": "Oud"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/db/klant/k1", map[string]interface{}{
		"data": map[string]interface{}{"naam": "Nieuw"},
		"sync": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/db/klant/k1?sync=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	batch, err := q.SelectBatch(queue.DefaultBatchSize)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, queue.OperationUpdate, batch[0].Operation)
	require.Equal(t, queue.OperationDelete, batch[1].Operation)
	require.Empty(t, batch[1].Data)
}

func TestInsertRejectsBadIdentifier(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/klant;drop", map[string]interface{}{
		"data": map[string]interface{}{"naam": "x"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "INVALID_IDENTIFIER", resp["code"])
}

func TestQueryEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/klant", map[string]interface{}{
		"data": map[string]interface{}{"id": "k1", "naam": "Jansen"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/db/query", map[string]interface{}{
		"sql":    "SELECT naam FROM klant WHERE id = ?",
		"params": []interface{}{"k1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "Jansen", resp.Rows[0]["naam"])
}

func TestQueryEmptyResultIsEmptyArray(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/query", map[string]interface{}{
		"sql": "SELECT * FROM klant",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"rows":[]`)
}

func TestExecuteEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/db/execute", map[string]interface{}{
		"sql":    "INSERT INTO klant (id, naam) VALUES (?, ?)",
		"params": []interface{}{"k9", "Direct"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"affected":1`)
}

func TestPendingCountEndpoint(t *testing.T) {
	router, q := setupRouter(t)

	require.NoError(t, q.Enqueue("klant", queue.OperationInsert, []byte(`{}`), "k1"))

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sync/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pending":1`)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync/pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
