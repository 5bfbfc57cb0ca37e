// Package handlers provides the localhost REST API consumed by the desktop
// shell: sync operations and the generic data-access gateway.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/facturo/backend/internal/errors"
)

// Routes assembles the API router.
func Routes(syncH *SyncHandler, dataH *DataHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(corsLocalhost)

	r.Get("/health", healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync/run", syncH.RunSession)
		r.Get("/sync/pending", syncH.PendingCount)

		r.Post("/db/query", dataH.Query)
		r.Post("/db/execute", dataH.Execute)
		r.Post("/db/{table}", dataH.Insert)
		r.Patch("/db/{table}/{id}", dataH.Update)
		r.Delete("/db/{table}/{id}", dataH.Delete)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "facturo-backend"})
}

// corsLocalhost allows the shell's webview origin only.
func corsLocalhost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := apperrors.ErrInternal
	if appErr, ok := err.(*apperrors.AppError); ok {
		code = appErr.Code
	}
	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
