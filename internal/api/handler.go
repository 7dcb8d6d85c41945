// Package api provides HTTP handlers for the designtrace API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/mohsaqr/designtrace/internal/feed"
	"github.com/mohsaqr/designtrace/internal/store"
	"github.com/mohsaqr/designtrace/internal/timeline"
)

// Handler provides common handler utilities and dependencies.
type Handler struct {
	repo  store.Repository
	recon *timeline.Reconstructor
	feed  *feed.Manager
}

// NewHandler creates a new Handler with common dependencies. The feed
// manager is optional; ingest skips broadcasting when it is nil.
func NewHandler(repo store.Repository, recon *timeline.Reconstructor, feedMgr *feed.Manager) *Handler {
	return &Handler{
		repo:  repo,
		recon: recon,
		feed:  feedMgr,
	}
}

// maxBodyBytes bounds ingest request bodies. A full 50-event batch with
// embedded snapshots stays well under this.
const maxBodyBytes = 4 << 20

// decodeJSONBody decodes a JSON request body into v.
func decodeJSONBody(r *http.Request, v interface{}) error {
	defer func() {
		_ = r.Body.Close()
	}()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
