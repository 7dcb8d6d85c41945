package feed

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Handler upgrades feed subscriptions to WebSocket connections.
type Handler struct {
	manager       *Manager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new feed WebSocket handler.
func NewHandler(manager *Manager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{manager: manager, allowedOrigin: allowedOrigin, isDev: isDev}
}

// ServeHTTP implements http.Handler for WebSocket upgrade. The connection
// stays registered until the client closes it; the read loop exists only to
// notice disconnects, the feed is one-way.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	configID := r.URL.Query().Get("config_id")
	if configID == "" {
		http.Error(w, `{"error":"config_id is required"}`, http.StatusBadRequest)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept feed WebSocket", "error", err, "config_id", configID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Failed to close feed websocket", "error", closeErr, "config_id", configID)
		}
	}()

	subID := uuid.NewString()
	h.manager.Register(configID, subID, ws)
	defer h.manager.Unregister(configID, subID, ws)

	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Feed closed by client", "config_id", configID, "sub_id", subID)
			}
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("Feed origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
