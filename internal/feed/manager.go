// Package feed streams accepted design events to WebSocket subscribers so
// dashboards can watch a configuration being designed live.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/mohsaqr/designtrace/internal/domain"
)

const broadcastWriteTimeout = 5 * time.Second

// Manager tracks active feed subscribers per agent configuration.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*websocket.Conn // configID -> subID -> conn
}

// NewManager creates a new feed manager.
func NewManager() *Manager {
	return &Manager{
		subscribers: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds a subscriber connection for a configuration. An existing
// connection under the same subscriber id is replaced and closed.
func (m *Manager) Register(configID, subID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subscribers[configID]; !exists {
		m.subscribers[configID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.subscribers[configID][subID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "subscription replaced")
	}

	m.subscribers[configID][subID] = conn
	slog.Info("Feed subscriber registered", "config_id", configID, "sub_id", subID)
}

// Unregister removes a subscriber connection.
func (m *Manager) Unregister(configID, subID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.subscribers[configID]; ok {
		if current, exists := subs[subID]; exists && current == conn {
			delete(subs, subID)
			if len(subs) == 0 {
				delete(m.subscribers, configID)
			}
			slog.Info("Feed subscriber unregistered", "config_id", configID, "sub_id", subID)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a
// configuration.
func (m *Manager) SubscriberCount(configID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[configID])
}

// Broadcast pushes accepted events to every subscriber of their
// configuration. Delivery is best-effort: a subscriber that cannot be
// written to is closed and dropped.
func (m *Manager) Broadcast(events []domain.DesignEvent) {
	byConfig := make(map[string][]domain.DesignEvent)
	for _, ev := range events {
		if ev.AgentConfigID == "" {
			continue
		}
		byConfig[ev.AgentConfigID] = append(byConfig[ev.AgentConfigID], ev)
	}
	if len(byConfig) == 0 {
		return
	}

	type target struct {
		configID string
		subID    string
		conn     *websocket.Conn
		payload  []byte
	}
	var targets []target

	m.mu.RLock()
	for configID, evs := range byConfig {
		subs, ok := m.subscribers[configID]
		if !ok {
			continue
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type":   "events",
			"events": evs,
		})
		if err != nil {
			slog.Warn("Failed to encode feed payload", "error", err, "config_id", configID)
			continue
		}
		for subID, conn := range subs {
			targets = append(targets, target{configID, subID, conn, payload})
		}
	}
	m.mu.RUnlock()

	for _, t := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastWriteTimeout)
		err := t.conn.Write(ctx, websocket.MessageText, t.payload)
		cancel()
		if err != nil {
			slog.Debug("Feed write failed, dropping subscriber",
				"error", err, "config_id", t.configID, "sub_id", t.subID)
			_ = t.conn.Close(websocket.StatusNormalClosure, "write failed")
			m.Unregister(t.configID, t.subID, t.conn)
		}
	}
}
