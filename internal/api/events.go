package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mohsaqr/designtrace/internal/diff"
	"github.com/mohsaqr/designtrace/internal/domain"
	"github.com/mohsaqr/designtrace/internal/identity"
)

// RegisterRoutes registers the telemetry ingest and read routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/events", h.Ingest)
		r.Route("/configs/{configID}", func(r chi.Router) {
			r.Get("/timeline", h.Timeline)
			r.Get("/analytics", h.Analytics)
			r.Get("/snapshot", h.SnapshotAt)
			r.Get("/snapshot/diff", h.SnapshotDiff)
			r.Get("/reflections", h.Reflections)
		})
		r.Get("/assignments/{assignmentID}/analytics", h.AssignmentAnalytics)
	})
}

// Ingest accepts one event batch from the client pipeline. Both the normal
// flush path and the best-effort unload path post here with the same
// payload shape. Rows already persisted from an earlier delivery attempt
// are deduplicated on (design_session_id, seq); rows with an undeclared
// event type are skipped, never fatal — a logging failure must not block
// the design workflow.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var batch domain.EventBatch
	if err := decodeJSONBody(r, &batch); err != nil {
		Error(w, http.StatusBadRequest, "invalid batch payload")
		return
	}

	fallbackSessionID := identity.SessionIDFromContext(r.Context())

	events := make([]domain.DesignEvent, 0, len(batch.Events))
	skipped := 0
	for _, ev := range batch.Events {
		if !ev.EventType.IsValid() {
			skipped++
			continue
		}
		// The category is always the deterministic image of the event
		// type; never trust the client's copy.
		ev.Category = ev.EventType.Category()
		if ev.SessionID == "" {
			ev.SessionID = fallbackSessionID
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		events = append(events, ev)
	}

	inserted, err := h.repo.InsertEvents(r.Context(), events)
	if err != nil {
		slog.Error("Failed to insert event batch", "error", err, "batch_id", batch.BatchID)
		Error(w, http.StatusInternalServerError, "failed to persist events")
		return
	}

	if skipped > 0 {
		slog.Warn("Ingest skipped undeclared event types",
			"batch_id", batch.BatchID,
			"skipped", skipped,
			"tab_id", identity.TabIDFromContext(r.Context()))
	}

	if h.feed != nil && inserted > 0 {
		h.feed.Broadcast(events)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"accepted":     inserted,
		"deduplicated": int64(len(events)) - inserted,
		"skipped":      skipped,
	})
}

// Timeline returns one page of a configuration's event history together
// with analytics over the full stream.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")

	category := domain.Category(r.URL.Query().Get("category"))
	if category != "" && !category.IsValid() {
		Error(w, http.StatusBadRequest, "unknown event category")
		return
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	tl, err := h.recon.Timeline(r.Context(), configID, category, limit, offset)
	if err != nil {
		slog.Error("Failed to reconstruct timeline", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load timeline")
		return
	}
	JSON(w, http.StatusOK, tl)
}

// Analytics returns derived metrics for one configuration.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")

	analytics, err := h.recon.ConfigAnalytics(r.Context(), configID)
	if err != nil {
		slog.Error("Failed to aggregate analytics", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	JSON(w, http.StatusOK, analytics)
}

// snapshotField is one rendered snapshot row for point-in-time viewers.
// Missing data renders as placeholders, never as an error.
type snapshotField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func renderSnapshot(s *domain.ConfigSnapshot) []snapshotField {
	return []snapshotField{
		{"agent_name", diff.DisplayScalar(s.AgentName)},
		{"agent_description", diff.DisplayScalar(s.AgentDescription)},
		{"role", diff.DisplayScalar(s.Role)},
		{"personality", diff.DisplayScalar(s.Personality)},
		{"system_prompt", diff.DisplayScalar(s.SystemPrompt)},
		{"welcome_message", diff.DisplayScalar(s.WelcomeMessage)},
		{"model", diff.DisplayScalar(s.Model)},
		{"response_style", diff.DisplayScalar(s.ResponseStyle)},
		{"knowledge_level", diff.DisplayScalar(s.KnowledgeLevel)},
		{"temperature", diff.DisplayScalar(s.Temperature)},
		{"rules", diff.DisplayList(s.Rules)},
		{"guardrails", diff.DisplayList(s.Guardrails)},
		{"example_questions", diff.DisplayList(s.ExampleQuestions)},
	}
}

// SnapshotAt returns the configuration snapshot in effect at ?at=<unix>,
// defaulting to now.
func (h *Handler) SnapshotAt(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")
	at := queryTime(r, "at", time.Now())

	snapshot, capturedAt, err := h.recon.SnapshotAt(r.Context(), configID, at)
	if err != nil {
		slog.Error("Failed to load snapshot", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	if snapshot == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"found": false})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"found":       true,
		"captured_at": capturedAt,
		"snapshot":    snapshot,
		"fields":      renderSnapshot(snapshot),
	})
}

// SnapshotDiff compares the snapshots in effect at ?from=<unix> and
// ?to=<unix>. The differ reorders internally, so the two parameters can be
// given in either order.
func (h *Handler) SnapshotDiff(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")

	from, ok := queryTimeRequired(r, "from")
	if !ok {
		Error(w, http.StatusBadRequest, "from is required (unix seconds)")
		return
	}
	to, ok := queryTimeRequired(r, "to")
	if !ok {
		Error(w, http.StatusBadRequest, "to is required (unix seconds)")
		return
	}

	fromSnap, fromAt, err := h.recon.SnapshotAt(r.Context(), configID, from)
	if err != nil {
		slog.Error("Failed to load diff source snapshot", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	toSnap, toAt, err := h.recon.SnapshotAt(r.Context(), configID, to)
	if err != nil {
		slog.Error("Failed to load diff target snapshot", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	// A side with no saved snapshot diffs as an empty configuration.
	a := diff.NamedSnapshot{Name: "from", Timestamp: fromAt, Config: fromSnap}
	b := diff.NamedSnapshot{Name: "to", Timestamp: toAt, Config: toSnap}
	JSON(w, http.StatusOK, diff.Compare(a, b))
}

// Reflections returns the latest answer per known reflection prompt.
// Unknown prompt ids in the stream are silently omitted.
func (h *Handler) Reflections(w http.ResponseWriter, r *http.Request) {
	configID := chi.URLParam(r, "configID")

	answers, err := h.recon.ReflectionResponses(r.Context(), configID)
	if err != nil {
		slog.Error("Failed to load reflections", "error", err, "config_id", configID)
		Error(w, http.StatusInternalServerError, "failed to load reflections")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"agent_config_id": configID,
		"responses":       answers,
	})
}

// AssignmentAnalytics returns aggregate activity across every designer on
// one assignment.
func (h *Handler) AssignmentAnalytics(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	analytics, err := h.recon.AssignmentAnalytics(r.Context(), assignmentID)
	if err != nil {
		slog.Error("Failed to aggregate assignment analytics", "error", err, "assignment_id", assignmentID)
		Error(w, http.StatusInternalServerError, "failed to load assignment analytics")
		return
	}
	JSON(w, http.StatusOK, analytics)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryTime(r *http.Request, key string, fallback time.Time) time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	unix, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(unix, 0)
}

func queryTimeRequired(r *http.Request, key string) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
