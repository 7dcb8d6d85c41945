package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
	"github.com/mohsaqr/designtrace/internal/store"
)

// Pagination bounds for timeline retrieval. Very long sessions produce tens
// of thousands of rows; the cap keeps a single response bounded.
const (
	DefaultPageSize = 200
	MaxPageSize     = 500
)

// Reconstructor builds read-side views over the persisted event log. It is
// stateless and safe for concurrent use.
type Reconstructor struct {
	repo store.Repository
}

// NewReconstructor creates a Reconstructor over the given event log.
func NewReconstructor(repo store.Repository) *Reconstructor {
	return &Reconstructor{repo: repo}
}

// Timeline is one page of a configuration's event history plus analytics
// computed over the full stream.
type Timeline struct {
	AgentConfigID string               `json:"agent_config_id"`
	Events        []domain.DesignEvent `json:"events"`
	Analytics     Analytics            `json:"analytics"`
	TotalMatching int64                `json:"total_matching"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

// Timeline returns events for a configuration in (timestamp, seq) order,
// optionally filtered by category and paginated. Limit is clamped to
// [1, MaxPageSize]; a non-positive limit selects DefaultPageSize.
func (r *Reconstructor) Timeline(ctx context.Context, agentConfigID string, category domain.Category, limit, offset int) (*Timeline, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	events, err := r.repo.ListEventsByConfig(ctx, agentConfigID, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}

	total, err := r.repo.CountEventsByConfig(ctx, agentConfigID, category)
	if err != nil {
		return nil, fmt.Errorf("count timeline events: %w", err)
	}

	analytics, err := r.ConfigAnalytics(ctx, agentConfigID)
	if err != nil {
		return nil, err
	}

	return &Timeline{
		AgentConfigID: agentConfigID,
		Events:        events,
		Analytics:     analytics,
		TotalMatching: total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

// ConfigAnalytics aggregates the full event stream of one configuration.
func (r *Reconstructor) ConfigAnalytics(ctx context.Context, agentConfigID string) (Analytics, error) {
	events, err := r.repo.ListEventsByConfig(ctx, agentConfigID, "", 0, 0)
	if err != nil {
		return Analytics{}, fmt.Errorf("list events for analytics: %w", err)
	}
	return Aggregate(events), nil
}

// ReflectionAnswer pairs a known reflection prompt with its latest
// submitted response.
type ReflectionAnswer struct {
	PromptID   string    `json:"prompt_id"`
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	AnsweredAt time.Time `json:"answered_at"`
}

// ReflectionResponses returns the latest answer per known prompt, in prompt
// registry order. Responses referencing prompts with no definition are
// silently omitted.
func (r *Reconstructor) ReflectionResponses(ctx context.Context, agentConfigID string) ([]ReflectionAnswer, error) {
	events, err := r.repo.ListEventsByConfig(ctx, agentConfigID, domain.CategoryReflection, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list reflection events: %w", err)
	}

	latest := make(map[string]ReflectionAnswer)
	for _, ev := range events {
		if ev.EventType != domain.EventReflectionResponseSubmitted {
			continue
		}
		p, ok := ev.Payload.(*domain.ReflectionResponsePayload)
		if !ok {
			continue
		}
		prompt, known := domain.ReflectionPromptByID(p.ReflectionPromptID)
		if !known {
			continue
		}
		latest[p.ReflectionPromptID] = ReflectionAnswer{
			PromptID:   prompt.ID,
			Question:   prompt.Question,
			Response:   p.ReflectionResponse,
			AnsweredAt: ev.Timestamp,
		}
	}

	answers := make([]ReflectionAnswer, 0, len(latest))
	for _, prompt := range domain.ReflectionPrompts() {
		if a, ok := latest[prompt.ID]; ok {
			answers = append(answers, a)
		}
	}
	return answers, nil
}

// SnapshotAt returns the configuration snapshot in effect at the given
// instant: the one embedded in the newest draft_saved or
// submission_completed event at or before it. Returns nil when the
// configuration had not been saved yet.
func (r *Reconstructor) SnapshotAt(ctx context.Context, agentConfigID string, at time.Time) (*domain.ConfigSnapshot, time.Time, error) {
	ev, err := r.repo.LatestSnapshotEvent(ctx, agentConfigID, at)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot event: %w", err)
	}
	if ev == nil {
		return nil, time.Time{}, nil
	}

	p, ok := ev.Payload.(*domain.SavePayload)
	if !ok || p.AgentConfigSnapshot == nil {
		// A save event without an embedded snapshot renders as an empty
		// snapshot downstream, never as an error.
		return &domain.ConfigSnapshot{}, ev.Timestamp, nil
	}
	return p.AgentConfigSnapshot, ev.Timestamp, nil
}

// AssignmentAnalytics aggregates activity across an assignment.
func (r *Reconstructor) AssignmentAnalytics(ctx context.Context, assignmentID string) (AssignmentAnalytics, error) {
	events, err := r.repo.ListEventsByAssignment(ctx, assignmentID)
	if err != nil {
		return AssignmentAnalytics{}, fmt.Errorf("list assignment events: %w", err)
	}
	return AggregateAssignment(assignmentID, events), nil
}
