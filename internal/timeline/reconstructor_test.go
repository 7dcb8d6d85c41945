package timeline

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
)

// fakeRepo is an in-memory Repository for read-side tests.
type fakeRepo struct {
	events []domain.DesignEvent

	lastLimit  int
	lastOffset int
}

func (f *fakeRepo) InsertEvents(ctx context.Context, events []domain.DesignEvent) (int64, error) {
	f.events = append(f.events, events...)
	return int64(len(events)), nil
}

func (f *fakeRepo) ListEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category, limit, offset int) ([]domain.DesignEvent, error) {
	f.lastLimit = limit
	f.lastOffset = offset

	var out []domain.DesignEvent
	for _, ev := range f.events {
		if ev.AgentConfigID != agentConfigID {
			continue
		}
		if category != "" && ev.Category != category {
			continue
		}
		out = append(out, ev)
	}
	// Mirror the store's (timestamp, seq) ordering.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

func (f *fakeRepo) CountEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category) (int64, error) {
	events, _ := f.ListEventsByConfig(ctx, agentConfigID, category, 0, 0)
	return int64(len(events)), nil
}

func (f *fakeRepo) ListEventsByAssignment(ctx context.Context, assignmentID string) ([]domain.DesignEvent, error) {
	var out []domain.DesignEvent
	for _, ev := range f.events {
		if ev.AssignmentID == assignmentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeRepo) LatestSnapshotEvent(ctx context.Context, agentConfigID string, at time.Time) (*domain.DesignEvent, error) {
	var latest *domain.DesignEvent
	for i := range f.events {
		ev := &f.events[i]
		if ev.AgentConfigID != agentConfigID || ev.Timestamp.After(at) {
			continue
		}
		if ev.EventType != domain.EventDraftSaved && ev.EventType != domain.EventSubmissionCompleted {
			continue
		}
		if latest == nil || ev.Timestamp.After(latest.Timestamp) {
			latest = ev
		}
	}
	return latest, nil
}

func (f *fakeRepo) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeRepo) Close() error                   { return nil }

func configEvent(t domain.EventType, configID string, ts time.Time, p domain.Payload) domain.DesignEvent {
	return domain.DesignEvent{
		EventType:     t,
		Category:      t.Category(),
		Timestamp:     ts,
		AgentConfigID: configID,
		Payload:       p,
	}
}

func TestTimelineClampsPagination(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Unix(1700000000, 0)
	for i := 0; i < 10; i++ {
		repo.events = append(repo.events,
			configEvent(domain.EventFieldFocus, "cfg1", base.Add(time.Duration(i)*time.Second), nil))
	}
	recon := NewReconstructor(repo)

	tl, err := recon.Timeline(context.Background(), "cfg1", "", 0, -3)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if tl.Limit != DefaultPageSize {
		t.Errorf("expected default limit %d, got %d", DefaultPageSize, tl.Limit)
	}
	if tl.Offset != 0 {
		t.Errorf("negative offset must clamp to 0, got %d", tl.Offset)
	}

	tl, err = recon.Timeline(context.Background(), "cfg1", "", 9999, 0)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if tl.Limit != MaxPageSize {
		t.Errorf("expected limit clamped to %d, got %d", MaxPageSize, tl.Limit)
	}
	if tl.TotalMatching != 10 {
		t.Errorf("expected total 10, got %d", tl.TotalMatching)
	}
	if len(tl.Events) != 10 {
		t.Errorf("expected all 10 events on one page, got %d", len(tl.Events))
	}
}

func TestTimelineAnalyticsCoverFullStreamNotPage(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Unix(1700000000, 0)
	for i := 0; i < 6; i++ {
		repo.events = append(repo.events,
			configEvent(domain.EventFieldFocus, "cfg1", base.Add(time.Duration(i)*time.Second), nil))
	}
	recon := NewReconstructor(repo)

	tl, err := recon.Timeline(context.Background(), "cfg1", "", 2, 0)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(tl.Events) != 2 {
		t.Fatalf("expected a page of 2, got %d", len(tl.Events))
	}
	if tl.Analytics.TotalEvents != 6 {
		t.Errorf("analytics must span the full stream, got %d events", tl.Analytics.TotalEvents)
	}
}

func TestReflectionResponsesLatestPerPromptInRegistryOrder(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Unix(1700000000, 0)
	repo.events = append(repo.events,
		configEvent(domain.EventReflectionResponseSubmitted, "cfg1", base.Add(30*time.Second),
			&domain.ReflectionResponsePayload{
				ReflectionPromptID: "post_test_observation",
				ReflectionResponse: "second answer",
			}),
		configEvent(domain.EventReflectionResponseSubmitted, "cfg1", base,
			&domain.ReflectionResponsePayload{
				ReflectionPromptID: "pre_design_goal",
				ReflectionResponse: "help with homework",
			}),
		configEvent(domain.EventReflectionResponseSubmitted, "cfg1", base.Add(10*time.Second),
			&domain.ReflectionResponsePayload{
				ReflectionPromptID: "post_test_observation",
				ReflectionResponse: "first answer",
			}),
		configEvent(domain.EventReflectionResponseSubmitted, "cfg1", base,
			&domain.ReflectionResponsePayload{
				ReflectionPromptID: "unknown_prompt",
				ReflectionResponse: "must be dropped",
			}),
	)
	recon := NewReconstructor(repo)

	answers, err := recon.ReflectionResponses(context.Background(), "cfg1")
	if err != nil {
		t.Fatalf("reflection responses: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	// Registry order: pre_design_goal comes before post_test_observation.
	if answers[0].PromptID != "pre_design_goal" {
		t.Errorf("expected registry order, got %q first", answers[0].PromptID)
	}
	if answers[1].Response != "second answer" {
		t.Errorf("expected the latest answer to win, got %q", answers[1].Response)
	}
	if answers[0].Question == "" {
		t.Error("answers must carry the prompt question text")
	}
}

func TestSnapshotAtNeverSavedReturnsNil(t *testing.T) {
	recon := NewReconstructor(&fakeRepo{})

	snap, _, err := recon.SnapshotAt(context.Background(), "cfg1", time.Now())
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot for a never-saved config, got %+v", snap)
	}
}

func TestSnapshotAtReturnsNewestAtOrBefore(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Unix(1700000000, 0)
	repo.events = append(repo.events,
		configEvent(domain.EventDraftSaved, "cfg1", base, &domain.SavePayload{
			AgentConfigSnapshot: &domain.ConfigSnapshot{AgentName: "v1"},
		}),
		configEvent(domain.EventSubmissionCompleted, "cfg1", base.Add(time.Minute), &domain.SavePayload{
			AgentConfigSnapshot: &domain.ConfigSnapshot{AgentName: "v2"},
		}),
	)
	recon := NewReconstructor(repo)

	snap, at, err := recon.SnapshotAt(context.Background(), "cfg1", base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snap == nil || snap.AgentName != "v1" {
		t.Fatalf("expected v1 snapshot, got %+v", snap)
	}
	if !at.Equal(base) {
		t.Errorf("expected snapshot timestamp %v, got %v", base, at)
	}

	snap, _, err = recon.SnapshotAt(context.Background(), "cfg1", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snap == nil || snap.AgentName != "v2" {
		t.Fatalf("expected v2 snapshot, got %+v", snap)
	}
}

func TestSnapshotAtSaveWithoutSnapshotYieldsEmpty(t *testing.T) {
	repo := &fakeRepo{}
	base := time.Unix(1700000000, 0)
	repo.events = append(repo.events,
		configEvent(domain.EventDraftSaved, "cfg1", base, nil))
	recon := NewReconstructor(repo)

	snap, _, err := recon.SnapshotAt(context.Background(), "cfg1", base.Add(time.Second))
	if err != nil {
		t.Fatalf("snapshot at: %v", err)
	}
	if snap == nil {
		t.Fatal("expected empty snapshot, got nil")
	}
	if snap.AgentName != "" || len(snap.Rules) != 0 {
		t.Errorf("expected zero-valued snapshot, got %+v", snap)
	}
}
