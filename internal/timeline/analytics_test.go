package timeline

import (
	"testing"

	"github.com/mohsaqr/designtrace/internal/domain"
)

func ev(t domain.EventType, total int64, p domain.Payload) domain.DesignEvent {
	return domain.DesignEvent{
		EventType:       t,
		Category:        t.Category(),
		TotalDesignTime: total,
		Payload:         p,
	}
}

func TestAggregateIterationCountRequiresTestRun(t *testing.T) {
	// post_test_edit rows with no preceding test conversation count nothing.
	noTests := []domain.DesignEvent{
		ev(domain.EventSessionStart, 0, nil),
		ev(domain.EventPostTestEdit, 5, &domain.PostTestEditPayload{FieldName: "agentName"}),
		ev(domain.EventPostTestEdit, 9, &domain.PostTestEditPayload{FieldName: "rules"}),
	}
	if got := Aggregate(noTests).IterationCount; got != 0 {
		t.Errorf("expected 0 iterations without test runs, got %d", got)
	}

	withTests := []domain.DesignEvent{
		ev(domain.EventSessionStart, 0, nil),
		ev(domain.EventTestConversationStarted, 10, &domain.TestConversationPayload{TestConversationID: "c1"}),
		ev(domain.EventPostTestEdit, 15, &domain.PostTestEditPayload{FieldName: "agentName"}),
		ev(domain.EventPostTestEdit, 20, &domain.PostTestEditPayload{FieldName: "rules"}),
	}
	if got := Aggregate(withTests).IterationCount; got != 2 {
		t.Errorf("expected 2 iterations, got %d", got)
	}
}

func TestAggregateCountsDistinctConversations(t *testing.T) {
	events := []domain.DesignEvent{
		ev(domain.EventTestConversationStarted, 0, &domain.TestConversationPayload{TestConversationID: "c1"}),
		ev(domain.EventTestConversationStarted, 0, &domain.TestConversationPayload{TestConversationID: "c1"}),
		ev(domain.EventTestConversationStarted, 0, &domain.TestConversationPayload{TestConversationID: "c2"}),
	}
	if got := Aggregate(events).TestConversationCount; got != 2 {
		t.Errorf("expected 2 distinct conversations, got %d", got)
	}
}

func TestAggregateTemplateUsageLastWriteWins(t *testing.T) {
	events := []domain.DesignEvent{
		ev(domain.EventRoleSelected, 0, &domain.RoleSelectedPayload{RoleSelected: "tutor"}),
		ev(domain.EventPersonalitySelected, 0, &domain.PersonalitySelectedPayload{PersonalitySelected: "formal"}),
		ev(domain.EventRoleSelected, 0, &domain.RoleSelectedPayload{RoleSelected: "coach"}),
		ev(domain.EventTemplateApplied, 0, &domain.TemplatePayload{TemplateName: "socratic"}),
		ev(domain.EventTemplateApplied, 0, &domain.TemplatePayload{TemplateName: "scaffolded"}),
	}
	a := Aggregate(events)
	if a.TemplateUsage.RoleUsed != "coach" {
		t.Errorf("expected last role to win, got %q", a.TemplateUsage.RoleUsed)
	}
	if a.TemplateUsage.PersonalityUsed != "formal" {
		t.Errorf("expected personality %q, got %q", "formal", a.TemplateUsage.PersonalityUsed)
	}
	if a.TemplateUsage.TemplatesApplied != 2 {
		t.Errorf("expected 2 templates applied, got %d", a.TemplateUsage.TemplatesApplied)
	}
}

func TestAggregateTotalDesignTime(t *testing.T) {
	ended := []domain.DesignEvent{
		ev(domain.EventSessionStart, 0, nil),
		ev(domain.EventFieldFocus, 12, nil),
		ev(domain.EventSessionEnd, 47, nil),
	}
	if got := Aggregate(ended).TotalDesignTime; got != 47 {
		t.Errorf("expected design time from session end, got %d", got)
	}

	// No clean end: fall back to the latest running value.
	truncated := []domain.DesignEvent{
		ev(domain.EventSessionStart, 0, nil),
		ev(domain.EventFieldFocus, 12, nil),
		ev(domain.EventFieldChange, 33, &domain.FieldChangePayload{FieldName: "agentName"}),
	}
	if got := Aggregate(truncated).TotalDesignTime; got != 33 {
		t.Errorf("expected latest running design time, got %d", got)
	}
}

func TestAggregateReflectionsSkipUnknownPrompts(t *testing.T) {
	events := []domain.DesignEvent{
		ev(domain.EventReflectionResponseSubmitted, 0, &domain.ReflectionResponsePayload{
			ReflectionPromptID: "post_test_observation",
			ReflectionResponse: "it refused to answer math",
		}),
		ev(domain.EventReflectionResponseSubmitted, 0, &domain.ReflectionResponsePayload{
			ReflectionPromptID: "bogus_prompt",
			ReflectionResponse: "ignored",
		}),
	}
	a := Aggregate(events)
	if len(a.ReflectionResponses) != 1 {
		t.Fatalf("expected 1 reflection response, got %d", len(a.ReflectionResponses))
	}
	if a.ReflectionResponses["post_test_observation"] != "it refused to answer math" {
		t.Errorf("unexpected reflection map: %v", a.ReflectionResponses)
	}
}

func TestAggregateCategoryBreakdown(t *testing.T) {
	events := []domain.DesignEvent{
		ev(domain.EventSessionStart, 0, nil),
		ev(domain.EventFieldFocus, 0, nil),
		ev(domain.EventFieldBlur, 0, nil),
		ev(domain.EventTabSwitch, 0, nil),
	}
	a := Aggregate(events)
	if a.TotalEvents != 4 {
		t.Errorf("expected 4 total events, got %d", a.TotalEvents)
	}
	if a.CategoryBreakdown[domain.CategoryField] != 2 {
		t.Errorf("expected 2 field events, got %d", a.CategoryBreakdown[domain.CategoryField])
	}
	if a.CategoryBreakdown[domain.CategorySession] != 1 {
		t.Errorf("expected 1 session event, got %d", a.CategoryBreakdown[domain.CategorySession])
	}
	if a.CategoryBreakdown[domain.CategoryNavigation] != 1 {
		t.Errorf("expected 1 navigation event, got %d", a.CategoryBreakdown[domain.CategoryNavigation])
	}
}

func TestAggregateAssignmentDistinctCounts(t *testing.T) {
	events := []domain.DesignEvent{
		{EventType: domain.EventSessionStart, Category: domain.CategorySession, UserID: "u1", AgentConfigID: "cfg1"},
		{EventType: domain.EventFieldFocus, Category: domain.CategoryField, UserID: "u1", AgentConfigID: "cfg1"},
		{EventType: domain.EventSessionStart, Category: domain.CategorySession, UserID: "u2", AgentConfigID: "cfg2"},
		{
			EventType: domain.EventTestConversationStarted,
			Category:  domain.CategoryTest,
			UserID:    "u2", AgentConfigID: "cfg2",
			Payload: &domain.TestConversationPayload{TestConversationID: "c1"},
		},
	}

	a := AggregateAssignment("hw-1", events)
	if a.AssignmentID != "hw-1" {
		t.Errorf("unexpected assignment id %q", a.AssignmentID)
	}
	if a.DistinctDesigners != 2 {
		t.Errorf("expected 2 designers, got %d", a.DistinctDesigners)
	}
	if a.DistinctConfigs != 2 {
		t.Errorf("expected 2 configs, got %d", a.DistinctConfigs)
	}
	if a.TestConversations != 1 {
		t.Errorf("expected 1 test conversation, got %d", a.TestConversations)
	}
	if a.TotalEvents != 4 {
		t.Errorf("expected 4 events, got %d", a.TotalEvents)
	}
}
