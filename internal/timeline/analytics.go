// Package timeline reconstructs persisted design events into chronological
// listings and derived analytics.
package timeline

import (
	"github.com/mohsaqr/designtrace/internal/domain"
)

// TemplateUsage summarizes template-related choices in an event stream.
// Role and personality are last-write-wins.
type TemplateUsage struct {
	RoleUsed         string `json:"role_used,omitempty"`
	PersonalityUsed  string `json:"personality_used,omitempty"`
	TemplatesApplied int    `json:"templates_applied"`
}

// Analytics is the set of metrics derived from one configuration's full
// event stream.
type Analytics struct {
	TotalDesignTime       int64                   `json:"total_design_time"`
	IterationCount        int                     `json:"iteration_count"`
	TestConversationCount int                     `json:"test_conversation_count"`
	TemplateUsage         TemplateUsage           `json:"template_usage"`
	ReflectionResponses   map[string]string       `json:"reflection_responses"`
	CategoryBreakdown     map[domain.Category]int `json:"category_breakdown"`
	TotalEvents           int                     `json:"total_events"`
}

// Aggregate derives analytics from an event stream in (timestamp, seq)
// order.
//
// TotalDesignTime is the value carried by the last design_session_end, or
// the latest running value when no session ended cleanly. An iteration is a
// post_test_edit occurring after at least one test_conversation_started in
// the stream; streams with no test runs have an iteration count of zero no
// matter how many post_test_edit rows they contain.
func Aggregate(events []domain.DesignEvent) Analytics {
	a := Analytics{
		ReflectionResponses: make(map[string]string),
		CategoryBreakdown:   make(map[domain.Category]int),
		TotalEvents:         len(events),
	}

	var running int64
	sawEnd := false
	sawTestStart := false
	conversations := make(map[string]struct{})

	for _, ev := range events {
		a.CategoryBreakdown[ev.Category]++
		running = ev.TotalDesignTime

		switch ev.EventType {
		case domain.EventSessionEnd:
			a.TotalDesignTime = ev.TotalDesignTime
			sawEnd = true

		case domain.EventTestConversationStarted:
			sawTestStart = true
			if p, ok := ev.Payload.(*domain.TestConversationPayload); ok && p.TestConversationID != "" {
				conversations[p.TestConversationID] = struct{}{}
			}

		case domain.EventPostTestEdit:
			if sawTestStart {
				a.IterationCount++
			}

		case domain.EventRoleSelected:
			if p, ok := ev.Payload.(*domain.RoleSelectedPayload); ok {
				a.TemplateUsage.RoleUsed = p.RoleSelected
			}

		case domain.EventPersonalitySelected:
			if p, ok := ev.Payload.(*domain.PersonalitySelectedPayload); ok {
				a.TemplateUsage.PersonalityUsed = p.PersonalitySelected
			}

		case domain.EventTemplateApplied:
			a.TemplateUsage.TemplatesApplied++

		case domain.EventReflectionResponseSubmitted:
			p, ok := ev.Payload.(*domain.ReflectionResponsePayload)
			if !ok {
				continue
			}
			// Unknown prompt ids are a soft-fail: skipped, not an error.
			if _, known := domain.ReflectionPromptByID(p.ReflectionPromptID); known {
				a.ReflectionResponses[p.ReflectionPromptID] = p.ReflectionResponse
			}
		}
	}

	a.TestConversationCount = len(conversations)
	if !sawEnd {
		a.TotalDesignTime = running
	}
	return a
}

// AssignmentAnalytics aggregates activity across every configuration
// designed for one assignment.
type AssignmentAnalytics struct {
	AssignmentID      string                  `json:"assignment_id"`
	TotalEvents       int                     `json:"total_events"`
	DistinctDesigners int                     `json:"distinct_designers"`
	DistinctConfigs   int                     `json:"distinct_configs"`
	TemplatesApplied  int                     `json:"templates_applied"`
	TestConversations int                     `json:"test_conversations"`
	CategoryBreakdown map[domain.Category]int `json:"category_breakdown"`
}

// AggregateAssignment derives assignment-level metrics from the combined
// event stream of every designer working on the assignment.
func AggregateAssignment(assignmentID string, events []domain.DesignEvent) AssignmentAnalytics {
	a := AssignmentAnalytics{
		AssignmentID:      assignmentID,
		TotalEvents:       len(events),
		CategoryBreakdown: make(map[domain.Category]int),
	}

	designers := make(map[string]struct{})
	configs := make(map[string]struct{})
	conversations := make(map[string]struct{})

	for _, ev := range events {
		a.CategoryBreakdown[ev.Category]++
		if ev.UserID != "" {
			designers[ev.UserID] = struct{}{}
		}
		if ev.AgentConfigID != "" {
			configs[ev.AgentConfigID] = struct{}{}
		}

		switch ev.EventType {
		case domain.EventTemplateApplied:
			a.TemplatesApplied++
		case domain.EventTestConversationStarted:
			if p, ok := ev.Payload.(*domain.TestConversationPayload); ok && p.TestConversationID != "" {
				conversations[p.TestConversationID] = struct{}{}
			}
		}
	}

	a.DistinctDesigners = len(designers)
	a.DistinctConfigs = len(configs)
	a.TestConversations = len(conversations)
	return a
}
