// Package domain contains core domain types for the designtrace pipeline.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category is one of the eight coarse event buckets used for filtering
// and breakdown analytics.
type Category string

const (
	CategorySession    Category = "session"
	CategoryNavigation Category = "navigation"
	CategoryField      Category = "field"
	CategoryTemplate   Category = "template"
	CategoryRule       Category = "rule"
	CategoryTest       Category = "test"
	CategoryReflection Category = "reflection"
	CategorySave       Category = "save"
)

// IsValid reports whether c is one of the eight declared categories.
func (c Category) IsValid() bool {
	switch c {
	case CategorySession, CategoryNavigation, CategoryField, CategoryTemplate,
		CategoryRule, CategoryTest, CategoryReflection, CategorySave:
		return true
	}
	return false
}

// Categories returns every event category.
func Categories() []Category {
	return []Category{
		CategorySession, CategoryNavigation, CategoryField, CategoryTemplate,
		CategoryRule, CategoryTest, CategoryReflection, CategorySave,
	}
}

// EventType identifies one kind of design-builder interaction.
type EventType string

const (
	// Session lifecycle.
	EventSessionStart  EventType = "design_session_start"
	EventSessionPause  EventType = "design_session_pause"
	EventSessionResume EventType = "design_session_resume"
	EventSessionEnd    EventType = "design_session_end"

	// Navigation.
	EventTabSwitch       EventType = "tab_switch"
	EventTabTimeRecorded EventType = "tab_time_recorded"
	EventStepAdvanced    EventType = "step_advanced"
	EventStepBack        EventType = "step_back"
	EventPreviewOpened   EventType = "preview_opened"
	EventPreviewClosed   EventType = "preview_closed"

	// Field edits.
	EventFieldFocus          EventType = "field_focus"
	EventFieldBlur           EventType = "field_blur"
	EventFieldChange         EventType = "field_change"
	EventFieldCleared        EventType = "field_cleared"
	EventTemperatureAdjusted EventType = "temperature_adjusted"
	EventToggleChanged       EventType = "toggle_changed"

	// Templates.
	EventRoleSelected        EventType = "role_selected"
	EventPersonalitySelected EventType = "personality_selected"
	EventTemplateApplied     EventType = "template_applied"
	EventTemplateRemoved     EventType = "template_removed"
	EventTemplateBrowsed     EventType = "template_browsed"

	// Rules and guardrails.
	EventRuleAdded        EventType = "rule_added"
	EventRuleRemoved      EventType = "rule_removed"
	EventRuleEdited       EventType = "rule_edited"
	EventRuleReordered    EventType = "rule_reordered"
	EventGuardrailToggled EventType = "guardrail_toggled"

	// Test conversations.
	EventTestConversationStarted EventType = "test_conversation_started"
	EventTestMessageSent         EventType = "test_message_sent"
	EventTestResponseReceived    EventType = "test_response_received"
	EventTestConversationEnded   EventType = "test_conversation_ended"
	EventTestConversationReset   EventType = "test_conversation_reset"
	EventPostTestEdit            EventType = "post_test_edit"

	// Reflection.
	EventReflectionPromptShown       EventType = "reflection_prompt_shown"
	EventReflectionResponseSubmitted EventType = "reflection_response_submitted"
	EventReflectionSkipped           EventType = "reflection_skipped"

	// Saves and versions.
	EventDraftSaved          EventType = "draft_saved"
	EventAutosaveTriggered   EventType = "autosave_triggered"
	EventSubmissionCompleted EventType = "submission_completed"
	EventSaveFailed          EventType = "save_failed"
	EventVersionRestored     EventType = "version_restored"
	EventSnapshotViewed      EventType = "snapshot_viewed"
)

// Category returns the category this event type belongs to. The mapping is
// total: every declared event type maps to exactly one category.
func (t EventType) Category() Category {
	switch t {
	case EventSessionStart, EventSessionPause, EventSessionResume, EventSessionEnd:
		return CategorySession
	case EventTabSwitch, EventTabTimeRecorded, EventStepAdvanced, EventStepBack,
		EventPreviewOpened, EventPreviewClosed:
		return CategoryNavigation
	case EventFieldFocus, EventFieldBlur, EventFieldChange, EventFieldCleared,
		EventTemperatureAdjusted, EventToggleChanged:
		return CategoryField
	case EventRoleSelected, EventPersonalitySelected, EventTemplateApplied,
		EventTemplateRemoved, EventTemplateBrowsed:
		return CategoryTemplate
	case EventRuleAdded, EventRuleRemoved, EventRuleEdited, EventRuleReordered,
		EventGuardrailToggled:
		return CategoryRule
	case EventTestConversationStarted, EventTestMessageSent, EventTestResponseReceived,
		EventTestConversationEnded, EventTestConversationReset, EventPostTestEdit:
		return CategoryTest
	case EventReflectionPromptShown, EventReflectionResponseSubmitted, EventReflectionSkipped:
		return CategoryReflection
	case EventDraftSaved, EventAutosaveTriggered, EventSubmissionCompleted,
		EventSaveFailed, EventVersionRestored, EventSnapshotViewed:
		return CategorySave
	}
	return ""
}

// IsValid reports whether t is a declared event type.
func (t EventType) IsValid() bool {
	return t.Category() != ""
}

// EventTypes returns every declared event type.
func EventTypes() []EventType {
	return []EventType{
		EventSessionStart, EventSessionPause, EventSessionResume, EventSessionEnd,
		EventTabSwitch, EventTabTimeRecorded, EventStepAdvanced, EventStepBack,
		EventPreviewOpened, EventPreviewClosed,
		EventFieldFocus, EventFieldBlur, EventFieldChange, EventFieldCleared,
		EventTemperatureAdjusted, EventToggleChanged,
		EventRoleSelected, EventPersonalitySelected, EventTemplateApplied,
		EventTemplateRemoved, EventTemplateBrowsed,
		EventRuleAdded, EventRuleRemoved, EventRuleEdited, EventRuleReordered,
		EventGuardrailToggled,
		EventTestConversationStarted, EventTestMessageSent, EventTestResponseReceived,
		EventTestConversationEnded, EventTestConversationReset, EventPostTestEdit,
		EventReflectionPromptShown, EventReflectionResponseSubmitted, EventReflectionSkipped,
		EventDraftSaved, EventAutosaveTriggered, EventSubmissionCompleted,
		EventSaveFailed, EventVersionRestored, EventSnapshotViewed,
	}
}

// DesignEvent is the atomic telemetry unit: one interaction with the design
// builder, stamped with session and timing context at emission time.
type DesignEvent struct {
	EventType       EventType `json:"event_type"`
	Category        Category  `json:"event_category"`
	Timestamp       time.Time `json:"timestamp"`
	SessionID       string    `json:"session_id"`
	DesignSessionID string    `json:"design_session_id"`
	// Seq is assigned by the client, monotonically increasing per design
	// session. Together with DesignSessionID it deduplicates batches that
	// were delivered but reported as failed.
	Seq             int64   `json:"seq"`
	UserID          string  `json:"user_id"`
	AssignmentID    string  `json:"assignment_id"`
	AgentConfigID   string  `json:"agent_config_id,omitempty"`
	Version         int     `json:"version"`
	ActiveTab       string  `json:"active_tab,omitempty"`
	TotalDesignTime int64   `json:"total_design_time"`
	Payload         Payload `json:"payload,omitempty"`
}

// EventBatch is the set of events transmitted in one flush.
type EventBatch struct {
	BatchID string        `json:"batch_id"`
	Events  []DesignEvent `json:"events"`
}

// UnmarshalJSON decodes the envelope and then dispatches the payload to the
// concrete type declared for the event type.
func (e *DesignEvent) UnmarshalJSON(data []byte) error {
	type envelope DesignEvent
	aux := struct {
		*envelope
		Payload json.RawMessage `json:"payload,omitempty"`
	}{envelope: (*envelope)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode event envelope: %w", err)
	}

	e.Payload = nil
	if len(aux.Payload) == 0 || string(aux.Payload) == "null" {
		return nil
	}

	p := newPayload(e.EventType)
	if p == nil {
		// Event type carries no structured payload; ignore extras.
		return nil
	}
	if err := json.Unmarshal(aux.Payload, p); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	e.Payload = p
	return nil
}
