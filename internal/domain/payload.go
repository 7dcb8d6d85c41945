package domain

import (
	"encoding/json"
	"fmt"
)

// Payload carries the event-specific fields of a DesignEvent. Each event
// type that needs extra fields declares its own payload struct; types whose
// envelope already says everything (session start/resume, preview toggles,
// autosave) carry none.
type Payload interface {
	isPayload()
}

// MaxValueLen is the rune ceiling applied to free-text payload values
// (previous/new field values, reflection responses).
const MaxValueLen = 500

// Truncate caps s at MaxValueLen runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxValueLen {
		return s
	}
	return string(r[:MaxValueLen])
}

// TabSwitchPayload records a move between workflow tabs.
type TabSwitchPayload struct {
	PreviousTab string `json:"previous_tab"`
	NewTab      string `json:"new_tab"`
}

// TabTimePayload records dwell time on a tab before leaving it.
type TabTimePayload struct {
	Tab     string `json:"tab"`
	Seconds int64  `json:"seconds"`
}

// StepPayload records advancing or backtracking through workflow steps.
type StepPayload struct {
	PreviousStep string `json:"previous_step,omitempty"`
	NewStep      string `json:"new_step"`
}

// FieldPayload names the field for focus/blur/clear events.
type FieldPayload struct {
	FieldName string `json:"field_name"`
}

// FieldChangePayload records an edit to a configuration field.
type FieldChangePayload struct {
	FieldName      string `json:"field_name"`
	PreviousValue  string `json:"previous_value"`
	NewValue       string `json:"new_value"`
	CharacterCount int    `json:"character_count"`
}

// TemperaturePayload records a temperature slider adjustment.
type TemperaturePayload struct {
	PreviousValue float64 `json:"previous_value"`
	NewValue      float64 `json:"new_value"`
}

// TogglePayload records a boolean setting flip.
type TogglePayload struct {
	FieldName string `json:"field_name"`
	Enabled   bool   `json:"enabled"`
}

// RoleSelectedPayload records picking an agent role template.
type RoleSelectedPayload struct {
	RoleSelected string `json:"role_selected"`
}

// PersonalitySelectedPayload records picking a personality template.
type PersonalitySelectedPayload struct {
	PersonalitySelected string `json:"personality_selected"`
}

// TemplatePayload names a prompt template for apply/remove/browse events.
type TemplatePayload struct {
	TemplateName string `json:"template_name"`
}

// RulePayload records adding, removing, or editing a behavior rule.
type RulePayload struct {
	Index         int    `json:"index"`
	RuleText      string `json:"rule_text,omitempty"`
	PreviousValue string `json:"previous_value,omitempty"`
}

// RuleReorderedPayload records moving a rule within the list.
type RuleReorderedPayload struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// GuardrailPayload records enabling or disabling a guardrail.
type GuardrailPayload struct {
	Guardrail string `json:"guardrail"`
	Enabled   bool   `json:"enabled"`
}

// TestConversationPayload identifies a test-run conversation.
type TestConversationPayload struct {
	TestConversationID string `json:"test_conversation_id"`
}

// TestMessagePayload records one message exchanged during a test run.
// Message content itself stays with the chat collaborator; only the
// length is logged.
type TestMessagePayload struct {
	TestConversationID string `json:"test_conversation_id"`
	MessageLength      int    `json:"message_length"`
}

// PostTestEditPayload records an edit made after a test run began.
type PostTestEditPayload struct {
	FieldName          string `json:"field_name"`
	TestConversationID string `json:"test_conversation_id,omitempty"`
}

// ReflectionPromptPayload identifies a reflection prompt that was shown
// or skipped.
type ReflectionPromptPayload struct {
	ReflectionPromptID string `json:"reflection_prompt_id"`
}

// ReflectionResponsePayload carries a submitted reflection answer.
type ReflectionResponsePayload struct {
	ReflectionPromptID string `json:"reflection_prompt_id"`
	ReflectionResponse string `json:"reflection_response"`
}

// SavePayload embeds the full configuration snapshot captured on
// draft_saved and submission_completed.
type SavePayload struct {
	AgentConfigSnapshot *ConfigSnapshot `json:"agent_config_snapshot,omitempty"`
}

// SaveFailedPayload records why a save attempt failed.
type SaveFailedPayload struct {
	Reason string `json:"reason"`
}

// VersionRestoredPayload records rolling the configuration back to an
// earlier revision.
type VersionRestoredPayload struct {
	RestoredVersion int `json:"restored_version"`
}

// SnapshotViewedPayload records opening a point-in-time snapshot viewer.
type SnapshotViewedPayload struct {
	SnapshotTimestamp int64 `json:"snapshot_timestamp"`
}

func (*TabSwitchPayload) isPayload()           {}
func (*TabTimePayload) isPayload()             {}
func (*StepPayload) isPayload()                {}
func (*FieldPayload) isPayload()               {}
func (*FieldChangePayload) isPayload()         {}
func (*TemperaturePayload) isPayload()         {}
func (*TogglePayload) isPayload()              {}
func (*RoleSelectedPayload) isPayload()        {}
func (*PersonalitySelectedPayload) isPayload() {}
func (*TemplatePayload) isPayload()            {}
func (*RulePayload) isPayload()                {}
func (*RuleReorderedPayload) isPayload()       {}
func (*GuardrailPayload) isPayload()           {}
func (*TestConversationPayload) isPayload()    {}
func (*TestMessagePayload) isPayload()         {}
func (*PostTestEditPayload) isPayload()        {}
func (*ReflectionPromptPayload) isPayload()    {}
func (*ReflectionResponsePayload) isPayload()  {}
func (*SavePayload) isPayload()                {}
func (*SaveFailedPayload) isPayload()          {}
func (*VersionRestoredPayload) isPayload()     {}
func (*SnapshotViewedPayload) isPayload()      {}

// DecodePayload decodes stored payload JSON into the concrete type declared
// for the event type. Types that carry no payload decode to nil.
func DecodePayload(t EventType, data []byte) (Payload, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	p := newPayload(t)
	if p == nil {
		return nil, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// newPayload returns a zero payload of the concrete type declared for the
// event type, or nil for types that carry none.
func newPayload(t EventType) Payload {
	switch t {
	case EventTabSwitch:
		return &TabSwitchPayload{}
	case EventTabTimeRecorded:
		return &TabTimePayload{}
	case EventStepAdvanced, EventStepBack:
		return &StepPayload{}
	case EventFieldFocus, EventFieldBlur, EventFieldCleared:
		return &FieldPayload{}
	case EventFieldChange:
		return &FieldChangePayload{}
	case EventTemperatureAdjusted:
		return &TemperaturePayload{}
	case EventToggleChanged:
		return &TogglePayload{}
	case EventRoleSelected:
		return &RoleSelectedPayload{}
	case EventPersonalitySelected:
		return &PersonalitySelectedPayload{}
	case EventTemplateApplied, EventTemplateRemoved, EventTemplateBrowsed:
		return &TemplatePayload{}
	case EventRuleAdded, EventRuleRemoved, EventRuleEdited:
		return &RulePayload{}
	case EventRuleReordered:
		return &RuleReorderedPayload{}
	case EventGuardrailToggled:
		return &GuardrailPayload{}
	case EventTestConversationStarted, EventTestResponseReceived,
		EventTestConversationEnded, EventTestConversationReset:
		return &TestConversationPayload{}
	case EventTestMessageSent:
		return &TestMessagePayload{}
	case EventPostTestEdit:
		return &PostTestEditPayload{}
	case EventReflectionPromptShown, EventReflectionSkipped:
		return &ReflectionPromptPayload{}
	case EventReflectionResponseSubmitted:
		return &ReflectionResponsePayload{}
	case EventDraftSaved, EventSubmissionCompleted:
		return &SavePayload{}
	case EventSaveFailed:
		return &SaveFailedPayload{}
	case EventVersionRestored:
		return &VersionRestoredPayload{}
	case EventSnapshotViewed:
		return &SnapshotViewedPayload{}
	}
	return nil
}
