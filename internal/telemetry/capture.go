package telemetry

import (
	"github.com/mohsaqr/designtrace/internal/domain"
)

// Typed capture calls, one per instrumented interaction. Each stamps the
// envelope context (ids, active tab, running design time) and enqueues.
// Calls made outside an active or paused session are dropped.

// captureLocked guards capture calls against emission before Start or after
// End. It must be called with the mutex held.
func (r *Recorder) captureLocked(t domain.EventType, p domain.Payload) {
	if r.state != StateActive && r.state != StatePaused {
		r.logger.Debug("capture outside active session dropped",
			"event_type", string(t), "state", r.state.String())
		return
	}
	r.emitLocked(t, p)
}

func (r *Recorder) capture(t domain.EventType, p domain.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captureLocked(t, p)
}

// FieldFocus records focusing a configuration field.
func (r *Recorder) FieldFocus(fieldName string) {
	r.capture(domain.EventFieldFocus, &domain.FieldPayload{FieldName: fieldName})
}

// FieldBlur records leaving a configuration field.
func (r *Recorder) FieldBlur(fieldName string) {
	r.capture(domain.EventFieldBlur, &domain.FieldPayload{FieldName: fieldName})
}

// FieldChange records an edit. Previous and new values are truncated to
// 500 runes before they enter the queue.
func (r *Recorder) FieldChange(fieldName, previousValue, newValue string) {
	r.capture(domain.EventFieldChange, &domain.FieldChangePayload{
		FieldName:      fieldName,
		PreviousValue:  domain.Truncate(previousValue),
		NewValue:       domain.Truncate(newValue),
		CharacterCount: len([]rune(newValue)),
	})
}

// FieldCleared records wiping a field back to empty.
func (r *Recorder) FieldCleared(fieldName string) {
	r.capture(domain.EventFieldCleared, &domain.FieldPayload{FieldName: fieldName})
}

// TemperatureAdjusted records a temperature slider change.
func (r *Recorder) TemperatureAdjusted(previous, current float64) {
	r.capture(domain.EventTemperatureAdjusted, &domain.TemperaturePayload{
		PreviousValue: previous,
		NewValue:      current,
	})
}

// ToggleChanged records flipping a boolean setting.
func (r *Recorder) ToggleChanged(fieldName string, enabled bool) {
	r.capture(domain.EventToggleChanged, &domain.TogglePayload{
		FieldName: fieldName,
		Enabled:   enabled,
	})
}

// StepAdvanced records moving forward through the workflow steps.
func (r *Recorder) StepAdvanced(previousStep, newStep string) {
	r.capture(domain.EventStepAdvanced, &domain.StepPayload{
		PreviousStep: previousStep,
		NewStep:      newStep,
	})
}

// StepBack records moving backward through the workflow steps.
func (r *Recorder) StepBack(previousStep, newStep string) {
	r.capture(domain.EventStepBack, &domain.StepPayload{
		PreviousStep: previousStep,
		NewStep:      newStep,
	})
}

// PreviewOpened records opening the agent preview pane.
func (r *Recorder) PreviewOpened() {
	r.capture(domain.EventPreviewOpened, nil)
}

// PreviewClosed records closing the agent preview pane.
func (r *Recorder) PreviewClosed() {
	r.capture(domain.EventPreviewClosed, nil)
}

// RoleSelected records picking an agent role template.
func (r *Recorder) RoleSelected(role string) {
	r.capture(domain.EventRoleSelected, &domain.RoleSelectedPayload{RoleSelected: role})
}

// PersonalitySelected records picking a personality template.
func (r *Recorder) PersonalitySelected(personality string) {
	r.capture(domain.EventPersonalitySelected, &domain.PersonalitySelectedPayload{
		PersonalitySelected: personality,
	})
}

// TemplateApplied records applying a prompt template.
func (r *Recorder) TemplateApplied(templateName string) {
	r.capture(domain.EventTemplateApplied, &domain.TemplatePayload{TemplateName: templateName})
}

// TemplateRemoved records removing an applied template.
func (r *Recorder) TemplateRemoved(templateName string) {
	r.capture(domain.EventTemplateRemoved, &domain.TemplatePayload{TemplateName: templateName})
}

// TemplateBrowsed records opening a template in the gallery.
func (r *Recorder) TemplateBrowsed(templateName string) {
	r.capture(domain.EventTemplateBrowsed, &domain.TemplatePayload{TemplateName: templateName})
}

// RuleAdded records adding a behavior rule.
func (r *Recorder) RuleAdded(index int, ruleText string) {
	r.capture(domain.EventRuleAdded, &domain.RulePayload{
		Index:    index,
		RuleText: domain.Truncate(ruleText),
	})
}

// RuleRemoved records deleting a behavior rule.
func (r *Recorder) RuleRemoved(index int, ruleText string) {
	r.capture(domain.EventRuleRemoved, &domain.RulePayload{
		Index:    index,
		RuleText: domain.Truncate(ruleText),
	})
}

// RuleEdited records rewording a behavior rule.
func (r *Recorder) RuleEdited(index int, previous, current string) {
	r.capture(domain.EventRuleEdited, &domain.RulePayload{
		Index:         index,
		RuleText:      domain.Truncate(current),
		PreviousValue: domain.Truncate(previous),
	})
}

// RuleReordered records moving a rule within the list.
func (r *Recorder) RuleReordered(fromIndex, toIndex int) {
	r.capture(domain.EventRuleReordered, &domain.RuleReorderedPayload{
		FromIndex: fromIndex,
		ToIndex:   toIndex,
	})
}

// GuardrailToggled records enabling or disabling a guardrail.
func (r *Recorder) GuardrailToggled(guardrail string, enabled bool) {
	r.capture(domain.EventGuardrailToggled, &domain.GuardrailPayload{
		Guardrail: guardrail,
		Enabled:   enabled,
	})
}

// TestConversationStarted records beginning a test run. It also arms
// post-test-edit tracking for the rest of the session.
func (r *Recorder) TestConversationStarted(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateActive || r.state == StatePaused {
		r.testConversationSeen = true
	}
	r.captureLocked(domain.EventTestConversationStarted, &domain.TestConversationPayload{
		TestConversationID: conversationID,
	})
}

// TestMessageSent records one learner message in a test run.
func (r *Recorder) TestMessageSent(conversationID string, messageLength int) {
	r.capture(domain.EventTestMessageSent, &domain.TestMessagePayload{
		TestConversationID: conversationID,
		MessageLength:      messageLength,
	})
}

// TestResponseReceived records the agent answering in a test run.
func (r *Recorder) TestResponseReceived(conversationID string) {
	r.capture(domain.EventTestResponseReceived, &domain.TestConversationPayload{
		TestConversationID: conversationID,
	})
}

// TestConversationEnded records closing a test run.
func (r *Recorder) TestConversationEnded(conversationID string) {
	r.capture(domain.EventTestConversationEnded, &domain.TestConversationPayload{
		TestConversationID: conversationID,
	})
}

// TestConversationReset records wiping a test run to start over.
func (r *Recorder) TestConversationReset(conversationID string) {
	r.capture(domain.EventTestConversationReset, &domain.TestConversationPayload{
		TestConversationID: conversationID,
	})
}

// PostTestEdit records an iteration: an edit made strictly after at least
// one test run has begun this session. Calls before any test conversation
// are dropped, which keeps the server-side iteration count honest.
func (r *Recorder) PostTestEdit(fieldName, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.testConversationSeen {
		return
	}
	r.captureLocked(domain.EventPostTestEdit, &domain.PostTestEditPayload{
		FieldName:          fieldName,
		TestConversationID: conversationID,
	})
}

// ReflectionPromptShown records displaying a reflection prompt.
func (r *Recorder) ReflectionPromptShown(promptID string) {
	r.capture(domain.EventReflectionPromptShown, &domain.ReflectionPromptPayload{
		ReflectionPromptID: promptID,
	})
}

// ReflectionResponseSubmitted records a reflective free-text answer,
// truncated to 500 runes.
func (r *Recorder) ReflectionResponseSubmitted(promptID, response string) {
	r.capture(domain.EventReflectionResponseSubmitted, &domain.ReflectionResponsePayload{
		ReflectionPromptID: promptID,
		ReflectionResponse: domain.Truncate(response),
	})
}

// ReflectionSkipped records dismissing a reflection prompt unanswered.
func (r *Recorder) ReflectionSkipped(promptID string) {
	r.capture(domain.EventReflectionSkipped, &domain.ReflectionPromptPayload{
		ReflectionPromptID: promptID,
	})
}

// DraftSaved records a draft save with the full configuration snapshot
// embedded for point-in-time viewing and diffing.
func (r *Recorder) DraftSaved(snapshot *domain.ConfigSnapshot) {
	r.capture(domain.EventDraftSaved, &domain.SavePayload{AgentConfigSnapshot: snapshot})
}

// AutosaveTriggered records a background autosave. No snapshot is embedded;
// snapshots are captured only on explicit saves and submission.
func (r *Recorder) AutosaveTriggered() {
	r.capture(domain.EventAutosaveTriggered, nil)
}

// SubmissionCompleted records the final submission with its snapshot.
func (r *Recorder) SubmissionCompleted(snapshot *domain.ConfigSnapshot) {
	r.capture(domain.EventSubmissionCompleted, &domain.SavePayload{AgentConfigSnapshot: snapshot})
}

// SaveFailed records a failed save attempt.
func (r *Recorder) SaveFailed(reason string) {
	r.capture(domain.EventSaveFailed, &domain.SaveFailedPayload{Reason: reason})
}

// VersionRestored records rolling back to an earlier revision.
func (r *Recorder) VersionRestored(restoredVersion int) {
	r.capture(domain.EventVersionRestored, &domain.VersionRestoredPayload{
		RestoredVersion: restoredVersion,
	})
}

// SnapshotViewed records opening a point-in-time snapshot.
func (r *Recorder) SnapshotViewed(snapshotTimestamp int64) {
	r.capture(domain.EventSnapshotViewed, &domain.SnapshotViewedPayload{
		SnapshotTimestamp: snapshotTimestamp,
	})
}
