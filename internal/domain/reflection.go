package domain

// ReflectionPrompt is one of the fixed reflective free-text questions shown
// during the design workflow.
type ReflectionPrompt struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Trigger  string `json:"trigger"`
}

var reflectionPrompts = []ReflectionPrompt{
	{
		ID:       "pre_design_goal",
		Question: "What do you want your teaching agent to help students accomplish?",
		Trigger:  "workflow_entry",
	},
	{
		ID:       "role_rationale",
		Question: "Why did you choose this role for your agent?",
		Trigger:  "role_selected",
	},
	{
		ID:       "post_test_observation",
		Question: "What surprised you about how your agent responded during testing?",
		Trigger:  "test_conversation_ended",
	},
	{
		ID:       "revision_reasoning",
		Question: "What did you change after testing, and why?",
		Trigger:  "post_test_edit",
	},
	{
		ID:       "final_confidence",
		Question: "How confident are you that your agent will behave as intended?",
		Trigger:  "submission_completed",
	},
}

// ReflectionPrompts returns the fixed prompt registry in display order.
func ReflectionPrompts() []ReflectionPrompt {
	out := make([]ReflectionPrompt, len(reflectionPrompts))
	copy(out, reflectionPrompts)
	return out
}

// ReflectionPromptByID looks up a prompt definition. A missing id is a
// soft-fail: callers render nothing rather than erroring.
func ReflectionPromptByID(id string) (ReflectionPrompt, bool) {
	for _, p := range reflectionPrompts {
		if p.ID == id {
			return p, true
		}
	}
	return ReflectionPrompt{}, false
}
