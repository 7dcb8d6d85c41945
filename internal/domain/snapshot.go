package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigSnapshot is a full, immutable copy of the design configuration,
// captured inside draft_saved and submission_completed events. It is never
// mutated after creation; point-in-time viewers and the snapshot differ are
// its only consumers.
//
// Temperature is kept as the client serialized it ("0.7" and "0.70" are the
// same temperature); the differ compares it numerically.
type ConfigSnapshot struct {
	AgentName        string   `json:"agent_name"`
	AgentDescription string   `json:"agent_description"`
	Role             string   `json:"role"`
	Personality      string   `json:"personality"`
	SystemPrompt     string   `json:"system_prompt"`
	WelcomeMessage   string   `json:"welcome_message"`
	Model            string   `json:"model"`
	ResponseStyle    string   `json:"response_style"`
	KnowledgeLevel   string   `json:"knowledge_level"`
	Temperature      string   `json:"temperature,omitempty"`
	Rules            []string `json:"rules,omitempty"`
	Guardrails       []string `json:"guardrails,omitempty"`
	ExampleQuestions []string `json:"example_questions,omitempty"`
}

// UnmarshalJSON accepts temperature as either a JSON number or a string;
// clients have historically sent both.
func (s *ConfigSnapshot) UnmarshalJSON(data []byte) error {
	type snapshot ConfigSnapshot
	aux := struct {
		*snapshot
		Temperature json.RawMessage `json:"temperature,omitempty"`
	}{snapshot: (*snapshot)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode config snapshot: %w", err)
	}

	raw := strings.TrimSpace(string(aux.Temperature))
	s.Temperature = strings.Trim(raw, `"`)
	if s.Temperature == "null" {
		s.Temperature = ""
	}
	return nil
}
