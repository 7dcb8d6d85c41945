// Package diff compares two point-in-time configuration snapshots field by
// field.
package diff

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
)

// Placeholder rendering for missing snapshot data. Malformed or absent
// values degrade to these, never to an error.
const (
	PlaceholderScalar = "Not set"
	PlaceholderList   = "Empty"
)

// DiffFields is the fixed, ordered list of diffable configuration fields:
// nine text scalars, temperature compared numerically, and three string
// lists compared as sets.
var DiffFields = []string{
	"agent_name",
	"agent_description",
	"role",
	"personality",
	"system_prompt",
	"welcome_message",
	"model",
	"response_style",
	"knowledge_level",
	"temperature",
	"rules",
	"guardrails",
	"example_questions",
}

// NamedSnapshot is one comparison input: a snapshot with the label and
// capture time it was saved under.
type NamedSnapshot struct {
	Name      string                 `json:"name"`
	Timestamp time.Time              `json:"timestamp"`
	Config    *domain.ConfigSnapshot `json:"config"`
}

// FieldChange describes one field's before/after state. For list fields the
// set-based Added/Removed/Unchanged breakdown is populated; Before/After
// carry display values with placeholders applied.
type FieldChange struct {
	Field     string   `json:"field"`
	Changed   bool     `json:"changed"`
	Before    string   `json:"before"`
	After     string   `json:"after"`
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
}

// Ref labels one side of a diff result.
type Ref struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is a full comparison over the fixed field list.
type Result struct {
	Before        Ref           `json:"before"`
	After         Ref           `json:"after"`
	Fields        []FieldChange `json:"fields"`
	ChangedFields []string      `json:"changed_fields"`
}

// Compare diffs two named snapshots. The pair is reordered internally so
// the earlier timestamp is "before"; argument order never affects the
// result. Equal timestamps fall back to name order to stay deterministic.
func Compare(a, b NamedSnapshot) Result {
	if b.Timestamp.Before(a.Timestamp) ||
		(b.Timestamp.Equal(a.Timestamp) && b.Name < a.Name) {
		a, b = b, a
	}

	before := a.Config
	if before == nil {
		before = &domain.ConfigSnapshot{}
	}
	after := b.Config
	if after == nil {
		after = &domain.ConfigSnapshot{}
	}

	res := Result{
		Before: Ref{Name: a.Name, Timestamp: a.Timestamp},
		After:  Ref{Name: b.Name, Timestamp: b.Timestamp},
	}

	for _, field := range DiffFields {
		var fc FieldChange
		switch field {
		case "temperature":
			fc = compareNumeric(field, before.Temperature, after.Temperature)
		case "rules":
			fc = compareList(field, before.Rules, after.Rules)
		case "guardrails":
			fc = compareList(field, before.Guardrails, after.Guardrails)
		case "example_questions":
			fc = compareList(field, before.ExampleQuestions, after.ExampleQuestions)
		default:
			fc = compareScalar(field, scalarValue(before, field), scalarValue(after, field))
		}
		res.Fields = append(res.Fields, fc)
		if fc.Changed {
			res.ChangedFields = append(res.ChangedFields, field)
		}
	}
	return res
}

func scalarValue(s *domain.ConfigSnapshot, field string) string {
	switch field {
	case "agent_name":
		return s.AgentName
	case "agent_description":
		return s.AgentDescription
	case "role":
		return s.Role
	case "personality":
		return s.Personality
	case "system_prompt":
		return s.SystemPrompt
	case "welcome_message":
		return s.WelcomeMessage
	case "model":
		return s.Model
	case "response_style":
		return s.ResponseStyle
	case "knowledge_level":
		return s.KnowledgeLevel
	}
	return ""
}

// DisplayScalar renders a scalar value for viewers, substituting the
// placeholder for missing data.
func DisplayScalar(v string) string {
	if strings.TrimSpace(v) == "" {
		return PlaceholderScalar
	}
	return v
}

// DisplayList renders a string list for viewers.
func DisplayList(vs []string) string {
	if len(vs) == 0 {
		return PlaceholderList
	}
	return strings.Join(vs, ", ")
}

func compareScalar(field, before, after string) FieldChange {
	return FieldChange{
		Field:   field,
		Changed: strings.TrimSpace(before) != strings.TrimSpace(after),
		Before:  DisplayScalar(before),
		After:   DisplayScalar(after),
	}
}

// compareNumeric treats values as equal when they parse to the same number,
// so a serialization round-trip ("0.7" vs "0.70") is not a change. Values
// that fail to parse fall back to string comparison.
func compareNumeric(field, before, after string) FieldChange {
	changed := strings.TrimSpace(before) != strings.TrimSpace(after)
	bf, errB := strconv.ParseFloat(strings.TrimSpace(before), 64)
	af, errA := strconv.ParseFloat(strings.TrimSpace(after), 64)
	if errB == nil && errA == nil {
		changed = bf != af
	}
	return FieldChange{
		Field:   field,
		Changed: changed,
		Before:  DisplayScalar(before),
		After:   DisplayScalar(after),
	}
}

// compareList is set-based: order-insensitive and duplicate-collapsing.
// Equal-count duplicate churn of the same string is invisible here, which
// matches how the snapshot viewer presents list fields.
func compareList(field string, before, after []string) FieldChange {
	bset := toSet(before)
	aset := toSet(after)

	var added, removed, unchanged []string
	for v := range aset {
		if _, ok := bset[v]; ok {
			unchanged = append(unchanged, v)
		} else {
			added = append(added, v)
		}
	}
	for v := range bset {
		if _, ok := aset[v]; !ok {
			removed = append(removed, v)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(unchanged)

	return FieldChange{
		Field:     field,
		Changed:   len(added) > 0 || len(removed) > 0,
		Before:    DisplayList(before),
		After:     DisplayList(after),
		Added:     added,
		Removed:   removed,
		Unchanged: unchanged,
	}
}

func toSet(vs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}
