package diff

import (
	"reflect"
	"testing"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
)

func named(name string, ts time.Time, cfg *domain.ConfigSnapshot) NamedSnapshot {
	return NamedSnapshot{Name: name, Timestamp: ts, Config: cfg}
}

func fieldByName(t *testing.T, res Result, field string) FieldChange {
	t.Helper()
	for _, fc := range res.Fields {
		if fc.Field == field {
			return fc
		}
	}
	t.Fatalf("field %q missing from result", field)
	return FieldChange{}
}

func TestCompareArgumentOrderIndependent(t *testing.T) {
	early := named("draft 1", time.Unix(1700000000, 0), &domain.ConfigSnapshot{AgentName: "Maya"})
	late := named("draft 2", time.Unix(1700000600, 0), &domain.ConfigSnapshot{AgentName: "Milo"})

	forward := Compare(early, late)
	reversed := Compare(late, early)

	if !reflect.DeepEqual(forward, reversed) {
		t.Error("result must not depend on argument order")
	}
	if forward.Before.Name != "draft 1" || forward.After.Name != "draft 2" {
		t.Errorf("earlier snapshot must be 'before': %+v", forward.Before)
	}

	name := fieldByName(t, forward, "agent_name")
	if name.Before != "Maya" || name.After != "Milo" || !name.Changed {
		t.Errorf("unexpected agent_name change: %+v", name)
	}
}

func TestCompareEqualTimestampsBreakTieByName(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	a := named("alpha", ts, &domain.ConfigSnapshot{AgentName: "A"})
	b := named("beta", ts, &domain.ConfigSnapshot{AgentName: "B"})

	res := Compare(b, a)
	if res.Before.Name != "alpha" {
		t.Errorf("expected name tie-break, before = %q", res.Before.Name)
	}
}

func TestCompareCoversAllFieldsInOrder(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{}),
	)
	if len(res.Fields) != len(DiffFields) {
		t.Fatalf("expected %d fields, got %d", len(DiffFields), len(res.Fields))
	}
	for i, fc := range res.Fields {
		if fc.Field != DiffFields[i] {
			t.Errorf("field %d: expected %q, got %q", i, DiffFields[i], fc.Field)
		}
	}
}

func TestCompareIdenticalSnapshotsNoChanges(t *testing.T) {
	cfg := &domain.ConfigSnapshot{
		AgentName:   "Maya",
		Temperature: "0.7",
		Rules:       []string{"be kind", "stay on topic"},
	}
	res := Compare(
		named("a", time.Unix(0, 0), cfg),
		named("b", time.Unix(1, 0), cfg),
	)
	if len(res.ChangedFields) != 0 {
		t.Errorf("expected no changed fields, got %v", res.ChangedFields)
	}
}

func TestCompareListSetBased(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{Rules: []string{"x", "y"}}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{Rules: []string{"y", "z"}}),
	)

	rules := fieldByName(t, res, "rules")
	if !rules.Changed {
		t.Error("expected rules to be marked changed")
	}
	if !reflect.DeepEqual(rules.Added, []string{"z"}) {
		t.Errorf("expected added [z], got %v", rules.Added)
	}
	if !reflect.DeepEqual(rules.Removed, []string{"x"}) {
		t.Errorf("expected removed [x], got %v", rules.Removed)
	}
	if !reflect.DeepEqual(rules.Unchanged, []string{"y"}) {
		t.Errorf("expected unchanged [y], got %v", rules.Unchanged)
	}
}

func TestCompareListOrderInsensitive(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{Guardrails: []string{"no pii", "no slurs"}}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{Guardrails: []string{"no slurs", "no pii"}}),
	)
	if fc := fieldByName(t, res, "guardrails"); fc.Changed {
		t.Errorf("reordered list must not count as a change: %+v", fc)
	}
}

func TestCompareNumericTemperature(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{Temperature: "0.7"}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{Temperature: "0.70"}),
	)
	if fc := fieldByName(t, res, "temperature"); fc.Changed {
		t.Errorf("numerically equal temperatures must not change: %+v", fc)
	}

	res = Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{Temperature: "0.7"}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{Temperature: "0.9"}),
	)
	if fc := fieldByName(t, res, "temperature"); !fc.Changed {
		t.Error("different temperatures must be a change")
	}

	// Unparseable values degrade to string comparison.
	res = Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{Temperature: "warm"}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{Temperature: "warm"}),
	)
	if fc := fieldByName(t, res, "temperature"); fc.Changed {
		t.Error("equal non-numeric temperatures must not change")
	}
}

func TestComparePlaceholders(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{AgentName: "Maya", Rules: []string{"r1"}}),
	)

	name := fieldByName(t, res, "agent_name")
	if name.Before != PlaceholderScalar {
		t.Errorf("expected %q for missing scalar, got %q", PlaceholderScalar, name.Before)
	}
	rules := fieldByName(t, res, "rules")
	if rules.Before != PlaceholderList {
		t.Errorf("expected %q for empty list, got %q", PlaceholderList, rules.Before)
	}
	if rules.After != "r1" {
		t.Errorf("expected joined list display, got %q", rules.After)
	}
}

func TestCompareNilConfigTreatedAsEmpty(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), nil),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{AgentName: "Maya"}),
	)
	if len(res.ChangedFields) != 1 || res.ChangedFields[0] != "agent_name" {
		t.Errorf("expected only agent_name changed, got %v", res.ChangedFields)
	}
}

func TestChangedFieldsFollowFieldOrder(t *testing.T) {
	res := Compare(
		named("a", time.Unix(0, 0), &domain.ConfigSnapshot{
			AgentName:   "Maya",
			Temperature: "0.3",
		}),
		named("b", time.Unix(1, 0), &domain.ConfigSnapshot{
			AgentName:   "Milo",
			Temperature: "0.8",
			Rules:       []string{"new rule"},
		}),
	)
	want := []string{"agent_name", "temperature", "rules"}
	if !reflect.DeepEqual(res.ChangedFields, want) {
		t.Errorf("expected %v, got %v", want, res.ChangedFields)
	}
}
