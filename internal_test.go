package veil

import (
	"testing"
)

// --- flattenWhere Tests ---

func TestFlattenWhere_Nil(t *testing.T) {
	result := flattenWhere(nil)
	if result != nil {
		t.Errorf("expected nil for nil predicate, got %v", result)
	}
}

func TestFlattenWhere_Empty(t *testing.T) {
	result := flattenWhere(Where{})
	if len(result) != 0 {
		t.Errorf("expected empty predicate, got %v", result)
	}
}

func TestFlattenWhere_ScalarsCopied(t *testing.T) {
	result := flattenWhere(Where{"id": "A", "n": 3})
	if result["id"] != "A" || result["n"] != 3 {
		t.Errorf("scalars not copied as-is: %v", result)
	}
}

func TestFlattenWhere_HoistsGroup(t *testing.T) {
	result := flattenWhere(Where{
		"k1_k2": Where{"k1": "v1", "k2": "v2"},
	})

	if _, ok := result["k1_k2"]; ok {
		t.Error("synthetic outer key was not discarded")
	}
	if result["k1"] != "v1" || result["k2"] != "v2" {
		t.Errorf("inner entries not hoisted: %v", result)
	}
}

func TestFlattenWhere_NullIsScalar(t *testing.T) {
	result := flattenWhere(Where{"parent_id": nil})

	if _, ok := result["parent_id"]; !ok {
		t.Error("nil entry was dropped")
	}
	if result["parent_id"] != nil {
		t.Errorf("nil entry changed: %v", result["parent_id"])
	}
}

func TestFlattenWhere_MalformedNestingBestEffort(t *testing.T) {
	// Values are hoisted one level regardless of their own structure.
	inner := Where{"deep": "x"}
	result := flattenWhere(Where{
		"a_b": Where{"a": 1, "b": inner},
	})

	if result["a"] != 1 {
		t.Errorf("expected a=1, got %v", result["a"])
	}
	got, ok := result["b"].(Where)
	if !ok || got["deep"] != "x" {
		t.Errorf("second-level group should be copied untouched, got %v", result["b"])
	}
}

func TestFlattenWhere_DoesNotMutateInput(t *testing.T) {
	original := Where{"k1_k2": Where{"k1": "v1"}}
	_ = flattenWhere(original)

	if _, ok := original["k1_k2"]; !ok {
		t.Error("input predicate was mutated")
	}
}

// --- Action Tests ---

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionCreate, "create"},
		{ActionFindUnique, "findUnique"},
		{ActionFindFirst, "findFirst"},
		{ActionFindMany, "findMany"},
		{ActionUpdate, "update"},
		{ActionUpdateMany, "updateMany"},
		{ActionDelete, "delete"},
		{ActionDeleteMany, "deleteMany"},
		{Action(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}

// --- Registry Tests ---

func TestRegistryDefaultsNameToChildEntity(t *testing.T) {
	r := NewRegistry()
	r.Register(Relationship{
		ParentEntity:    "order",
		ChildEntity:     "item",
		ForeignKeyField: "order_id",
	})

	rel, ok := r.Relation("order", "item")
	if !ok {
		t.Fatal("expected relation under default name")
	}
	if rel.Name != "item" {
		t.Errorf("expected name 'item', got %q", rel.Name)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(Relationship{
		Name:            "items",
		ParentEntity:    "order",
		ChildEntity:     "item",
		ForeignKeyField: "order_id",
	})
	r.Register(Relationship{
		Name:            "notes",
		ParentEntity:    "order",
		ChildEntity:     "note",
		ForeignKeyField: "order_id",
	})

	if !r.HasChildren("order") {
		t.Error("expected order to have children")
	}
	if r.HasChildren("item") {
		t.Error("expected item to have no children")
	}
	if got := len(r.ChildrenOf("order")); got != 2 {
		t.Errorf("expected 2 relationships, got %d", got)
	}
	if got := len(r.AllRelationships()); got != 2 {
		t.Errorf("expected 2 total relationships, got %d", got)
	}
	if _, ok := r.Relation("order", "payments"); ok {
		t.Error("expected unknown relation lookup to fail")
	}
}
