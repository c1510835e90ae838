package stream

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/veil"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// captureExec records every operation it receives.
type captureExec struct {
	ops []*veil.Operation
}

func (c *captureExec) Exec(_ context.Context, op *veil.Operation) (*veil.Result, error) {
	c.ops = append(c.ops, op)
	return &veil.Result{Count: 2}, nil
}

func newTestHandler() (*Handler, *captureExec) {
	exec := &captureExec{}
	cfg := veil.DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	pipeline := veil.New(exec, cfg)

	registry := veil.NewRegistry()
	registry.Register(veil.Relationship{
		Name:            "items",
		ParentEntity:    "order",
		ChildEntity:     "item",
		ForeignKeyField: "order_id",
	})

	return NewHandler(pipeline, registry, nil), exec
}

func tombstoneEvent(eventName string, oldDeleted, newDeleted bool) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "evt-1",
				EventName: eventName,
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"id":      events.NewStringAttribute("A"),
						"entity":  events.NewStringAttribute("order"),
						"deleted": events.NewBooleanAttribute(oldDeleted),
					},
					NewImage: map[string]events.DynamoDBAttributeValue{
						"id":      events.NewStringAttribute("A"),
						"entity":  events.NewStringAttribute("order"),
						"deleted": events.NewBooleanAttribute(newDeleted),
					},
				},
			},
		},
	}
}

// --- HandleCascade Tests ---

func TestHandleCascade_TombstonesChildren(t *testing.T) {
	h, exec := newTestHandler()

	err := h.HandleCascade(context.Background(), tombstoneEvent("MODIFY", false, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exec.ops) != 1 {
		t.Fatalf("expected 1 cascaded operation, got %d", len(exec.ops))
	}
	op := exec.ops[0]
	if op.Entity != "item" {
		t.Errorf("expected entity item, got %q", op.Entity)
	}
	// The pipeline rewrote the cascade deleteMany into a tombstone update.
	if op.Action != veil.ActionUpdateMany {
		t.Errorf("expected updateMany, got %s", op.Action)
	}
	if diff := cmp.Diff(veil.Where{"order_id": "A"}, op.Args.Where); diff != "" {
		t.Errorf("where mismatch (-want +got):\n%s", diff)
	}
	want := veil.Data{"deleted": true, "deleted_at": fixedNow}
	if diff := cmp.Diff(want, op.Args.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleCascade_IgnoresInserts(t *testing.T) {
	h, exec := newTestHandler()

	err := h.HandleCascade(context.Background(), tombstoneEvent("INSERT", false, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.ops) != 0 {
		t.Errorf("expected no operations for INSERT, got %d", len(exec.ops))
	}
}

func TestHandleCascade_IgnoresAlreadyTombstoned(t *testing.T) {
	h, exec := newTestHandler()

	err := h.HandleCascade(context.Background(), tombstoneEvent("MODIFY", true, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.ops) != 0 {
		t.Errorf("expected no operations when already tombstoned, got %d", len(exec.ops))
	}
}

func TestHandleCascade_IgnoresNonTombstoneModify(t *testing.T) {
	h, exec := newTestHandler()

	err := h.HandleCascade(context.Background(), tombstoneEvent("MODIFY", false, false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.ops) != 0 {
		t.Errorf("expected no operations for plain update, got %d", len(exec.ops))
	}
}

func TestHandleCascade_NoRegisteredChildren(t *testing.T) {
	exec := &captureExec{}
	pipeline := veil.New(exec, veil.DefaultConfig())
	h := NewHandler(pipeline, veil.NewRegistry(), nil)

	err := h.HandleCascade(context.Background(), tombstoneEvent("MODIFY", false, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.ops) != 0 {
		t.Errorf("expected no operations for leaf entity, got %d", len(exec.ops))
	}
}

// --- Image Helper Tests ---

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"entity": events.NewStringAttribute("order"),
		"count":  events.NewNumberAttribute("3"),
	}

	if got := getStringAttr(image, "entity"); got != "order" {
		t.Errorf("expected 'order', got %q", got)
	}
	if got := getStringAttr(image, "missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
	if got := getStringAttr(image, "count"); got != "" {
		t.Errorf("expected empty string for non-string attribute, got %q", got)
	}
	if got := getStringAttr(nil, "entity"); got != "" {
		t.Errorf("expected empty string for nil image, got %q", got)
	}
}

func TestGetBoolAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"deleted": events.NewBooleanAttribute(true),
		"entity":  events.NewStringAttribute("order"),
	}

	if !getBoolAttr(image, "deleted") {
		t.Error("expected true for boolean attribute")
	}
	if getBoolAttr(image, "missing") {
		t.Error("expected false for missing key")
	}
	if getBoolAttr(image, "entity") {
		t.Error("expected false for non-boolean attribute")
	}
	if getBoolAttr(nil, "deleted") {
		t.Error("expected false for nil image")
	}
}

func TestSetEntityField(t *testing.T) {
	h, _ := newTestHandler()

	h.SetEntityField("kind")
	if h.entityField != "kind" {
		t.Errorf("expected 'kind', got %q", h.entityField)
	}
	h.SetEntityField("")
	if h.entityField != "kind" {
		t.Errorf("empty name should be ignored, got %q", h.entityField)
	}
}
