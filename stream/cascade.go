// Package stream provides DynamoDB Streams handlers for cascading
// tombstones to child entities.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/veil"
)

// Handler processes DynamoDB stream events and tombstones the children of
// freshly tombstoned records. Child deletes are issued through a rewrite
// pipeline, so they become tombstone updates themselves and trigger their
// own cascade via the stream.
type Handler struct {
	pipeline *veil.Pipeline
	registry *veil.Registry
	logger   *slog.Logger

	// entityField is the stream image attribute carrying the entity name.
	entityField string
}

// NewHandler creates a new stream handler. A nil logger uses slog.Default.
func NewHandler(pipeline *veil.Pipeline, registry *veil.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline:    pipeline,
		registry:    registry,
		logger:      logger,
		entityField: "entity",
	}
}

// SetEntityField overrides the stream image attribute carrying the entity
// name. Default: "entity"
func (h *Handler) SetEntityField(name string) {
	if name != "" {
		h.entityField = name
	}
}

// HandleCascade processes stream events to propagate tombstones to children.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascade(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only process MODIFY events where the tombstone flag was newly set
	if record.EventName != "MODIFY" {
		return nil
	}

	deletedField := h.pipeline.Config().DeletedField
	wasDeleted := getBoolAttr(record.Change.OldImage, deletedField)
	isDeleted := getBoolAttr(record.Change.NewImage, deletedField)
	if wasDeleted || !isDeleted {
		return nil
	}

	entity := getStringAttr(record.Change.NewImage, h.entityField)
	id := getStringAttr(record.Change.NewImage, "id")
	if entity == "" || id == "" {
		return nil
	}

	children := h.registry.ChildrenOf(entity)
	if len(children) == 0 {
		return nil
	}

	h.logger.Info("cascading tombstone",
		"entity", entity,
		"id", id,
		"relations", len(children),
	)

	for _, rel := range children {
		// DeleteMany through the pipeline becomes a tombstone update,
		// which re-enters the stream for the next level down.
		res, err := h.pipeline.Do(ctx, &veil.Operation{
			Entity: rel.ChildEntity,
			Action: veil.ActionDeleteMany,
			Args: veil.Args{
				Where: veil.Where{rel.ForeignKeyField: id},
			},
		})
		if err != nil {
			return fmt.Errorf("cascade %s.%s: %w", entity, rel.Name, err)
		}
		h.logger.Info("tombstoned children",
			"relation", rel.Name,
			"child", rel.ChildEntity,
			"count", res.Count,
		)
	}

	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getBoolAttr extracts a boolean attribute from a DynamoDB stream image.
func getBoolAttr(image map[string]events.DynamoDBAttributeValue, key string) bool {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeBoolean {
		return v.Boolean()
	}
	return false
}
