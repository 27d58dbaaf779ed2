// Package events handles event emission for dedup lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for the dedup pipeline
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRecordMerged emits an event when records are automatically merged
func (e *Emitter) EmitRecordMerged(ctx context.Context, jobID string, merged *models.BusinessRecord, sourceIDs []string, score float64) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordMerged")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"name":           merged.Name,
		"raw_address":    merged.RawAddress,
		"source":         merged.SourceReference,
		"score":          score,
		"source_count":   len(sourceIDs),
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DirectoryEvent{
		EventType:     "record.merged",
		JobID:         jobID,
		RecordID:      merged.ID,
		Source:        merged.SourceReference,
		Data:          dataJSON,
		SourceRecords: sourceIDs,
	}

	if err := e.producer.PublishDirectoryEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.merged event")
		return err
	}

	return nil
}

// EmitReviewQueued emits an event when a match lands on the manual review queue
func (e *Emitter) EmitReviewQueued(ctx context.Context, jobID string, itemID string, recordAID, recordBID string, score float64) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewQueued")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"review_item_id": itemID,
		"record_a_id":    recordAID,
		"record_b_id":    recordBID,
		"score":          score,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DirectoryEvent{
		EventType: "review.queued",
		JobID:     jobID,
		RecordID:  recordAID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDirectoryEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit review.queued event")
		return err
	}

	return nil
}

// EmitDedupCompleted emits an event when a dedup job finishes
func (e *Emitter) EmitDedupCompleted(ctx context.Context, jobID string, result *models.DedupResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDedupCompleted")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"input_count":    result.InputCount,
		"output_count":   len(result.Records),
		"merged_count":   result.MergedCount,
		"review_count":   len(result.ReviewQueue),
		"fuzzy_enabled":  result.FuzzyEnabled,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.DirectoryEvent{
		EventType: "dedup.completed",
		JobID:     jobID,
		Data:      dataJSON,
	}

	if err := e.producer.PublishDirectoryEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit dedup.completed event")
		return err
	}

	return nil
}
