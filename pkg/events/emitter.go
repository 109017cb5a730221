// Package events handles event emission for carbon record lifecycle changes
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

// Emitter handles event emission for Fern
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

// EmitRecordCalculated emits an event after an invoice is aggregated into a
// carbon record. isNew distinguishes a first aggregation from a re-run.
func (e *Emitter) EmitRecordCalculated(ctx context.Context, record *models.CarbonRecord, isNew bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordCalculated")
	defer span.End()

	eventType := "record.recalculated"
	if isNew {
		eventType = "record.calculated"
	}

	payload := map[string]any{
		"schema_version": SchemaVersion,
		"record":         record,
	}
	dataJSON, _ := json.Marshal(payload)

	event := &kafka.RecordEvent{
		EventType:     eventType,
		InvoiceNumber: record.InvoiceNumber,
		StoreName:     record.StoreName,
		Date:          record.Date,
		TotalCO2:      record.TotalCO2,
		ItemCount:     len(record.Items),
		Data:          dataJSON,
	}

	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}

// EmitCatalogImported emits an event after a label catalog import
func (e *Emitter) EmitCatalogImported(ctx context.Context, labelCount int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCatalogImported")
	defer span.End()

	event := &kafka.CatalogEvent{
		EventType:  "catalog.imported",
		LabelCount: labelCount,
	}

	if err := e.producer.PublishCatalogEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit catalog.imported event")
		return err
	}

	return nil
}
