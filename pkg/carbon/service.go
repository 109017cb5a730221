// Package carbon orchestrates invoice carbon calculations: fetching the
// invoice, aggregating line items against the label catalog, persisting the
// record and emitting lifecycle events.
package carbon

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/pkg/aggregator"
	"github.com/Ramsey-B/fern/pkg/invoices"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// RecordStore persists carbon records.
type RecordStore interface {
	Upsert(ctx context.Context, record *models.CarbonRecord) error
	GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.CarbonRecord, error)
	List(ctx context.Context, page, pageSize int) ([]models.CarbonRecord, int, error)
}

// LabelStore imports labels into the catalog.
type LabelStore interface {
	Upsert(ctx context.Context, labels []models.CarbonLabel) (int, error)
	Count(ctx context.Context) (int, error)
}

// CacheInvalidator drops cached label queries after a catalog change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Emitter publishes carbon record lifecycle events.
type Emitter interface {
	EmitRecordCalculated(ctx context.Context, record *models.CarbonRecord, isNew bool) error
	EmitCatalogImported(ctx context.Context, labelCount int) error
}

// Service coordinates the invoice carbon workflow.
type Service struct {
	logger     ectologger.Logger
	fetcher    invoices.Fetcher
	aggregator *aggregator.Aggregator
	records    RecordStore
	labels     LabelStore
	cache      CacheInvalidator
	emitter    Emitter
	validate   *validator.Validate
}

// NewService creates a new carbon service. cache and emitter may be nil when
// Redis or Kafka are disabled.
func NewService(
	logger ectologger.Logger,
	fetcher invoices.Fetcher,
	agg *aggregator.Aggregator,
	records RecordStore,
	labels LabelStore,
	cache CacheInvalidator,
	emitter Emitter,
) *Service {
	return &Service{
		logger:     logger,
		fetcher:    fetcher,
		aggregator: agg,
		records:    records,
		labels:     labels,
		cache:      cache,
		emitter:    emitter,
		validate:   validator.New(),
	}
}

// CalculateFromInvoice aggregates an invoice payload into a carbon record,
// stores it and emits a lifecycle event. Re-running the same invoice replaces
// the previous record.
func (s *Service) CalculateFromInvoice(ctx context.Context, invoice models.Invoice) (*models.CarbonRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "carbon.Service.CalculateFromInvoice")
	defer span.End()

	if err := s.validate.Struct(invoice); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invoice number is required")
	}

	isNew := true
	if _, err := s.records.GetByInvoiceNumber(ctx, invoice.InvNum); err == nil {
		isNew = false
	} else if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) != http.StatusNotFound {
		return nil, err
	}

	record := s.aggregator.Aggregate(ctx, invoice)

	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, err
	}

	if s.emitter != nil {
		// The record is already stored; a failed emit should not undo that.
		if err := s.emitter.EmitRecordCalculated(ctx, record, isNew); err != nil {
			s.logger.WithContext(ctx).WithError(err).
				WithField("invoice_number", record.InvoiceNumber).
				Warn("Carbon record stored but event emission failed")
		}
	}

	return record, nil
}

// CalculateByNumber fetches an invoice from the platform and aggregates it.
func (s *Service) CalculateByNumber(ctx context.Context, invoiceNumber string) (*models.CarbonRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "carbon.Service.CalculateByNumber")
	defer span.End()

	invoice, err := s.fetcher.FetchInvoice(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	return s.CalculateFromInvoice(ctx, *invoice)
}

// GetRecord retrieves a stored carbon record by invoice number.
func (s *Service) GetRecord(ctx context.Context, invoiceNumber string) (*models.CarbonRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "carbon.Service.GetRecord")
	defer span.End()

	return s.records.GetByInvoiceNumber(ctx, invoiceNumber)
}

// ListRecords retrieves stored carbon records, newest first.
func (s *Service) ListRecords(ctx context.Context, page, pageSize int) ([]models.CarbonRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "carbon.Service.ListRecords")
	defer span.End()

	return s.records.List(ctx, page, pageSize)
}

// ImportLabels upserts a label batch into the catalog, invalidates cached
// label queries and emits a catalog event.
func (s *Service) ImportLabels(ctx context.Context, labels []models.CarbonLabel) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "carbon.Service.ImportLabels")
	defer span.End()

	for _, label := range labels {
		if label.ProductName == "" {
			return 0, httperror.NewHTTPError(http.StatusBadRequest, "every label needs a product name")
		}
	}

	count, err := s.labels.Upsert(ctx, labels)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate label cache after import")
		}
	}

	if s.emitter != nil {
		if err := s.emitter.EmitCatalogImported(ctx, len(labels)); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Labels imported but event emission failed")
		}
	}

	return count, nil
}
