package carbonrecord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const recordTable = "carbon_records"
const itemTable = "carbon_record_items"

var recordColumns = []string{
	"id", "invoice_number", "date", "store_name", "total_amount",
	"category", "total_co2", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "record_id", "row_num", "name", "amount", "quantity", "category", "co2_amount",
}

// Repository handles carbon record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new carbon record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores a record and its items in one transaction, replacing any
// previous aggregation of the same invoice. Re-running an invoice is
// idempotent because the record ID is the invoice number.
func (r *Repository) Upsert(ctx context.Context, record *models.CarbonRecord) error {
	ctx, span := tracing.StartSpan(ctx, "carbonrecord.Repository.Upsert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"invoice_number": record.InvoiceNumber,
		"item_count":     len(record.Items),
	})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	ib := database.NewInsertBuilder()
	ib = ib.InsertInto(recordTable)
	ib = ib.Cols(recordColumns...)
	ib = ib.Values(
		record.ID, record.InvoiceNumber, record.Date, record.StoreName,
		record.TotalAmount, record.Category, record.TotalCO2,
		record.CreatedAt, record.UpdatedAt,
	)
	ub := ib.OnConflict("id")
	ub.Set(
		ub.Assign("date", database.Excluded("date")),
		ub.Assign("store_name", database.Excluded("store_name")),
		ub.Assign("total_amount", database.Excluded("total_amount")),
		ub.Assign("category", database.Excluded("category")),
		ub.Assign("total_co2", database.Excluded("total_co2")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to upsert carbon record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert carbon record")
	}

	// Replace the items wholesale so a re-aggregation never leaves stale rows.
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(itemTable)
	db.Where(db.Equal("record_id", record.ID))

	query, args = db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to clear carbon record items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear carbon record items")
	}

	if len(record.Items) > 0 {
		itemIb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		itemIb.InsertInto(itemTable)
		itemIb.Cols(itemColumns...)
		for i := range record.Items {
			item := &record.Items[i]
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.RecordID = record.ID
			itemIb.Values(
				item.ID, item.RecordID, item.RowNum, item.Name,
				item.Amount, item.Quantity, item.Category, item.CO2Amount,
			)
		}

		query, args = itemIb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.WithError(err).Error("Failed to insert carbon record items")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert carbon record items")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit carbon record")
	}

	log.Info("Stored carbon record")
	return nil
}

// GetByInvoiceNumber retrieves a record with its items
func (r *Repository) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.CarbonRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonrecord.Repository.GetByInvoiceNumber")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From(recordTable)
	sb.Where(sb.Equal("invoice_number", invoiceNumber))

	query, args := sb.Build()
	var record models.CarbonRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("carbon record %s not found", invoiceNumber))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get carbon record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get carbon record")
	}

	items, err := r.listItems(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Items = items

	return &record, nil
}

// List retrieves records ordered by date, newest first
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.CarbonRecord, int, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonrecord.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(recordTable)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count carbon records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count carbon records")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From(recordTable)
	sb.OrderBy("date DESC", "created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var records []models.CarbonRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list carbon records")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list carbon records")
	}

	return records, totalCount, nil
}

func (r *Repository) listItems(ctx context.Context, recordID string) ([]models.CarbonRecordItem, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From(itemTable)
	sb.Where(sb.Equal("record_id", recordID))
	sb.OrderBy("row_num ASC")

	query, args := sb.Build()
	var items []models.CarbonRecordItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list carbon record items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list carbon record items")
	}

	return items, nil
}
