package carbonlabel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "carbon_labels"

var columns = []string{
	"id", "product_type", "product_name", "product_model", "status",
	"company_name", "uniform_number", "carbon_footprint_value",
	"carbon_footprint_unit", "declaration_unit", "created_at", "updated_at", "deleted_at",
}

// Repository handles carbon label persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new carbon label repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// activeFilter restricts a query to labels that still certify a product.
// A NULL status counts as active.
func activeFilter(sb *sqlbuilder.SelectBuilder) []string {
	return []string{
		sb.Or(
			sb.IsNull("status"),
			sb.NotEqual("status", models.StatusExpired),
		),
		sb.IsNull("deleted_at"),
	}
}

// FindByNameContains retrieves active labels whose product name contains the
// given text, case-insensitively.
func (r *Repository) FindByNameContains(ctx context.Context, name string, limit int) ([]models.CarbonLabel, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.Repository.FindByNameContains")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := activeFilter(sb)
	where = append(where, sb.Like("LOWER(product_name)", "%"+strings.ToLower(strings.TrimSpace(name))+"%"))
	sb.Where(where...)
	sb.OrderBy("product_name ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var labels []models.CarbonLabel
	if err := r.db.SelectContext(ctx, &labels, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query labels by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query labels by name")
	}

	return labels, nil
}

// FindAllActive retrieves up to limit active labels for the full-scan
// matching phase.
func (r *Repository) FindAllActive(ctx context.Context, limit int) ([]models.CarbonLabel, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.Repository.FindAllActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(activeFilter(sb)...)
	sb.OrderBy("product_name ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var labels []models.CarbonLabel
	if err := r.db.SelectContext(ctx, &labels, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active labels")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active labels")
	}

	return labels, nil
}

// Get retrieves a label by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.CarbonLabel, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var label models.CarbonLabel
	if err := r.db.GetContext(ctx, &label, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("carbon label %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get carbon label")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get carbon label")
	}

	return &label, nil
}

// Upsert inserts or refreshes a batch of labels keyed on product name and
// company. Used by the catalog import.
func (r *Repository) Upsert(ctx context.Context, labels []models.CarbonLabel) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.Repository.Upsert")
	defer span.End()

	if len(labels) == 0 {
		return 0, nil
	}

	log := r.logger.WithContext(ctx).WithField("label_count", len(labels))

	now := time.Now().UTC()
	ib := database.NewInsertBuilder()
	ib = ib.InsertInto(table)
	ib = ib.Cols(
		"id", "product_type", "product_name", "product_model", "status",
		"company_name", "uniform_number", "carbon_footprint_value",
		"carbon_footprint_unit", "declaration_unit", "created_at", "updated_at",
	)
	for _, label := range labels {
		id := label.ID
		if id == "" {
			id = uuid.New().String()
		}
		ib = ib.Values(
			id, label.ProductType, label.ProductName, label.ProductModel, label.Status,
			label.CompanyName, label.UniformNumber, label.CarbonFootprintValue,
			label.CarbonFootprintUnit, label.DeclarationUnit, now, now,
		)
	}

	ub := ib.OnConflict("product_name", "company_name")
	ub.Set(
		ub.Assign("product_type", database.Excluded("product_type")),
		ub.Assign("product_model", database.Excluded("product_model")),
		ub.Assign("status", database.Excluded("status")),
		ub.Assign("uniform_number", database.Excluded("uniform_number")),
		ub.Assign("carbon_footprint_value", database.Excluded("carbon_footprint_value")),
		ub.Assign("carbon_footprint_unit", database.Excluded("carbon_footprint_unit")),
		ub.Assign("declaration_unit", database.Excluded("declaration_unit")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to upsert carbon labels")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert carbon labels")
	}

	rows, _ := result.RowsAffected()
	log.WithField("rows_affected", rows).Info("Upserted carbon labels")
	return int(rows), nil
}

// Count returns the number of labels that are not soft deleted
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "carbonlabel.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	sb.Where(sb.IsNull("deleted_at"))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count carbon labels")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count carbon labels")
	}

	return count, nil
}
