// Package aggregator turns a raw invoice into a carbon record by matching
// every line item against the label catalog and summing the estimates.
package aggregator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/footprint"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Matcher resolves a product name to the best carbon label, or nil when no
// label qualifies.
type Matcher interface {
	FindBestMatch(ctx context.Context, productName string) (*models.MatchResult, error)
}

// Aggregator maps invoice line items to footprint estimates concurrently and
// assembles the per-invoice carbon record. Aggregation always produces a
// record; individual item failures degrade to a zero CO2 contribution.
type Aggregator struct {
	logger      ectologger.Logger
	matcher     Matcher
	calculator  *footprint.Calculator
	concurrency int
}

// NewAggregator creates a new invoice aggregator. A concurrency of zero or
// less falls back to DefaultConcurrency.
func NewAggregator(logger ectologger.Logger, matcher Matcher, calculator *footprint.Calculator, concurrency int) *Aggregator {
	return &Aggregator{
		logger:      logger,
		matcher:     matcher,
		calculator:  calculator,
		concurrency: concurrency,
	}
}

// Aggregate resolves every invoice line item to a footprint estimate and
// returns the assembled carbon record. Item order in the record mirrors the
// invoice. The record's ID is the invoice number.
func (a *Aggregator) Aggregate(ctx context.Context, invoice models.Invoice) *models.CarbonRecord {
	ctx, span := tracing.StartSpan(ctx, "aggregator.Aggregator.Aggregate")
	defer span.End()

	start := time.Now()
	log := a.logger.WithContext(ctx).WithField("invoice_number", invoice.InvNum)

	items := mapIndexed(ctx, invoice.Details, a.concurrency, a.resolveItem)

	total := 0.0
	for _, item := range items {
		total += item.CO2Amount
	}

	record := &models.CarbonRecord{
		ID:            invoice.InvNum,
		InvoiceNumber: invoice.InvNum,
		Date:          invoice.InvDate,
		StoreName:     invoice.SellerName,
		TotalAmount:   a.parseDecimal(ctx, "amount", invoice.Amount),
		Category:      models.CategoryOther,
		TotalCO2:      footprint.Round(total, footprint.Precision),
		Items:         items,
	}

	metrics.ObserveAggregation(time.Since(start).Seconds(), len(items))
	log.WithFields(map[string]any{
		"item_count": len(items),
		"total_co2":  record.TotalCO2,
	}).Info("Aggregated invoice carbon record")

	return record
}

// resolveItem matches one line item and prices its footprint. A matcher
// failure is logged and treated as a miss so the rest of the invoice still
// aggregates.
func (a *Aggregator) resolveItem(ctx context.Context, index int, detail models.InvoiceDetail) models.CarbonRecordItem {
	quantity := a.parseDecimal(ctx, "quantity", detail.Quantity)
	amount := a.parseDecimal(ctx, "amount", detail.Amount)

	match, err := a.matcher.FindBestMatch(ctx, detail.Description)
	if err != nil {
		a.logger.WithContext(ctx).WithError(err).WithField("description", detail.Description).
			Warn("Label lookup failed for line item")
		match = nil
	}

	result := a.calculator.Calculate(match, quantity)

	co2 := 0.0
	if result.CarbonFootprint != nil {
		co2 = *result.CarbonFootprint
	}

	return models.CarbonRecordItem{
		RowNum:    a.parseRowNum(detail.RowNum, index),
		Name:      detail.Description,
		Amount:    amount,
		Quantity:  quantity,
		Category:  models.CategoryOther,
		CO2Amount: co2,
	}
}

// parseDecimal parses a wire-string numeric field. Malformed values count as
// zero; the item is kept.
func (a *Aggregator) parseDecimal(ctx context.Context, field, raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		a.logger.WithContext(ctx).WithFields(map[string]any{
			"field": field,
			"value": raw,
		}).Warn("Invoice field is not numeric, treating as zero")
		return 0
	}
	return value
}

func (a *Aggregator) parseRowNum(raw string, index int) int {
	rowNum, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return index + 1
	}
	return rowNum
}
