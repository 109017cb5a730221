package aggregator

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/footprint"
	"github.com/Ramsey-B/fern/pkg/models"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// matcherFunc adapts a function to the Matcher interface.
type matcherFunc func(ctx context.Context, productName string) (*models.MatchResult, error)

func (f matcherFunc) FindBestMatch(ctx context.Context, productName string) (*models.MatchResult, error) {
	return f(ctx, productName)
}

func matchWithValue(value float64) *models.MatchResult {
	return &models.MatchResult{
		Label:      models.CarbonLabel{CarbonFootprintValue: value},
		Similarity: models.Similarity{Score: 1.0, Method: "exact"},
	}
}

func newTestAggregator(m Matcher) *Aggregator {
	return NewAggregator(noopLogger(), m, footprint.NewCalculator(), 4)
}

func TestAggregate_MatchedItem(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		if name == "瓶裝水" {
			return matchWithValue(0.5), nil
		}
		return nil, nil
	})
	a := newTestAggregator(matcher)

	invoice := models.Invoice{
		InvNum:     "AB12345678",
		InvDate:    "2024/01/15",
		SellerName: "全聯福利中心",
		Amount:     "30",
		Details: []models.InvoiceDetail{
			{RowNum: "1", Description: "瓶裝水", Quantity: "3", Amount: "30"},
		},
	}

	record := a.Aggregate(context.Background(), invoice)
	require.Len(t, record.Items, 1)
	assert.Equal(t, "AB12345678", record.ID)
	assert.Equal(t, "AB12345678", record.InvoiceNumber)
	assert.Equal(t, "2024/01/15", record.Date)
	assert.Equal(t, "全聯福利中心", record.StoreName)
	assert.Equal(t, 30.0, record.TotalAmount)
	assert.InDelta(t, 1.5, record.Items[0].CO2Amount, 1e-9)
	assert.InDelta(t, 1.5, record.TotalCO2, 1e-9)
}

func TestAggregate_UnmatchedItemContributesZero(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return nil, nil
	})
	a := newTestAggregator(matcher)

	invoice := models.Invoice{
		InvNum: "AB12345678",
		Details: []models.InvoiceDetail{
			{RowNum: "1", Description: "神秘商品", Quantity: "2", Amount: "100"},
		},
	}

	record := a.Aggregate(context.Background(), invoice)
	require.Len(t, record.Items, 1)
	assert.Equal(t, 0.0, record.Items[0].CO2Amount)
	assert.Equal(t, 0.0, record.TotalCO2)
	assert.Equal(t, "神秘商品", record.Items[0].Name)
	assert.Equal(t, 2.0, record.Items[0].Quantity)
}

func TestAggregate_MatcherErrorDegradesToZero(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		if name == "broken" {
			return nil, errors.New("database is down")
		}
		return matchWithValue(1.0), nil
	})
	a := newTestAggregator(matcher)

	invoice := models.Invoice{
		InvNum: "AB12345678",
		Details: []models.InvoiceDetail{
			{RowNum: "1", Description: "broken", Quantity: "1"},
			{RowNum: "2", Description: "fine", Quantity: "2"},
		},
	}

	record := a.Aggregate(context.Background(), invoice)
	require.Len(t, record.Items, 2)
	assert.Equal(t, 0.0, record.Items[0].CO2Amount)
	assert.InDelta(t, 2.0, record.Items[1].CO2Amount, 1e-9)
	assert.InDelta(t, 2.0, record.TotalCO2, 1e-9)
}

func TestAggregate_MalformedNumbersCountAsZero(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return matchWithValue(0.5), nil
	})
	a := newTestAggregator(matcher)

	invoice := models.Invoice{
		InvNum: "AB12345678",
		Amount: "not-a-number",
		Details: []models.InvoiceDetail{
			{RowNum: "1", Description: "水", Quantity: "three", Amount: ""},
		},
	}

	record := a.Aggregate(context.Background(), invoice)
	require.Len(t, record.Items, 1)
	assert.Equal(t, 0.0, record.TotalAmount)
	assert.Equal(t, 0.0, record.Items[0].Quantity)
	assert.Equal(t, 0.0, record.Items[0].Amount)
	assert.Equal(t, 0.0, record.Items[0].CO2Amount)
}

func TestAggregate_EmptyInvoice(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return nil, nil
	})
	a := newTestAggregator(matcher)

	record := a.Aggregate(context.Background(), models.Invoice{InvNum: "AB12345678"})
	assert.Empty(t, record.Items)
	assert.Equal(t, 0.0, record.TotalCO2)
	assert.Equal(t, models.CategoryOther, record.Category)
}

func TestAggregate_ItemOrderMatchesInvoice(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return matchWithValue(1.0), nil
	})
	a := newTestAggregator(matcher)

	details := make([]models.InvoiceDetail, 50)
	for i := range details {
		details[i] = models.InvoiceDetail{
			RowNum:      fmt.Sprintf("%d", i+1),
			Description: fmt.Sprintf("item-%d", i),
			Quantity:    "1",
		}
	}

	record := a.Aggregate(context.Background(), models.Invoice{InvNum: "AB12345678", Details: details})
	require.Len(t, record.Items, 50)
	for i, item := range record.Items {
		assert.Equal(t, fmt.Sprintf("item-%d", i), item.Name)
		assert.Equal(t, i+1, item.RowNum)
	}
}

func TestAggregate_RowNumFallsBackToPosition(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return nil, nil
	})
	a := newTestAggregator(matcher)

	invoice := models.Invoice{
		InvNum: "AB12345678",
		Details: []models.InvoiceDetail{
			{RowNum: "not-a-row", Description: "a"},
			{RowNum: "", Description: "b"},
		},
	}

	record := a.Aggregate(context.Background(), invoice)
	require.Len(t, record.Items, 2)
	assert.Equal(t, 1, record.Items[0].RowNum)
	assert.Equal(t, 2, record.Items[1].RowNum)
}

func TestAggregate_TotalIsRounded(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, name string) (*models.MatchResult, error) {
		return matchWithValue(0.1), nil
	})
	a := newTestAggregator(matcher)

	details := make([]models.InvoiceDetail, 3)
	for i := range details {
		details[i] = models.InvoiceDetail{RowNum: "1", Description: "x", Quantity: "1"}
	}

	record := a.Aggregate(context.Background(), models.Invoice{InvNum: "AB12345678", Details: details})
	assert.Equal(t, 0.3, record.TotalCO2)
}
