package carbon

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/aggregator"
	"github.com/Ramsey-B/fern/pkg/footprint"
	"github.com/Ramsey-B/fern/pkg/models"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeRecordStore struct {
	records   map[string]*models.CarbonRecord
	upsertErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*models.CarbonRecord)}
}

func (f *fakeRecordStore) Upsert(ctx context.Context, record *models.CarbonRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[record.InvoiceNumber] = record
	return nil
}

func (f *fakeRecordStore) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.CarbonRecord, error) {
	record, ok := f.records[invoiceNumber]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "carbon record not found")
	}
	return record, nil
}

func (f *fakeRecordStore) List(ctx context.Context, page, pageSize int) ([]models.CarbonRecord, int, error) {
	out := make([]models.CarbonRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, *r)
	}
	return out, len(out), nil
}

type fakeLabelStore struct {
	upserted []models.CarbonLabel
}

func (f *fakeLabelStore) Upsert(ctx context.Context, labels []models.CarbonLabel) (int, error) {
	f.upserted = append(f.upserted, labels...)
	return len(labels), nil
}

func (f *fakeLabelStore) Count(ctx context.Context) (int, error) {
	return len(f.upserted), nil
}

type fakeCache struct {
	invalidations int
	err           error
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.invalidations++
	return f.err
}

type emittedRecord struct {
	invoiceNumber string
	isNew         bool
}

type fakeEmitter struct {
	records  []emittedRecord
	catalogs []int
	err      error
}

func (f *fakeEmitter) EmitRecordCalculated(ctx context.Context, record *models.CarbonRecord, isNew bool) error {
	f.records = append(f.records, emittedRecord{invoiceNumber: record.InvoiceNumber, isNew: isNew})
	return f.err
}

func (f *fakeEmitter) EmitCatalogImported(ctx context.Context, labelCount int) error {
	f.catalogs = append(f.catalogs, labelCount)
	return f.err
}

type fakeFetcher struct {
	invoice *models.Invoice
	err     error
}

func (f *fakeFetcher) FetchInvoice(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	return f.invoice, f.err
}

type noMatchMatcher struct{}

func (noMatchMatcher) FindBestMatch(ctx context.Context, productName string) (*models.MatchResult, error) {
	return nil, nil
}

func newTestService(records *fakeRecordStore, labels *fakeLabelStore, cache *fakeCache, emitter *fakeEmitter, fetcher *fakeFetcher) *Service {
	agg := aggregator.NewAggregator(noopLogger(), noMatchMatcher{}, footprint.NewCalculator(), 2)
	var c CacheInvalidator
	if cache != nil {
		c = cache
	}
	var e Emitter
	if emitter != nil {
		e = emitter
	}
	return NewService(noopLogger(), fetcher, agg, records, labels, c, e)
}

func TestCalculateFromInvoice_StoresAndEmits(t *testing.T) {
	records := newFakeRecordStore()
	emitter := &fakeEmitter{}
	s := newTestService(records, &fakeLabelStore{}, nil, emitter, nil)

	invoice := models.Invoice{
		InvNum: "AB12345678",
		Details: []models.InvoiceDetail{
			{RowNum: "1", Description: "瓶裝水", Quantity: "3"},
		},
	}

	record, err := s.CalculateFromInvoice(context.Background(), invoice)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Contains(t, records.records, "AB12345678")
	require.Len(t, emitter.records, 1)
	assert.True(t, emitter.records[0].isNew)
}

func TestCalculateFromInvoice_RerunEmitsRecalculated(t *testing.T) {
	records := newFakeRecordStore()
	emitter := &fakeEmitter{}
	s := newTestService(records, &fakeLabelStore{}, nil, emitter, nil)

	invoice := models.Invoice{InvNum: "AB12345678"}

	_, err := s.CalculateFromInvoice(context.Background(), invoice)
	require.NoError(t, err)
	_, err = s.CalculateFromInvoice(context.Background(), invoice)
	require.NoError(t, err)

	require.Len(t, emitter.records, 2)
	assert.True(t, emitter.records[0].isNew)
	assert.False(t, emitter.records[1].isNew)
}

func TestCalculateFromInvoice_RequiresInvoiceNumber(t *testing.T) {
	s := newTestService(newFakeRecordStore(), &fakeLabelStore{}, nil, nil, nil)

	_, err := s.CalculateFromInvoice(context.Background(), models.Invoice{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestCalculateFromInvoice_EmitFailureDoesNotFail(t *testing.T) {
	records := newFakeRecordStore()
	emitter := &fakeEmitter{err: errors.New("broker unavailable")}
	s := newTestService(records, &fakeLabelStore{}, nil, emitter, nil)

	record, err := s.CalculateFromInvoice(context.Background(), models.Invoice{InvNum: "AB12345678"})
	require.NoError(t, err)
	assert.NotNil(t, record)
	assert.Contains(t, records.records, "AB12345678")
}

func TestCalculateFromInvoice_UpsertFailurePropagates(t *testing.T) {
	records := newFakeRecordStore()
	records.upsertErr = errors.New("disk full")
	s := newTestService(records, &fakeLabelStore{}, nil, nil, nil)

	_, err := s.CalculateFromInvoice(context.Background(), models.Invoice{InvNum: "AB12345678"})
	assert.Error(t, err)
}

func TestCalculateByNumber_FetchesFromPlatform(t *testing.T) {
	records := newFakeRecordStore()
	fetcher := &fakeFetcher{invoice: &models.Invoice{InvNum: "AB12345678"}}
	s := newTestService(records, &fakeLabelStore{}, nil, nil, fetcher)

	record, err := s.CalculateByNumber(context.Background(), "AB12345678")
	require.NoError(t, err)
	assert.Equal(t, "AB12345678", record.InvoiceNumber)
}

func TestCalculateByNumber_FetchFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: httperror.NewHTTPError(http.StatusNotFound, "invoice not found")}
	s := newTestService(newFakeRecordStore(), &fakeLabelStore{}, nil, nil, fetcher)

	_, err := s.CalculateByNumber(context.Background(), "ZZ00000000")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestImportLabels_InvalidatesCacheAndEmits(t *testing.T) {
	labels := &fakeLabelStore{}
	cache := &fakeCache{}
	emitter := &fakeEmitter{}
	s := newTestService(newFakeRecordStore(), labels, cache, emitter, nil)

	count, err := s.ImportLabels(context.Background(), []models.CarbonLabel{
		{ProductName: "瓶裝水", CarbonFootprintValue: 0.5},
		{ProductName: "有機牛奶", CarbonFootprintValue: 1.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, cache.invalidations)
	assert.Equal(t, []int{2}, emitter.catalogs)
}

func TestImportLabels_RejectsMissingProductName(t *testing.T) {
	s := newTestService(newFakeRecordStore(), &fakeLabelStore{}, nil, nil, nil)

	_, err := s.ImportLabels(context.Background(), []models.CarbonLabel{{CarbonFootprintValue: 1}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
