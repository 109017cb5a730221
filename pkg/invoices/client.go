// Package invoices fetches e-invoice payloads from the invoice platform.
package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (5MB)
	MaxResponseSize = 5 * 1024 * 1024
)

// Fetcher retrieves an invoice by its number.
type Fetcher interface {
	FetchInvoice(ctx context.Context, invoiceNumber string) (*models.Invoice, error)
}

// Config holds invoice platform client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is an HTTP client for the e-invoice platform
type Client struct {
	cfg    Config
	client *http.Client
	logger ectologger.Logger
}

// NewClient creates a new invoice platform client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchInvoice retrieves one invoice with its line items from the platform.
func (c *Client) FetchInvoice(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	ctx, span := tracing.StartSpan(ctx, "invoices.Client.FetchInvoice")
	defer span.End()

	log := c.logger.WithContext(ctx).WithField("invoice_number", invoiceNumber)

	reqURL := fmt.Sprintf("%s/api/invoice/%s", c.cfg.BaseURL, url.PathEscape(invoiceNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Error("Invoice platform request failed")
		return nil, httperror.NewHTTPError(http.StatusBadGateway, "invoice platform request failed")
	}
	defer resp.Body.Close()

	metrics.RecordInvoiceFetch(strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("invoice %s not found", invoiceNumber))
	}
	if resp.StatusCode != http.StatusOK {
		log.WithField("status_code", resp.StatusCode).Error("Invoice platform returned an error")
		return nil, httperror.NewHTTPError(http.StatusBadGateway, "invoice platform returned an error")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadGateway, "failed to read invoice platform response")
	}

	var invoice models.Invoice
	if err := json.Unmarshal(body, &invoice); err != nil {
		log.WithError(err).Error("Invoice platform returned malformed JSON")
		return nil, httperror.NewHTTPError(http.StatusBadGateway, "invoice platform returned malformed JSON")
	}

	return &invoice, nil
}
