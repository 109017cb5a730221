package records

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/carbon"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers carbon record routes
func Register(g *echo.Group) {
	g.GET("", ListRecords)
	g.GET("/:invoiceNumber", GetRecord)
}

// ListResponse is the paged record listing
type ListResponse struct {
	Records    []models.CarbonRecord `json:"records"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
}

// ListRecords lists stored carbon records, newest first
func ListRecords(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, service, err := ectoinject.GetContext[*carbon.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records, total, err := service.ListRecords(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Records:    records,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// GetRecord retrieves a carbon record by invoice number
func GetRecord(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceNumber := c.Param("invoiceNumber")
	if invoiceNumber == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "invoiceNumber path parameter is required")
	}

	ctx, service, err := ectoinject.GetContext[*carbon.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := service.GetRecord(ctx, invoiceNumber)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}
