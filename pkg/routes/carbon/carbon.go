package carbon

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/carbon"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers carbon calculation routes
func Register(g *echo.Group) {
	g.POST("", CalculateFromInvoice)
	g.POST("/:invoiceNumber", CalculateByNumber)
}

// CalculateFromInvoice aggregates an invoice payload supplied in the request
// body into a carbon record.
func CalculateFromInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	var invoice models.Invoice
	if err := c.Bind(&invoice); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid invoice payload")
	}

	ctx, service, err := ectoinject.GetContext[*carbon.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := service.CalculateFromInvoice(ctx, invoice)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}

// CalculateByNumber fetches an invoice from the platform and aggregates it.
func CalculateByNumber(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceNumber := c.Param("invoiceNumber")
	if invoiceNumber == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "invoiceNumber path parameter is required")
	}

	ctx, service, err := ectoinject.GetContext[*carbon.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := service.CalculateByNumber(ctx, invoiceNumber)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, record)
}
