package labels

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/carbon"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Register registers carbon label catalog routes
func Register(g *echo.Group) {
	g.POST("/import", ImportLabels)
	g.GET("/match", MatchPreview)
}

// ImportRequest is a batch of labels to upsert into the catalog
type ImportRequest struct {
	Labels []models.CarbonLabel `json:"labels"`
}

// ImportResponse reports how many rows the import touched
type ImportResponse struct {
	RowsAffected int `json:"rows_affected"`
}

// ImportLabels upserts a label batch into the catalog
func ImportLabels(c echo.Context) error {
	ctx := c.Request().Context()

	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid import payload")
	}
	if len(req.Labels) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "labels is required")
	}

	ctx, service, err := ectoinject.GetContext[*carbon.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	count, err := service.ImportLabels(ctx, req.Labels)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ImportResponse{RowsAffected: count})
}

// MatchPreviewResponse is the result of a dry-run product match
type MatchPreviewResponse struct {
	Matched bool                `json:"matched"`
	Result  *models.MatchResult `json:"result,omitempty"`
}

// MatchPreview runs the product matcher against a name without touching any
// record. Useful for tuning the catalog.
func MatchPreview(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.QueryParam("name")
	if name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name query parameter is required")
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := matcher.FindBestMatch(ctx, name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MatchPreviewResponse{
		Matched: result != nil,
		Result:  result,
	})
}
