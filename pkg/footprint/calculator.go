// Package footprint turns a label match into a CO2 estimate for a quantity.
package footprint

import (
	"math"

	"github.com/Ramsey-B/fern/pkg/models"
)

// DefaultUnit is used when a label declares no footprint unit. This is the
// only place the default is applied.
const DefaultUnit = "kg"

// Precision is the number of fractional digits kept on every CO2 amount.
const Precision = 4

// Result is the outcome of a footprint calculation. CarbonFootprint is nil
// when no label matched.
type Result struct {
	Success         bool     `json:"success"`
	CarbonFootprint *float64 `json:"carbon_footprint"`
	Unit            string   `json:"unit"`
}

// Calculator computes the CO2 contribution of a matched product.
type Calculator struct{}

// NewCalculator creates a new Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate multiplies the matched label's declared footprint by the
// quantity, rounded to Precision digits. Quantity is expected to already be
// a finite non-negative number; no further validation happens here.
func (c *Calculator) Calculate(match *models.MatchResult, quantity float64) Result {
	if match == nil {
		return Result{Success: false, CarbonFootprint: nil, Unit: DefaultUnit}
	}

	unit := DefaultUnit
	if match.Label.CarbonFootprintUnit != nil && *match.Label.CarbonFootprintUnit != "" {
		unit = *match.Label.CarbonFootprintUnit
	}

	total := Round(match.Label.CarbonFootprintValue*quantity, Precision)

	return Result{
		Success:         true,
		CarbonFootprint: &total,
		Unit:            unit,
	}
}

// Round rounds a value to the given number of fractional digits.
func Round(value float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(value*factor) / factor
}
