package footprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestCalculate_NoMatch(t *testing.T) {
	c := NewCalculator()

	result := c.Calculate(nil, 3)
	assert.False(t, result.Success)
	assert.Nil(t, result.CarbonFootprint)
	assert.Equal(t, DefaultUnit, result.Unit)
}

func TestCalculate_ScalesWithQuantity(t *testing.T) {
	c := NewCalculator()
	match := &models.MatchResult{
		Label: models.CarbonLabel{
			ProductName:          "瓶裝水",
			CarbonFootprintValue: 0.5,
			CarbonFootprintUnit:  strPtr("kg"),
		},
	}

	result := c.Calculate(match, 3)
	assert.True(t, result.Success)
	require.NotNil(t, result.CarbonFootprint)
	assert.InDelta(t, 1.5, *result.CarbonFootprint, 1e-9)
	assert.Equal(t, "kg", result.Unit)
}

func TestCalculate_UnitDefaults(t *testing.T) {
	c := NewCalculator()

	t.Run("nil unit", func(t *testing.T) {
		match := &models.MatchResult{
			Label: models.CarbonLabel{CarbonFootprintValue: 1.2},
		}
		result := c.Calculate(match, 1)
		assert.Equal(t, DefaultUnit, result.Unit)
	})

	t.Run("empty unit", func(t *testing.T) {
		match := &models.MatchResult{
			Label: models.CarbonLabel{CarbonFootprintValue: 1.2, CarbonFootprintUnit: strPtr("")},
		}
		result := c.Calculate(match, 1)
		assert.Equal(t, DefaultUnit, result.Unit)
	})

	t.Run("declared unit wins", func(t *testing.T) {
		match := &models.MatchResult{
			Label: models.CarbonLabel{CarbonFootprintValue: 1.2, CarbonFootprintUnit: strPtr("g")},
		}
		result := c.Calculate(match, 1)
		assert.Equal(t, "g", result.Unit)
	})
}

func TestCalculate_RoundsToFourDigits(t *testing.T) {
	c := NewCalculator()
	match := &models.MatchResult{
		Label: models.CarbonLabel{CarbonFootprintValue: 0.3333},
	}

	result := c.Calculate(match, 3)
	require.NotNil(t, result.CarbonFootprint)
	assert.InDelta(t, 0.9999, *result.CarbonFootprint, 1e-9)
}

func TestCalculate_ZeroQuantity(t *testing.T) {
	c := NewCalculator()
	match := &models.MatchResult{
		Label: models.CarbonLabel{CarbonFootprintValue: 2.5},
	}

	result := c.Calculate(match, 0)
	assert.True(t, result.Success)
	require.NotNil(t, result.CarbonFootprint)
	assert.Equal(t, 0.0, *result.CarbonFootprint)
}

func TestRound(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		precision int
		expected  float64
	}{
		{"no fraction", 5, 4, 5},
		{"rounds up", 1.00005, 4, 1.0001},
		{"rounds down", 1.00004, 4, 1.0},
		{"negative value", -1.23456, 4, -1.2346},
		{"zero precision", 2.5, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Round(tt.value, tt.precision), 1e-9)
		})
	}
}
