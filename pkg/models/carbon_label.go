package models

import (
	"time"
)

// StatusExpired is the sentinel status the certification registry uses for
// labels whose declaration period has lapsed. Labels with a NULL status are
// considered active.
const StatusExpired = "過期"

// CarbonLabel is a certified carbon-footprint declaration for a product.
// The table is reference data owned by the import process; the matching
// core only ever reads it.
type CarbonLabel struct {
	ID                   string     `json:"id" db:"id"`
	ProductType          *string    `json:"product_type,omitempty" db:"product_type"`
	ProductName          string     `json:"product_name" db:"product_name"`
	ProductModel         *string    `json:"product_model,omitempty" db:"product_model"`
	Status               *string    `json:"status,omitempty" db:"status"`
	CompanyName          *string    `json:"company_name,omitempty" db:"company_name"`
	UniformNumber        *string    `json:"uniform_number,omitempty" db:"uniform_number"`
	CarbonFootprintValue float64    `json:"carbon_footprint_value" db:"carbon_footprint_value"`
	CarbonFootprintUnit  *string    `json:"carbon_footprint_unit,omitempty" db:"carbon_footprint_unit"`
	DeclarationUnit      *string    `json:"declaration_unit,omitempty" db:"declaration_unit"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsActive reports whether the label may be matched against. A missing
// status counts as active; only the expired sentinel disqualifies a label.
func (l *CarbonLabel) IsActive() bool {
	return l.Status == nil || *l.Status != StatusExpired
}

// MatchResult pairs a label with the similarity that selected it. Produced
// per lookup, never persisted.
type MatchResult struct {
	Label      CarbonLabel `json:"label"`
	Similarity Similarity  `json:"similarity"`
}

// Similarity describes how a candidate label scored against the queried
// product name.
type Similarity struct {
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}
