package models

import (
	"time"
)

// CategoryOther is the only record category the aggregation core assigns.
// Categorization by product type is a presentation concern that has no
// backing data yet.
const CategoryOther = "other"

// CarbonRecord is the per-invoice aggregate of line-item footprint
// estimates. Its ID is the invoice number.
type CarbonRecord struct {
	ID            string             `json:"id" db:"id"`
	InvoiceNumber string             `json:"invoice_number" db:"invoice_number"`
	Date          string             `json:"date" db:"date"`
	StoreName     string             `json:"store_name" db:"store_name"`
	TotalAmount   float64            `json:"total_amount" db:"total_amount"`
	Category      string             `json:"category" db:"category"`
	TotalCO2      float64            `json:"total_co2" db:"total_co2"`
	Items         []CarbonRecordItem `json:"items" db:"-"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// CarbonRecordItem is one resolved line item of a carbon record. CO2Amount
// is zero when no label matched; the item is still recorded.
type CarbonRecordItem struct {
	ID        string  `json:"id,omitempty" db:"id"`
	RecordID  string  `json:"-" db:"record_id"`
	RowNum    int     `json:"row_num" db:"row_num"`
	Name      string  `json:"name" db:"name"`
	Amount    float64 `json:"amount" db:"amount"`
	Quantity  float64 `json:"quantity" db:"quantity"`
	Category  string  `json:"category" db:"category"`
	CO2Amount float64 `json:"co2_amount" db:"co2_amount"`
}
