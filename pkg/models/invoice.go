package models

// Invoice is the e-invoice carrier payload as returned by the invoice
// platform. Numeric fields arrive as strings on the wire and are parsed
// during aggregation.
type Invoice struct {
	InvNum      string          `json:"invNum" validate:"required"`
	InvDate     string          `json:"invDate"` // yyyy/MM/dd
	SellerName  string          `json:"sellerName"`
	Amount      string          `json:"amount"`
	InvStatus   string          `json:"invStatus,omitempty"`
	InvPeriod   string          `json:"invPeriod,omitempty"`
	SellerBan   string          `json:"sellerBan,omitempty"`
	InvoiceTime string          `json:"invoiceTime,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	Details     []InvoiceDetail `json:"details"`
}

// InvoiceDetail is a single line item on an invoice.
type InvoiceDetail struct {
	RowNum      string `json:"rowNum"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Amount      string `json:"amount"`
}
