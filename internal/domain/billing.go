package domain

// BillingEntry is an invoice line embedded in a company.
type BillingEntry struct {
	ID          string  `json:"_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Paid        bool    `json:"paid"`
}

// BillingRequest is the body for POST /api/companies/billing.
type BillingRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Validate checks the required fields.
func (r *BillingRequest) Validate() error {
	if r.Description == "" {
		return &ErrValidation{Field: "description", Message: "required"}
	}
	if r.Amount <= 0 {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	return nil
}

// CompanyBilling groups billing entries by company for
// GET /api/clients/billing.
type CompanyBilling struct {
	CompanyID   string         `json:"companyId"`
	CompanyName string         `json:"companyName"`
	Billing     []BillingEntry `json:"billing"`
	Outstanding float64        `json:"outstanding"`
}
