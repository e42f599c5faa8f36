package domain

// Client is a portal account. Credits are whole units.
type Client struct {
	ID           string   `json:"_id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Credits      int64    `json:"credits"`
	CompanyIDs   []string `json:"company"`
}

// OwnsCompany reports whether companyID is one of the client's companies.
func (c *Client) OwnsCompany(companyID string) bool {
	for _, id := range c.CompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

// ClientProfile is the client as returned to the front end, with the
// owned companies populated.
type ClientProfile struct {
	ID        string     `json:"_id"`
	Email     string     `json:"email"`
	Credits   int64      `json:"credits"`
	Companies []*Company `json:"company"`
}

// PurchaseCreditsRequest is the body for POST /api/clients/credits/purchase.
type PurchaseCreditsRequest struct {
	Amount int64 `json:"amount"`
}

// PurchaseCreditsResponse is returned after a purchase.
type PurchaseCreditsResponse struct {
	Message string `json:"message"`
	Credits int64  `json:"credits"`
}
