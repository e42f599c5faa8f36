package domain

import "time"

// Company is a tenant. Member and service references are stored as id
// lists; documents and billing entries are embedded.
type Company struct {
	ID                 string         `json:"_id"`
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	SSIC               string         `json:"ssic"`
	Address            string         `json:"address"`
	PaidUpShareCapital float64        `json:"paidUpShareCapital"`
	SecretaryIDs       []string       `json:"secretary"`
	ShareholderIDs     []string       `json:"shareholder"`
	ServiceIDs         []string       `json:"services"`
	Documents          []Document     `json:"documents"`
	Billing            []BillingEntry `json:"billing"`
}

// MemberIDs returns the id list of the given member kind.
func (c *Company) MemberIDs(kind MemberKind) []string {
	switch kind {
	case MemberSecretary:
		return c.SecretaryIDs
	case MemberShareholder:
		return c.ShareholderIDs
	default:
		return nil
	}
}

// HasMember reports whether id is listed under kind.
func (c *Company) HasMember(kind MemberKind, id string) bool {
	for _, m := range c.MemberIDs(kind) {
		if m == id {
			return true
		}
	}
	return false
}

// CompanyInput is the body for creating or updating a company.
type CompanyInput struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	SSIC               string  `json:"ssic"`
	Address            string  `json:"address"`
	PaidUpShareCapital float64 `json:"paidUpShareCapital"`
}

// Validate checks the required fields.
func (in *CompanyInput) Validate() error {
	switch {
	case in.Name == "":
		return &ErrValidation{Field: "name", Message: "required"}
	case in.Description == "":
		return &ErrValidation{Field: "description", Message: "required"}
	case in.SSIC == "":
		return &ErrValidation{Field: "ssic", Message: "required"}
	case in.Address == "":
		return &ErrValidation{Field: "address", Message: "required"}
	case in.PaidUpShareCapital < 0:
		return &ErrValidation{Field: "paidUpShareCapital", Message: "must not be negative"}
	}
	return nil
}

// CompanyDetail is a company with its members and engaged services resolved.
type CompanyDetail struct {
	*Company
	Secretaries  []*Member  `json:"secretaries"`
	Shareholders []*Member  `json:"shareholders"`
	Services     []*Service `json:"engagedServices"`
}

// Document is an uploaded company file. Content is inline unless the
// deployment stores blobs externally, in which case StorageKey is set.
type Document struct {
	ID          string    `json:"_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	Content     []byte    `json:"-"`
	StorageKey  string    `json:"storageKey,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
