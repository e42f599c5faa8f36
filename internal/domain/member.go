package domain

// MemberKind distinguishes the company roles guarded by ownership checks.
type MemberKind string

const (
	MemberSecretary   MemberKind = "secretary"
	MemberShareholder MemberKind = "shareholder"
)

// Valid reports whether k is a known kind.
func (k MemberKind) Valid() bool {
	return k == MemberSecretary || k == MemberShareholder
}

// Member is a secretary or shareholder. OrdinaryShareNumber is only
// meaningful for shareholders.
type Member struct {
	ID                  string     `json:"_id"`
	Kind                MemberKind `json:"kind"`
	Name                string     `json:"name"`
	ExternalID          string     `json:"id,omitempty"`
	Email               string     `json:"email,omitempty"`
	Contact             string     `json:"contact,omitempty"`
	OrdinaryShareNumber int64      `json:"ordinaryShareNumber,omitempty"`
}

// MemberInput is the body for creating or updating a member.
type MemberInput struct {
	Name                string `json:"name"`
	ExternalID          string `json:"id"`
	Email               string `json:"email"`
	Contact             string `json:"contact"`
	OrdinaryShareNumber int64  `json:"ordinaryShareNumber"`
}

// Validate checks the required fields.
func (in *MemberInput) Validate() error {
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if in.OrdinaryShareNumber < 0 {
		return &ErrValidation{Field: "ordinaryShareNumber", Message: "must not be negative"}
	}
	return nil
}

// Apply copies the input onto m. Share numbers are dropped for secretaries.
func (in *MemberInput) Apply(m *Member) {
	m.Name = in.Name
	m.ExternalID = in.ExternalID
	m.Email = in.Email
	m.Contact = in.Contact
	if m.Kind == MemberShareholder {
		m.OrdinaryShareNumber = in.OrdinaryShareNumber
	} else {
		m.OrdinaryShareNumber = 0
	}
}
