package domain

import "time"

// Service is an entry of the service catalogue a company can engage.
type Service struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cost        int64     `json:"cost"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ServiceInput is the body for creating or updating a catalogue entry.
type ServiceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Category    string `json:"category"`
}

// Validate checks the required fields.
func (in *ServiceInput) Validate() error {
	switch {
	case in.Name == "":
		return &ErrValidation{Field: "name", Message: "required"}
	case in.Description == "":
		return &ErrValidation{Field: "description", Message: "required"}
	case in.Category == "":
		return &ErrValidation{Field: "category", Message: "required"}
	case in.Cost < 0:
		return &ErrValidation{Field: "cost", Message: "must not be negative"}
	}
	return nil
}

// EngageResponse is returned after a company engages a service.
type EngageResponse struct {
	Message     string       `json:"message"`
	Credits     int64        `json:"credits"`
	Transaction *Transaction `json:"transaction"`
}
