package domain

// ============================================================
// Auth: Request / Response types (matches the portal front end)
// ============================================================

// Caller is the authenticated principal of a single request. It is built
// from a verified token and never persisted.
type Caller struct {
	ClientID string
}

// RegisterRequest is the body for POST /api/clients/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /api/clients/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /api/clients/login.
// BearerToken already carries the "Bearer " prefix.
type LoginResponse struct {
	BearerToken string         `json:"bearerToken"`
	Client      *ClientProfile `json:"client"`
}

// RegisterResponse is the body for 201 from POST /api/clients/register.
type RegisterResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
