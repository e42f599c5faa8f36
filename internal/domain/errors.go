package domain

import (
	"fmt"
	"time"
)

// Error types shared by the authorization core, the services and the
// HTTP layer. handler.handleServiceError maps each kind to a status code.

// ErrMissingCredential indicates the request carried no bearer token.
type ErrMissingCredential struct{}

func (e *ErrMissingCredential) Error() string {
	return "missing token"
}

// ErrInvalidCredential indicates a token that is malformed, expired or
// signed with the wrong key or algorithm.
type ErrInvalidCredential struct {
	Reason string
}

func (e *ErrInvalidCredential) Error() string {
	if e.Reason != "" {
		return "invalid token: " + e.Reason
	}
	return "invalid token"
}

// ErrCallerNotFound indicates a valid token whose client no longer exists.
type ErrCallerNotFound struct {
	ClientID string
}

func (e *ErrCallerNotFound) Error() string {
	return fmt.Sprintf("client not found: %s", e.ClientID)
}

// ErrTenantNotFound indicates the selected company does not exist.
type ErrTenantNotFound struct {
	CompanyID string
}

func (e *ErrTenantNotFound) Error() string {
	return fmt.Sprintf("company not found: %s", e.CompanyID)
}

// ErrTenantForbidden indicates the selected company exists but is not
// owned by the caller.
type ErrTenantForbidden struct {
	CompanyID string
}

func (e *ErrTenantForbidden) Error() string {
	return fmt.Sprintf("access denied to company: %s", e.CompanyID)
}

// ErrResourceNotFound indicates a resource was not found.
type ErrResourceNotFound struct {
	Resource string
	ID       string
}

func (e *ErrResourceNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrResourceForbidden indicates a resource exists but does not belong to
// the resolved company (or, for ledger entries, to the caller).
type ErrResourceForbidden struct {
	Resource string
	ID       string
}

func (e *ErrResourceForbidden) Error() string {
	return fmt.Sprintf("access denied to %s: %s", e.Resource, e.ID)
}

// ErrInvalidSignature indicates a webhook MAC mismatch.
type ErrInvalidSignature struct{}

func (e *ErrInvalidSignature) Error() string {
	return "Invalid MAC value"
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrStorage indicates a failure of the persistence gateway. Its details
// are logged, never returned to the client.
type ErrStorage struct {
	Op  string
	Err error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker around a backend is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrInsufficientCredits indicates the client cannot afford an engagement.
type ErrInsufficientCredits struct {
	Available int64
	Required  int64
}

func (e *ErrInsufficientCredits) Error() string {
	return fmt.Sprintf("insufficient credits: available=%d required=%d", e.Available, e.Required)
}

// ErrRateLimited indicates too many attempts for the same key.
type ErrRateLimited struct {
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	return "too many attempts, try again later"
}

// ErrBadCredentials indicates a login with an unknown email or a wrong
// password. Both cases share one message.
type ErrBadCredentials struct{}

func (e *ErrBadCredentials) Error() string {
	return "Invalid credentials"
}
