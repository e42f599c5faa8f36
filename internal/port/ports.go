// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the authorization
// core and the services from the concrete persistence, cache and blob
// backends.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// Lookups return (nil, nil) when the record does not exist or the id is not
// a well-formed identifier for the backend. Mutations that target a single
// record report whether it existed.

// ClientStore persists clients and their credit balance.
type ClientStore interface {
	CreateClient(ctx context.Context, c *domain.Client) error
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	GetClientByEmail(ctx context.Context, email string) (*domain.Client, error)

	// AdjustCredits atomically adds delta (may be negative) and returns the
	// updated client.
	AdjustCredits(ctx context.Context, clientID string, delta int64) (*domain.Client, error)

	// DebitCredits atomically subtracts amount only if the balance covers
	// it. ok is false when the client is missing or cannot afford it.
	DebitCredits(ctx context.Context, clientID string, amount int64) (c *domain.Client, ok bool, err error)
}

// CompanyStore persists companies and their embedded documents and billing.
type CompanyStore interface {
	// CreateCompany inserts the company and appends its id to the owner's
	// company list.
	CreateCompany(ctx context.Context, ownerID string, c *domain.Company) error
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
	ListCompanies(ctx context.Context, ids []string) ([]*domain.Company, error)
	UpdateCompany(ctx context.Context, id string, in *domain.CompanyInput) (*domain.Company, error)

	// DeleteCompany removes the company and pulls its id from every client.
	DeleteCompany(ctx context.Context, id string) (bool, error)

	AddMemberToCompany(ctx context.Context, companyID string, kind domain.MemberKind, memberID string) error
	AddServiceToCompany(ctx context.Context, companyID, serviceID string) error
	AddDocument(ctx context.Context, companyID string, doc domain.Document) error
	AddBillingEntry(ctx context.Context, companyID string, entry domain.BillingEntry) error
	MarkBillingPaid(ctx context.Context, companyID, billingID string) (bool, error)
}

// MemberStore persists secretaries and shareholders.
type MemberStore interface {
	CreateMember(ctx context.Context, m *domain.Member) error
	GetMember(ctx context.Context, kind domain.MemberKind, id string) (*domain.Member, error)
	ListMembers(ctx context.Context, kind domain.MemberKind, ids []string) ([]*domain.Member, error)
	UpdateMember(ctx context.Context, m *domain.Member) (bool, error)

	// DeleteMember removes the member and pulls its id from every company
	// list of the same kind.
	DeleteMember(ctx context.Context, kind domain.MemberKind, id string) (bool, error)
}

// ServiceStore persists the service catalogue.
type ServiceStore interface {
	CreateService(ctx context.Context, s *domain.Service) error
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]*domain.Service, error)
	ListServicesByID(ctx context.Context, ids []string) ([]*domain.Service, error)
	UpdateService(ctx context.Context, s *domain.Service) (bool, error)

	// DeleteService removes the entry and pulls its id from every company.
	DeleteService(ctx context.Context, id string) (bool, error)
}

// TransactionStore persists the credit ledger.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// ListTransactions returns the client's entries, newest first.
	ListTransactions(ctx context.Context, clientID string) ([]*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) (bool, error)
	DeleteTransaction(ctx context.Context, id string) (bool, error)
}

// Store is the persistence gateway used by the authorization core and the
// services. Implemented by the MongoDB adapter and the in-memory store.
type Store interface {
	ClientStore
	CompanyStore
	MemberStore
	ServiceStore
	TransactionStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RateLimitDecision is the outcome of one limiter check.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a fixed-window counter keyed by an arbitrary string.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
	Reset(ctx context.Context, key string) error
}

// BlobStore keeps uploaded document content outside the company document.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// TokenIssuer signs bearer tokens for authenticated clients.
type TokenIssuer interface {
	Issue(clientID string) (string, error)
}
