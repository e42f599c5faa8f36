package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// ClientLookup reads clients. Missing clients are (nil, nil).
type ClientLookup interface {
	GetClient(ctx context.Context, id string) (*domain.Client, error)
}

// CompanyLookup reads companies. Missing or malformed ids are (nil, nil).
type CompanyLookup interface {
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
}

// TenantResolver binds a caller to one of the companies it owns.
type TenantResolver struct {
	clients   ClientLookup
	companies CompanyLookup
}

// NewTenantResolver creates a resolver over the given lookups.
func NewTenantResolver(clients ClientLookup, companies CompanyLookup) *TenantResolver {
	return &TenantResolver{clients: clients, companies: companies}
}

// Resolve returns the selected company if and only if it exists and its id
// is in the caller's company list. Every call reads fresh state.
func (r *TenantResolver) Resolve(ctx context.Context, caller *domain.Caller, selectedCompanyID string) (*domain.Company, error) {
	if caller == nil {
		return nil, &domain.ErrMissingCredential{}
	}
	selectedCompanyID = strings.TrimSpace(selectedCompanyID)
	if selectedCompanyID == "" {
		return nil, &domain.ErrValidation{Field: "selectedCompany", Message: "required"}
	}

	client, err := r.clients.GetClient(ctx, caller.ClientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrCallerNotFound{ClientID: caller.ClientID}
	}

	company, err := r.companies.GetCompany(ctx, selectedCompanyID)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, &domain.ErrTenantNotFound{CompanyID: selectedCompanyID}
	}

	if !client.OwnsCompany(company.ID) {
		return nil, &domain.ErrTenantForbidden{CompanyID: selectedCompanyID}
	}
	return company, nil
}
