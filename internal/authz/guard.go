package authz

import (
	"context"
	"fmt"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// MemberLookup reads secretaries and shareholders. Missing members are
// (nil, nil).
type MemberLookup interface {
	GetMember(ctx context.Context, kind domain.MemberKind, id string) (*domain.Member, error)
}

// ResourceGuard checks that a member belongs to the resolved tenant. It
// never consults the client: ownership of the tenant was settled by the
// TenantResolver.
type ResourceGuard struct {
	members MemberLookup
}

// NewResourceGuard creates a guard over the given lookup.
func NewResourceGuard(members MemberLookup) *ResourceGuard {
	return &ResourceGuard{members: members}
}

// Guard reports whether resourceID of kind may be accessed within company.
func (g *ResourceGuard) Guard(ctx context.Context, kind domain.MemberKind, resourceID string, company *domain.Company) error {
	_, err := g.Check(ctx, kind, resourceID, company)
	return err
}

// Check is Guard returning the member on success.
func (g *ResourceGuard) Check(ctx context.Context, kind domain.MemberKind, resourceID string, company *domain.Company) (*domain.Member, error) {
	if !kind.Valid() {
		return nil, &domain.ErrValidation{Field: "kind", Message: "unknown member kind"}
	}
	if company == nil {
		return nil, &domain.ErrResourceForbidden{Resource: string(kind), ID: resourceID}
	}

	member, err := g.members.GetMember(ctx, kind, resourceID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	if member == nil {
		return nil, &domain.ErrResourceNotFound{Resource: string(kind), ID: resourceID}
	}

	if !company.HasMember(kind, member.ID) {
		return nil, &domain.ErrResourceForbidden{Resource: string(kind), ID: resourceID}
	}
	return member, nil
}
