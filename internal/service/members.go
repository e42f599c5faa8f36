package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var memberTracer = otel.Tracer("service/members")

// MemberService handles secretaries and shareholders. The kind is fixed at
// construction so one instance backs one route group.
type MemberService struct {
	kind   domain.MemberKind
	store  port.Store
	logger *zap.Logger
}

func NewMemberService(kind domain.MemberKind, store port.Store, logger *zap.Logger) (*MemberService, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown member kind %q", kind)
	}
	return &MemberService{kind: kind, store: store, logger: logger}, nil
}

func (s *MemberService) Kind() domain.MemberKind { return s.kind }

// Create stores the member and links it to the company.
func (s *MemberService) Create(ctx context.Context, company *domain.Company, in *domain.MemberInput) (*domain.Member, error) {
	ctx, span := memberTracer.Start(ctx, "MemberService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("member.kind", string(s.kind)))

	if err := in.Validate(); err != nil {
		return nil, err
	}

	member := &domain.Member{Kind: s.kind}
	in.Apply(member)
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.kind, err)
	}

	if err := s.store.AddMemberToCompany(ctx, company.ID, s.kind, member.ID); err != nil {
		if _, derr := s.store.DeleteMember(ctx, s.kind, member.ID); derr != nil {
			s.logger.Error("orphaned member after failed link",
				zap.String("kind", string(s.kind)),
				zap.String("member_id", member.ID),
				zap.Error(derr),
			)
		}
		return nil, fmt.Errorf("link %s to company: %w", s.kind, err)
	}

	s.logger.Info("member created",
		zap.String("kind", string(s.kind)),
		zap.String("company_id", company.ID),
		zap.String("member_id", member.ID),
	)
	return member, nil
}

// List returns the members of the company.
func (s *MemberService) List(ctx context.Context, company *domain.Company) ([]*domain.Member, error) {
	ctx, span := memberTracer.Start(ctx, "MemberService.List")
	defer span.End()

	members, err := s.store.ListMembers(ctx, s.kind, company.MemberIDs(s.kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	if members == nil {
		members = []*domain.Member{}
	}
	return members, nil
}

// Update overwrites an authorized member's fields.
func (s *MemberService) Update(ctx context.Context, member *domain.Member, in *domain.MemberInput) (*domain.Member, error) {
	ctx, span := memberTracer.Start(ctx, "MemberService.Update")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated := *member
	in.Apply(&updated)
	ok, err := s.store.UpdateMember(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.kind, err)
	}
	if !ok {
		return nil, &domain.ErrResourceNotFound{Resource: string(s.kind), ID: member.ID}
	}
	return &updated, nil
}

// Delete removes the member and pulls its id from every company.
func (s *MemberService) Delete(ctx context.Context, member *domain.Member) error {
	ctx, span := memberTracer.Start(ctx, "MemberService.Delete")
	defer span.End()

	ok, err := s.store.DeleteMember(ctx, s.kind, member.ID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	if !ok {
		return &domain.ErrResourceNotFound{Resource: string(s.kind), ID: member.ID}
	}

	s.logger.Info("member deleted",
		zap.String("kind", string(s.kind)),
		zap.String("member_id", member.ID),
	)
	return nil
}
