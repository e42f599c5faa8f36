package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
	"github.com/boddenberg/client-portal-go/internal/service"
)

func TestNewMemberService_RejectsUnknownKind(t *testing.T) {
	if _, err := service.NewMemberService("director", memstore.New(), zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMembers_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc, err := service.NewMemberService(domain.MemberShareholder, store, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	member, err := svc.Create(ctx, company, &domain.MemberInput{Name: "Sue", OrdinaryShareNumber: 500})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if member.Kind != domain.MemberShareholder || member.OrdinaryShareNumber != 500 {
		t.Errorf("unexpected member %+v", member)
	}

	company, _ = store.GetCompany(ctx, company.ID)
	list, err := svc.List(ctx, company)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 1 || list[0].ID != member.ID {
		t.Fatalf("expected the new shareholder listed, got %+v", list)
	}

	updated, err := svc.Update(ctx, member, &domain.MemberInput{Name: "Susan", OrdinaryShareNumber: 750})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Name != "Susan" || updated.OrdinaryShareNumber != 750 {
		t.Errorf("unexpected update %+v", updated)
	}

	if err := svc.Delete(ctx, member); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	company, _ = store.GetCompany(ctx, company.ID)
	if company.HasMember(domain.MemberShareholder, member.ID) {
		t.Error("expected shareholder pulled from company")
	}
	list, _ = svc.List(ctx, company)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}

	err = svc.Delete(ctx, member)
	var nf *domain.ErrResourceNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMembers_SecretaryDropsShareNumber(t *testing.T) {
	store := memstore.New()
	svc, _ := service.NewMemberService(domain.MemberSecretary, store, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	member, err := svc.Create(context.Background(), company, &domain.MemberInput{Name: "Sam", OrdinaryShareNumber: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if member.OrdinaryShareNumber != 0 {
		t.Errorf("secretaries carry no shares, got %d", member.OrdinaryShareNumber)
	}
}

func TestMembers_CreateRollsBackOnLinkFailure(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	store := &failingStore{Store: mem, failAddMember: true}
	svc, _ := service.NewMemberService(domain.MemberSecretary, store, zap.NewNop())
	alice := seedClient(t, mem, "alice@example.com", 0)
	company := seedCompany(t, mem, alice.ID, "Acme")

	if _, err := svc.Create(ctx, company, &domain.MemberInput{Name: "Sam"}); err == nil {
		t.Fatal("expected error")
	}
	if store.lastMemberID == "" {
		t.Fatal("expected member to have been created")
	}
	left, _ := mem.GetMember(ctx, domain.MemberSecretary, store.lastMemberID)
	if left != nil {
		t.Errorf("expected orphan removed, got %+v", left)
	}
}
