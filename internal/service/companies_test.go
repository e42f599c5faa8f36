package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
	"github.com/boddenberg/client-portal-go/internal/service"
)

type memBlobs struct {
	objects map[string][]byte
}

func (m *memBlobs) Put(_ context.Context, key, _ string, data []byte) error {
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, &domain.ErrResourceNotFound{Resource: "document", ID: key}
	}
	return data, nil
}

func TestCompany_CreateListDetail(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := service.NewCompanyService(store, nil, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	bob := seedClient(t, store, "bob@example.com", 0)

	created, err := svc.Create(ctx, alice.ID, companyInput("Acme"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.Create(ctx, bob.ID, companyInput("Globex")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	list, err := svc.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected only alice's company, got %+v", list)
	}

	sec := &domain.Member{Kind: domain.MemberSecretary, Name: "Sam"}
	if err := store.CreateMember(ctx, sec); err != nil {
		t.Fatal(err)
	}
	if err := store.AddMemberToCompany(ctx, created.ID, domain.MemberSecretary, sec.ID); err != nil {
		t.Fatal(err)
	}
	company, _ := store.GetCompany(ctx, created.ID)

	detail, err := svc.Detail(ctx, company)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(detail.Secretaries) != 1 || detail.Secretaries[0].Name != "Sam" {
		t.Errorf("expected secretary populated, got %+v", detail.Secretaries)
	}
	if len(detail.Shareholders) != 0 || len(detail.Services) != 0 {
		t.Errorf("expected no shareholders or services, got %+v", detail)
	}
}

func TestCompany_CreateValidation(t *testing.T) {
	store := memstore.New()
	svc := service.NewCompanyService(store, nil, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)

	in := companyInput("")
	_, err := svc.Create(context.Background(), alice.ID, in)
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "name" {
		t.Fatalf("expected validation on name, got %v", err)
	}
}

func TestCompany_UpdateAndDeleteTwice(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := service.NewCompanyService(store, nil, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	updated, err := svc.Update(ctx, company, companyInput("Acme Holdings"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Name != "Acme Holdings" {
		t.Errorf("expected renamed company, got %q", updated.Name)
	}

	if err := svc.Delete(ctx, company); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	owner, _ := store.GetClient(ctx, alice.ID)
	if owner.OwnsCompany(company.ID) {
		t.Error("expected company id pulled from owner")
	}

	err = svc.Delete(ctx, company)
	var nf *domain.ErrResourceNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCompany_DocumentInline(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := service.NewCompanyService(store, nil, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	doc, err := svc.UploadDocument(ctx, company, "constitution.txt", "", []byte("hello"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.StorageKey != "" || doc.Size != 5 {
		t.Errorf("unexpected document %+v", doc)
	}

	company, _ = store.GetCompany(ctx, company.ID)
	got, err := svc.GetDocument(ctx, company, doc.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Equal(got.Content, []byte("hello")) {
		t.Errorf("expected inline content, got %q", got.Content)
	}

	_, err = svc.GetDocument(ctx, company, "missing")
	var nf *domain.ErrResourceNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompany_DocumentBlob(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	blobs := &memBlobs{objects: map[string][]byte{}}
	svc := service.NewCompanyService(store, blobs, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	doc, err := svc.UploadDocument(ctx, company, "deck.pdf", "application/pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if doc.StorageKey == "" {
		t.Fatal("expected a storage key")
	}
	if _, ok := blobs.objects[doc.StorageKey]; !ok {
		t.Fatal("expected object in blob store")
	}

	company, _ = store.GetCompany(ctx, company.ID)
	got, err := svc.GetDocument(ctx, company, doc.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(got.Content) != "%PDF-1.4" {
		t.Errorf("expected blob content, got %q", got.Content)
	}
}

func TestCompany_UploadRejectsEmpty(t *testing.T) {
	store := memstore.New()
	svc := service.NewCompanyService(store, nil, zap.NewNop())
	alice := seedClient(t, store, "alice@example.com", 0)
	company := seedCompany(t, store, alice.ID, "Acme")

	_, err := svc.UploadDocument(context.Background(), company, "empty.txt", "", nil)
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
