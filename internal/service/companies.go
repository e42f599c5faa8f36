package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/blob"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var companyTracer = otel.Tracer("service/companies")

// CompanyService manages companies owned by a client. Every method that
// takes a *domain.Company expects it to come from an authorized AuthContext.
type CompanyService struct {
	store  port.Store
	blobs  port.BlobStore // nil keeps document bytes inline
	now    func() time.Time
	logger *zap.Logger
}

func NewCompanyService(store port.Store, blobs port.BlobStore, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		store:  store,
		blobs:  blobs,
		now:    time.Now,
		logger: logger,
	}
}

// ============================================================
// Create: POST /api/companies/companies
// ============================================================

func (s *CompanyService) Create(ctx context.Context, clientID string, in *domain.CompanyInput) (*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	company := &domain.Company{
		Name:               in.Name,
		Description:        in.Description,
		SSIC:               in.SSIC,
		Address:            in.Address,
		PaidUpShareCapital: in.PaidUpShareCapital,
		SecretaryIDs:       []string{},
		ShareholderIDs:     []string{},
		ServiceIDs:         []string{},
		Documents:          []domain.Document{},
		Billing:            []domain.BillingEntry{},
	}
	if err := s.store.CreateCompany(ctx, clientID, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.logger.Info("company created",
		zap.String("client_id", clientID),
		zap.String("company_id", company.ID),
	)
	return company, nil
}

// List returns only the companies the caller owns.
func (s *CompanyService) List(ctx context.Context, clientID string) ([]*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.List")
	defer span.End()

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrCallerNotFound{ClientID: clientID}
	}

	companies, err := s.store.ListCompanies(ctx, client.CompanyIDs)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

// ============================================================
// Detail: GET /api/companies/companies/{id}
// ============================================================

// Detail populates members and engaged services concurrently.
func (s *CompanyService) Detail(ctx context.Context, company *domain.Company) (*domain.CompanyDetail, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Detail")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", company.ID))

	detail := &domain.CompanyDetail{Company: company}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := s.store.ListMembers(gctx, domain.MemberSecretary, company.SecretaryIDs)
		if err != nil {
			return fmt.Errorf("list secretaries: %w", err)
		}
		detail.Secretaries = members
		return nil
	})
	g.Go(func() error {
		members, err := s.store.ListMembers(gctx, domain.MemberShareholder, company.ShareholderIDs)
		if err != nil {
			return fmt.Errorf("list shareholders: %w", err)
		}
		detail.Shareholders = members
		return nil
	})
	g.Go(func() error {
		services, err := s.store.ListServicesByID(gctx, company.ServiceIDs)
		if err != nil {
			return fmt.Errorf("list engaged services: %w", err)
		}
		detail.Services = services
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// ============================================================
// Update / Delete: PUT, DELETE /api/companies/companies/{id}
// ============================================================

func (s *CompanyService) Update(ctx context.Context, company *domain.Company, in *domain.CompanyInput) (*domain.Company, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Update")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateCompany(ctx, company.ID, in)
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}
	if updated == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "company", ID: company.ID}
	}
	return updated, nil
}

// Delete removes the company and pulls its id from every client.
func (s *CompanyService) Delete(ctx context.Context, company *domain.Company) error {
	ctx, span := companyTracer.Start(ctx, "CompanyService.Delete")
	defer span.End()

	deleted, err := s.store.DeleteCompany(ctx, company.ID)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if !deleted {
		return &domain.ErrResourceNotFound{Resource: "company", ID: company.ID}
	}

	s.logger.Info("company deleted", zap.String("company_id", company.ID))
	return nil
}

// ============================================================
// Documents: POST /api/companies/upload
// ============================================================

// UploadDocument attaches a file to the company. Content goes to the blob
// store when one is configured and is embedded in the record otherwise.
func (s *CompanyService) UploadDocument(ctx context.Context, company *domain.Company, filename, contentType string, data []byte) (*domain.Document, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.UploadDocument")
	defer span.End()

	if filename == "" {
		return nil, &domain.ErrValidation{Field: "file", Message: "filename required"}
	}
	if len(data) == 0 {
		return nil, &domain.ErrValidation{Field: "file", Message: "empty file"}
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	doc := domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  s.now().UTC(),
	}

	if s.blobs != nil {
		doc.StorageKey = blob.Key(company.ID, doc.ID, doc.UploadedAt)
		if err := s.blobs.Put(ctx, doc.StorageKey, contentType, data); err != nil {
			return nil, fmt.Errorf("store document: %w", err)
		}
	} else {
		doc.Content = data
	}

	if err := s.store.AddDocument(ctx, company.ID, doc); err != nil {
		return nil, fmt.Errorf("add document: %w", err)
	}

	s.logger.Info("document uploaded",
		zap.String("company_id", company.ID),
		zap.String("document_id", doc.ID),
		zap.Int64("size", doc.Size),
	)
	doc.Content = nil
	return &doc, nil
}

// GetDocument returns the document metadata with its content loaded.
func (s *CompanyService) GetDocument(ctx context.Context, company *domain.Company, documentID string) (*domain.Document, error) {
	ctx, span := companyTracer.Start(ctx, "CompanyService.GetDocument")
	defer span.End()

	var doc *domain.Document
	for i := range company.Documents {
		if company.Documents[i].ID == documentID {
			d := company.Documents[i]
			doc = &d
			break
		}
	}
	if doc == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "document", ID: documentID}
	}

	if doc.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("document %s is in blob storage but none is configured", doc.ID)
		}
		data, err := s.blobs.Get(ctx, doc.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		doc.Content = data
	}
	return doc, nil
}
