package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var billingTracer = otel.Tracer("service/billing")

type BillingService struct {
	store  port.Store
	logger *zap.Logger
}

func NewBillingService(store port.Store, logger *zap.Logger) *BillingService {
	return &BillingService{store: store, logger: logger}
}

// AddEntry appends an unpaid billing entry to the company.
func (s *BillingService) AddEntry(ctx context.Context, company *domain.Company, req *domain.BillingRequest) (*domain.BillingEntry, error) {
	ctx, span := billingTracer.Start(ctx, "BillingService.AddEntry")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry := domain.BillingEntry{
		ID:          uuid.NewString(),
		Description: req.Description,
		Amount:      req.Amount,
	}
	if err := s.store.AddBillingEntry(ctx, company.ID, entry); err != nil {
		return nil, fmt.Errorf("add billing entry: %w", err)
	}

	s.logger.Info("billing entry added",
		zap.String("company_id", company.ID),
		zap.String("billing_id", entry.ID),
		zap.Float64("amount", entry.Amount),
	)
	return &entry, nil
}

// MarkPaid flags one entry of the company as paid.
func (s *BillingService) MarkPaid(ctx context.Context, company *domain.Company, billingID string) error {
	ctx, span := billingTracer.Start(ctx, "BillingService.MarkPaid")
	defer span.End()

	ok, err := s.store.MarkBillingPaid(ctx, company.ID, billingID)
	if err != nil {
		return fmt.Errorf("mark billing paid: %w", err)
	}
	if !ok {
		return &domain.ErrResourceNotFound{Resource: "billing", ID: billingID}
	}
	return nil
}

// ForClient groups billing entries by every company the client owns.
func (s *BillingService) ForClient(ctx context.Context, clientID string) ([]domain.CompanyBilling, error) {
	ctx, span := billingTracer.Start(ctx, "BillingService.ForClient")
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

	out := make([]domain.CompanyBilling, 0, len(companies))
	for _, c := range companies {
		var outstanding float64
		for _, b := range c.Billing {
			if !b.Paid {
				outstanding += b.Amount
			}
		}
		entries := c.Billing
		if entries == nil {
			entries = []domain.BillingEntry{}
		}
		out = append(out, domain.CompanyBilling{
			CompanyID:   c.ID,
			CompanyName: c.Name,
			Billing:     entries,
			Outstanding: outstanding,
		})
	}
	return out, nil
}
