package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var catalogTracer = otel.Tracer("service/catalog")

const catalogCacheKey = "services:all"

// CatalogService serves the service catalogue and lets a company engage
// services in exchange for the owner's credits.
type CatalogService struct {
	store   port.Store
	cache   port.Cache[[]*domain.Service]
	now     func() time.Time
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewCatalogService(store port.Store, cache port.Cache[[]*domain.Service], metrics *observability.Metrics, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:   store,
		cache:   cache,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// Read: GET /api/service/services[/{serviceId}]
// ============================================================

func (s *CatalogService) List(ctx context.Context) ([]*domain.Service, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.List")
	defer span.End()

	if cached, ok := s.cache.Get(catalogCacheKey); ok {
		s.metrics.IncrCacheHit("catalogue")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.metrics.IncrCacheMiss("catalogue")

	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if services == nil {
		services = []*domain.Service{}
	}
	s.cache.Set(catalogCacheKey, services)
	return services, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Service, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.Get")
	defer span.End()

	svc, err := s.store.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "service", ID: id}
	}
	return svc, nil
}

// ============================================================
// Write: POST, PUT, DELETE /api/service/services
// ============================================================

func (s *CatalogService) Create(ctx context.Context, in *domain.ServiceInput) (*domain.Service, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.Create")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	svc := &domain.Service{
		Name:        in.Name,
		Description: in.Description,
		Cost:        in.Cost,
		Category:    in.Category,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	s.cache.Delete(catalogCacheKey)

	s.logger.Info("service created", zap.String("service_id", svc.ID), zap.Int64("cost", svc.Cost))
	return svc, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, in *domain.ServiceInput) (*domain.Service, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.Update")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if existing == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "service", ID: id}
	}

	existing.Name = in.Name
	existing.Description = in.Description
	existing.Cost = in.Cost
	existing.Category = in.Category

	ok, err := s.store.UpdateService(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	if !ok {
		return nil, &domain.ErrResourceNotFound{Resource: "service", ID: id}
	}
	s.cache.Delete(catalogCacheKey)
	return existing, nil
}

// Delete removes the service and pulls it from every company that engaged it.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.Delete")
	defer span.End()

	ok, err := s.store.DeleteService(ctx, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if !ok {
		return &domain.ErrResourceNotFound{Resource: "service", ID: id}
	}
	s.cache.Delete(catalogCacheKey)
	return nil
}

// ============================================================
// Engage: POST /api/service/services/engage/{serviceId}
// ============================================================

// Engage charges the caller the service cost and attaches the service to
// the company. The debit is conditional on the balance covering the cost.
func (s *CatalogService) Engage(ctx context.Context, clientID string, company *domain.Company, serviceID string) (*domain.EngageResponse, error) {
	ctx, span := catalogTracer.Start(ctx, "CatalogService.Engage")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", company.ID),
		attribute.String("service.id", serviceID),
	)

	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, &domain.ErrResourceNotFound{Resource: "service", ID: serviceID}
	}
	for _, id := range company.ServiceIDs {
		if id == svc.ID {
			return nil, &domain.ErrConflict{Message: "service already engaged"}
		}
	}

	client, ok, err := s.store.DebitCredits(ctx, clientID, svc.Cost)
	if err != nil {
		return nil, fmt.Errorf("debit credits: %w", err)
	}
	if !ok {
		return nil, s.debitRefused(ctx, clientID, svc.Cost)
	}

	if err := s.store.AddServiceToCompany(ctx, company.ID, svc.ID); err != nil {
		if _, rerr := s.store.AdjustCredits(ctx, clientID, svc.Cost); rerr != nil {
			s.logger.Error("engage: refund failed",
				zap.String("client_id", clientID),
				zap.Int64("amount", svc.Cost),
				zap.Error(rerr),
			)
		}
		return nil, fmt.Errorf("attach service: %w", err)
	}

	txn := &domain.Transaction{
		ClientID:               clientID,
		Amount:                 svc.Cost,
		Type:                   domain.TransactionDebit,
		CreditAfterTransaction: client.Credits,
		CreatedAt:              s.now().UTC(),
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		// The charge and the engagement already happened.
		s.logger.Error("engage: record transaction",
			zap.String("client_id", clientID),
			zap.String("service_id", svc.ID),
			zap.Error(err),
		)
		txn = nil
	}

	s.logger.Info("service engaged",
		zap.String("client_id", clientID),
		zap.String("company_id", company.ID),
		zap.String("service_id", svc.ID),
		zap.Int64("credits_after", client.Credits),
	)
	return &domain.EngageResponse{
		Message:     "Service engaged successfully",
		Credits:     client.Credits,
		Transaction: txn,
	}, nil
}

// debitRefused tells a missing client apart from one that cannot afford
// the cost.
func (s *CatalogService) debitRefused(ctx context.Context, clientID string, cost int64) error {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return &domain.ErrCallerNotFound{ClientID: clientID}
	}
	return &domain.ErrInsufficientCredits{Available: client.Credits, Required: cost}
}
