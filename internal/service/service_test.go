package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/memstore"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/infra/ratelimit"
	"github.com/boddenberg/client-portal-go/internal/service"
)

const testSecret = "service-test-secret"

// failingStore wraps the memory store and fails selected writes.
type failingStore struct {
	*memstore.Store
	failTxnCreate  bool
	failAddService bool
	failAddMember  bool
	failTxnDelete  bool
	hideClients    bool

	lastMemberID string
}

func (f *failingStore) CreateMember(ctx context.Context, m *domain.Member) error {
	err := f.Store.CreateMember(ctx, m)
	f.lastMemberID = m.ID
	return err
}

func (f *failingStore) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if f.failTxnCreate {
		return &domain.ErrStorage{Op: "create_transaction", Err: errors.New("boom")}
	}
	return f.Store.CreateTransaction(ctx, t)
}

func (f *failingStore) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	if f.failTxnDelete {
		return false, &domain.ErrStorage{Op: "delete_transaction", Err: errors.New("boom")}
	}
	return f.Store.DeleteTransaction(ctx, id)
}

func (f *failingStore) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	if f.hideClients {
		return nil, nil
	}
	return f.Store.GetClient(ctx, id)
}

func (f *failingStore) AddServiceToCompany(ctx context.Context, companyID, serviceID string) error {
	if f.failAddService {
		return &domain.ErrStorage{Op: "add_service", Err: errors.New("boom")}
	}
	return f.Store.AddServiceToCompany(ctx, companyID, serviceID)
}

func (f *failingStore) AddMemberToCompany(ctx context.Context, companyID string, kind domain.MemberKind, memberID string) error {
	if f.failAddMember {
		return &domain.ErrStorage{Op: "add_member", Err: errors.New("boom")}
	}
	return f.Store.AddMemberToCompany(ctx, companyID, kind, memberID)
}

func newAuth(store *memstore.Store, clock clockwork.Clock) (*service.AuthService, *observability.Metrics) {
	metrics := observability.NewMetrics()
	svc := service.NewAuthService(
		store,
		authz.NewTokenIssuer(testSecret, time.Hour),
		ratelimit.NewMemory(clock, 0),
		service.AuthOptions{LoginRateLimit: 3, LoginRateWindow: time.Minute, BcryptCost: bcrypt.MinCost},
		metrics,
		zap.NewNop(),
	)
	return svc, metrics
}

func seedClient(t *testing.T, store interface {
	CreateClient(context.Context, *domain.Client) error
}, email string, credits int64) *domain.Client {
	t.Helper()
	c := &domain.Client{Email: email, PasswordHash: "x", Credits: credits}
	if err := store.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedCompany(t *testing.T, store *memstore.Store, ownerID, name string) *domain.Company {
	t.Helper()
	c := &domain.Company{Name: name}
	if err := store.CreateCompany(context.Background(), ownerID, c); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	got, _ := store.GetCompany(context.Background(), c.ID)
	return got
}

func companyInput(name string) *domain.CompanyInput {
	return &domain.CompanyInput{
		Name:               name,
		Description:        "trading",
		SSIC:               "46900",
		Address:            "1 Raffles Place",
		PaidUpShareCapital: 1000,
	}
}
