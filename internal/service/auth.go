// Package service holds the portal's business operations. Handlers call
// services after the authorization pipeline has produced an AuthContext.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const minPasswordLength = 6

// AuthOptions tunes login throttling and hashing.
type AuthOptions struct {
	LoginRateLimit  int
	LoginRateWindow time.Duration
	BcryptCost      int // zero selects bcrypt.DefaultCost
}

// AuthService orchestrates authentication flows.
type AuthService struct {
	store     port.Store
	tokens    port.TokenIssuer
	limiter   port.RateLimiter
	opts      AuthOptions
	dummyHash []byte
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.Store, tokens port.TokenIssuer, limiter port.RateLimiter, opts AuthOptions, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the email is unknown so both paths cost the same.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), opts.BcryptCost)

	return &AuthService{
		store:     store,
		tokens:    tokens,
		limiter:   limiter,
		opts:      opts,
		dummyHash: dummy,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Register: POST /api/clients/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.RegisterResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}

	existing, err := s.store.GetClientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing client: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	client := &domain.Client{
		Email:        email,
		PasswordHash: string(hash),
		CompanyIDs:   []string{},
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	s.logger.Info("client registered", zap.String("client_id", client.ID))
	return &domain.RegisterResponse{Message: "Client registered successfully", ID: client.ID}, nil
}

// ============================================================
// Login: POST /api/clients/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "required"}
	}

	limitKey := "login:" + email
	decision, err := s.limiter.Allow(ctx, limitKey, s.opts.LoginRateLimit, s.opts.LoginRateWindow)
	if err != nil {
		// Fail open when the limiter backend is down.
		s.logger.Warn("login: rate limiter unavailable", zap.Error(err))
	} else if !decision.Allowed {
		s.metrics.IncrLogin("throttled")
		span.SetAttributes(attribute.Bool("login.throttled", true))
		return nil, &domain.ErrRateLimited{RetryAfter: time.Until(decision.ResetAt)}
	}

	client, err := s.store.GetClientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.metrics.IncrLogin("bad_credentials")
		return nil, &domain.ErrBadCredentials{}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.IncrLogin("bad_credentials")
		s.logger.Warn("login: wrong password", zap.String("client_id", client.ID))
		return nil, &domain.ErrBadCredentials{}
	}

	if err := s.limiter.Reset(ctx, limitKey); err != nil {
		s.logger.Warn("login: reset rate limiter", zap.Error(err))
	}

	token, err := s.tokens.Issue(client.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	profile, err := s.profile(ctx, client)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("client logged in", zap.String("client_id", client.ID))

	return &domain.LoginResponse{
		BearerToken: authz.BearerPrefix + token,
		Client:      profile,
	}, nil
}

// ============================================================
// Profile: GET /api/clients/clients
// ============================================================

func (s *AuthService) Profile(ctx context.Context, clientID string) (*domain.ClientProfile, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Profile")
	defer span.End()

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if client == nil {
		return nil, &domain.ErrCallerNotFound{ClientID: clientID}
	}
	return s.profile(ctx, client)
}

func (s *AuthService) profile(ctx context.Context, client *domain.Client) (*domain.ClientProfile, error) {
	companies, err := s.store.ListCompanies(ctx, client.CompanyIDs)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return &domain.ClientProfile{
		ID:        client.ID,
		Email:     client.Email,
		Credits:   client.Credits,
		Companies: companies,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &domain.ErrValidation{Field: "email", Message: "invalid address"}
	}
	return email, nil
}
