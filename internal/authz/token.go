// Package authz is the authorization and tenant-scoping core: it turns a
// bearer credential into a Caller, binds the Caller to one owned company
// (the tenant) and checks that a secretary or shareholder belongs to that
// tenant. Each stage only runs after the previous one succeeded.
package authz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// BearerPrefix is prepended to tokens handed to the front end.
const BearerPrefix = "Bearer "

// Claims are the JWT claims carried by portal tokens. The client id lives
// in the "id" claim, which is what existing front ends and tokens use.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Option configures token signing and verification.
type Option func(*options)

type options struct {
	clock  clockwork.Clock
	issuer string
}

// WithClock overrides the clock used for iat/exp.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIssuer sets the iss claim on issued tokens.
func WithIssuer(iss string) Option {
	return func(o *options) { o.issuer = iss }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StripBearer removes a leading "Bearer" scheme from a header value.
func StripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	scheme := strings.TrimSpace(BearerPrefix)
	if len(raw) >= len(scheme) && strings.EqualFold(raw[:len(scheme)], scheme) {
		rest := raw[len(scheme):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return raw
}

// ============================================================
// Verifier
// ============================================================

// TokenVerifier validates HMAC-signed bearer tokens. It is stateless:
// there is no revocation list, so a token stays valid until it expires.
type TokenVerifier struct {
	secret []byte
	clock  clockwork.Clock
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string, opts ...Option) *TokenVerifier {
	o := buildOptions(opts)
	return &TokenVerifier{secret: []byte(secret), clock: o.clock}
}

// Verify checks the raw header value and returns the authenticated caller.
func (v *TokenVerifier) Verify(raw string) (*domain.Caller, error) {
	tokenString := StripBearer(raw)
	if tokenString == "" {
		return nil, &domain.ErrMissingCredential{}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrInvalidCredential{Reason: "expired"}
		}
		return nil, &domain.ErrInvalidCredential{Reason: "malformed or bad signature"}
	}
	if claims.ID == "" {
		return nil, &domain.ErrInvalidCredential{Reason: "missing id claim"}
	}

	return &domain.Caller{ClientID: claims.ID}, nil
}

// ============================================================
// Issuer
// ============================================================

// TokenIssuer signs HS256 tokens for authenticated clients.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clockwork.Clock
}

// NewTokenIssuer creates an issuer whose tokens live for ttl.
func NewTokenIssuer(secret string, ttl time.Duration, opts ...Option) *TokenIssuer {
	o := buildOptions(opts)
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, issuer: o.issuer, clock: o.clock}
}

// Issue returns a signed token for clientID, without the "Bearer " prefix.
func (i *TokenIssuer) Issue(clientID string) (string, error) {
	now := i.clock.Now()
	claims := Claims{
		ID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TTL returns the token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}
