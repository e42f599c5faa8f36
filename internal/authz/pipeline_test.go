package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/domain"
)

var guardedSecretary = authz.MustPolicy("secretary",
	authz.StepAuthenticate, authz.StepResolveTenant, authz.StepGuardSecretary)

func newPipeline(t *testing.T, w *world) (*authz.Pipeline, *countingMembers, *fakeRecorder, *authz.TokenIssuer) {
	t.Helper()
	members := &countingMembers{inner: w.store}
	rec := &fakeRecorder{}
	p := authz.NewPipeline(
		authz.NewTokenVerifier(testSecret),
		authz.NewTenantResolver(w.store, w.store),
		authz.NewResourceGuard(members),
		rec,
		zap.NewNop(),
	)
	return p, members, rec, authz.NewTokenIssuer(testSecret, time.Hour)
}

func bearer(t *testing.T, issuer *authz.TokenIssuer, clientID string) string {
	t.Helper()
	tok, err := issuer.Issue(clientID)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		steps   []authz.Step
		wantErr bool
	}{
		{"auth only", []authz.Step{authz.StepAuthenticate}, false},
		{"tenant", []authz.Step{authz.StepAuthenticate, authz.StepResolveTenant}, false},
		{"guard", []authz.Step{authz.StepAuthenticate, authz.StepResolveTenant, authz.StepGuardShareholder}, false},
		{"path tenant", []authz.Step{authz.StepAuthenticate, authz.StepResolveTenantFromPath}, false},
		{"empty", nil, true},
		{"tenant without auth", []authz.Step{authz.StepResolveTenant}, true},
		{"guard without tenant", []authz.Step{authz.StepAuthenticate, authz.StepGuardSecretary}, true},
		{"authenticate twice", []authz.Step{authz.StepAuthenticate, authz.StepAuthenticate}, true},
		{"two guards", []authz.Step{authz.StepAuthenticate, authz.StepResolveTenant, authz.StepGuardSecretary, authz.StepGuardShareholder}, true},
		{"unknown step", []authz.Step{authz.StepAuthenticate, "sudo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.NewPolicy(tt.name, tt.steps...).Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMustPolicy_PanicsOnInvalid(t *testing.T) {
	require.Panics(t, func() { authz.MustPolicy("bad", authz.StepGuardSecretary) })
}

func TestAuthorize_FullChain(t *testing.T) {
	w := newWorld(t)
	p, _, rec, issuer := newPipeline(t, w)

	ac, err := p.Authorize(context.Background(), guardedSecretary, authz.Request{
		Credential:      bearer(t, issuer, w.alice.ID),
		SelectedCompany: w.aliceCo.ID,
		ResourceID:      w.aliceSec.ID,
	})
	require.NoError(t, err)
	require.Equal(t, authz.ResourceAuthorized, ac.State)
	require.Equal(t, w.alice.ID, ac.Caller.ClientID)
	require.Equal(t, w.aliceCo.ID, ac.Tenant.ID)
	require.Equal(t, w.aliceSec.ID, ac.Resource.ID)

	require.Equal(t, []recordedDecision{
		{"authenticate", "allow"},
		{"resolve-tenant", "allow"},
		{"guard-secretary", "allow"},
	}, rec.decisions)
}

func TestAuthorize_TenantFailureSkipsGuard(t *testing.T) {
	w := newWorld(t)
	p, members, rec, issuer := newPipeline(t, w)

	// Alice selects Bob's company and asks for Bob's secretary.
	_, err := p.Authorize(context.Background(), guardedSecretary, authz.Request{
		Credential:      bearer(t, issuer, w.alice.ID),
		SelectedCompany: w.bobCo.ID,
		ResourceID:      w.bobSec.ID,
	})
	var forbidden *domain.ErrTenantForbidden
	require.ErrorAs(t, err, &forbidden)
	require.Zero(t, members.calls.Load(), "guard must not run after a tenant failure")
	require.Equal(t, recordedDecision{"resolve-tenant", "tenant_forbidden"}, rec.decisions[len(rec.decisions)-1])
}

func TestAuthorize_MissingTokenStopsFirst(t *testing.T) {
	w := newWorld(t)
	p, members, rec, _ := newPipeline(t, w)

	_, err := p.Authorize(context.Background(), guardedSecretary, authz.Request{
		SelectedCompany: w.aliceCo.ID,
		ResourceID:      w.aliceSec.ID,
	})
	var missing *domain.ErrMissingCredential
	require.ErrorAs(t, err, &missing)
	require.Zero(t, members.calls.Load())
	require.Equal(t, []recordedDecision{{"authenticate", "missing_credential"}}, rec.decisions)
}

func TestAuthorize_GuardForbidsForeignMember(t *testing.T) {
	w := newWorld(t)
	p, _, _, issuer := newPipeline(t, w)

	_, err := p.Authorize(context.Background(), guardedSecretary, authz.Request{
		Credential:      bearer(t, issuer, w.alice.ID),
		SelectedCompany: w.aliceCo.ID,
		ResourceID:      w.bobSec.ID,
	})
	var forbidden *domain.ErrResourceForbidden
	require.ErrorAs(t, err, &forbidden)
}

func TestAuthorize_TenantFromPath(t *testing.T) {
	w := newWorld(t)
	p, _, _, issuer := newPipeline(t, w)
	policy := authz.MustPolicy("company", authz.StepAuthenticate, authz.StepResolveTenantFromPath)
	cred := bearer(t, issuer, w.alice.ID)

	ac, err := p.Authorize(context.Background(), policy, authz.Request{Credential: cred, PathCompanyID: w.aliceCo.ID})
	require.NoError(t, err)
	require.Equal(t, authz.TenantResolved, ac.State)

	// Header pointing at an owned company cannot authorize a foreign path.
	_, err = p.Authorize(context.Background(), policy, authz.Request{
		Credential:      cred,
		SelectedCompany: w.aliceCo.ID,
		PathCompanyID:   w.bobCo.ID,
	})
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)

	_, err = p.Authorize(context.Background(), policy, authz.Request{Credential: cred, PathCompanyID: w.bobCo.ID})
	var forbidden *domain.ErrTenantForbidden
	require.ErrorAs(t, err, &forbidden)
}

func TestAuthorize_RejectsInvalidPolicy(t *testing.T) {
	w := newWorld(t)
	p, _, rec, _ := newPipeline(t, w)

	_, err := p.Authorize(context.Background(), authz.NewPolicy("broken", authz.StepGuardShareholder), authz.Request{})
	require.Error(t, err)
	require.Empty(t, rec.decisions)
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "allow", authz.Outcome(nil))
	require.Equal(t, "resource_not_found", authz.Outcome(&domain.ErrResourceNotFound{}))
	require.Equal(t, "error", authz.Outcome(&domain.ErrStorage{Op: "x"}))
}
