package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

var tracer = otel.Tracer("authz")

// State is how far a request has progressed through authorization.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	TenantResolved
	ResourceAuthorized
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case TenantResolved:
		return "tenant_resolved"
	case ResourceAuthorized:
		return "resource_authorized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step is one stage of a policy.
type Step string

const (
	StepAuthenticate          Step = "authenticate"
	StepResolveTenant         Step = "resolve-tenant"
	StepResolveTenantFromPath Step = "resolve-tenant-from-path"
	StepGuardSecretary        Step = "guard-secretary"
	StepGuardShareholder      Step = "guard-shareholder"
)

// transition returns the state a step needs and the state it produces.
func (s Step) transition() (from, to State, ok bool) {
	switch s {
	case StepAuthenticate:
		return Unauthenticated, Authenticated, true
	case StepResolveTenant, StepResolveTenantFromPath:
		return Authenticated, TenantResolved, true
	case StepGuardSecretary, StepGuardShareholder:
		return TenantResolved, ResourceAuthorized, true
	default:
		return 0, 0, false
	}
}

// Policy is the ordered list of steps a route requires.
type Policy struct {
	Name  string
	Steps []Step
}

// NewPolicy builds a policy. Call Validate (or use MustPolicy) before use.
func NewPolicy(name string, steps ...Step) Policy {
	return Policy{Name: name, Steps: steps}
}

// MustPolicy builds a policy and panics if it is invalid. Intended for
// route tables built at startup.
func MustPolicy(name string, steps ...Step) Policy {
	p := NewPolicy(name, steps...)
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

// Validate rejects policies whose steps skip a prerequisite, for example a
// guard without a resolved tenant or a tenant without authentication.
func (p Policy) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("policy %q: no steps", p.Name)
	}
	state := Unauthenticated
	for i, step := range p.Steps {
		from, to, ok := step.transition()
		if !ok {
			return fmt.Errorf("policy %q: unknown step %q", p.Name, step)
		}
		if state != from {
			return fmt.Errorf("policy %q: step %d (%s) requires %s, have %s", p.Name, i, step, from, state)
		}
		state = to
	}
	return nil
}

func (p Policy) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = string(s)
	}
	return p.Name + "[" + strings.Join(parts, " > ") + "]"
}

// Request carries the raw inputs the steps read.
type Request struct {
	Credential      string // bearer token header value
	SelectedCompany string // selectedCompany header value
	PathCompanyID   string // company id from the URL, for company routes
	ResourceID      string // member id from the URL, for guarded routes
}

// AuthContext accumulates what each successful step established.
type AuthContext struct {
	State    State
	Caller   *domain.Caller
	Tenant   *domain.Company
	Resource *domain.Member
}

// DecisionRecorder counts step outcomes. observability.Metrics implements it.
type DecisionRecorder interface {
	IncrAuthzDecision(step, outcome string)
}

// Pipeline runs policies against requests.
type Pipeline struct {
	tokens   *TokenVerifier
	tenants  *TenantResolver
	guard    *ResourceGuard
	recorder DecisionRecorder
	logger   *zap.Logger
}

// NewPipeline wires the three stages together.
func NewPipeline(tokens *TokenVerifier, tenants *TenantResolver, guard *ResourceGuard, recorder DecisionRecorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		tokens:   tokens,
		tenants:  tenants,
		guard:    guard,
		recorder: recorder,
		logger:   logger,
	}
}

// Authorize runs the policy's steps in order. The first failing step ends
// the run; its error is returned unchanged.
func (p *Pipeline) Authorize(ctx context.Context, policy Policy, req Request) (*AuthContext, error) {
	ctx, span := tracer.Start(ctx, "authz.Authorize")
	defer span.End()
	span.SetAttributes(attribute.String("authz.policy", policy.Name))

	if err := policy.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid policy")
		return nil, err
	}

	ac := &AuthContext{State: Unauthenticated}
	for _, step := range policy.Steps {
		err := p.run(ctx, step, req, ac)
		outcome := Outcome(err)
		if p.recorder != nil {
			p.recorder.IncrAuthzDecision(string(step), outcome)
		}
		if err != nil {
			span.SetAttributes(
				attribute.String("authz.denied_step", string(step)),
				attribute.String("authz.outcome", outcome),
			)
			span.SetStatus(codes.Error, outcome)
			p.logger.Debug("authorization denied",
				zap.String("policy", policy.Name),
				zap.String("step", string(step)),
				zap.String("outcome", outcome),
				zap.Error(err),
			)
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("authz.state", ac.State.String()))
	return ac, nil
}

func (p *Pipeline) run(ctx context.Context, step Step, req Request, ac *AuthContext) error {
	switch step {
	case StepAuthenticate:
		caller, err := p.tokens.Verify(req.Credential)
		if err != nil {
			return err
		}
		ac.Caller = caller
		ac.State = Authenticated

	case StepResolveTenant:
		company, err := p.tenants.Resolve(ctx, ac.Caller, req.SelectedCompany)
		if err != nil {
			return err
		}
		ac.Tenant = company
		ac.State = TenantResolved

	case StepResolveTenantFromPath:
		selected := strings.TrimSpace(req.SelectedCompany)
		if selected != "" && selected != req.PathCompanyID {
			return &domain.ErrValidation{Field: "selectedCompany", Message: "does not match the company in the path"}
		}
		company, err := p.tenants.Resolve(ctx, ac.Caller, req.PathCompanyID)
		if err != nil {
			return err
		}
		ac.Tenant = company
		ac.State = TenantResolved

	case StepGuardSecretary, StepGuardShareholder:
		kind := domain.MemberSecretary
		if step == StepGuardShareholder {
			kind = domain.MemberShareholder
		}
		member, err := p.guard.Check(ctx, kind, req.ResourceID, ac.Tenant)
		if err != nil {
			return err
		}
		ac.Resource = member
		ac.State = ResourceAuthorized

	default:
		return fmt.Errorf("unknown step %q", step)
	}
	return nil
}

// Outcome maps a step result to its metric label.
func Outcome(err error) string {
	if err == nil {
		return "allow"
	}
	var (
		missing  *domain.ErrMissingCredential
		invalid  *domain.ErrInvalidCredential
		caller   *domain.ErrCallerNotFound
		tenantNF *domain.ErrTenantNotFound
		tenantF  *domain.ErrTenantForbidden
		resNF    *domain.ErrResourceNotFound
		resF     *domain.ErrResourceForbidden
		validErr *domain.ErrValidation
	)
	switch {
	case errors.As(err, &missing):
		return "missing_credential"
	case errors.As(err, &invalid):
		return "invalid_credential"
	case errors.As(err, &caller):
		return "caller_not_found"
	case errors.As(err, &tenantNF):
		return "tenant_not_found"
	case errors.As(err, &tenantF):
		return "tenant_forbidden"
	case errors.As(err, &resNF):
		return "resource_not_found"
	case errors.As(err, &resF):
		return "resource_forbidden"
	case errors.As(err, &validErr):
		return "validation"
	default:
		return "error"
	}
}
