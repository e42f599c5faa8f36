package handler

import (
	"net/http"

	"github.com/boddenberg/client-portal-go/internal/authz"
	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/service"
	"github.com/boddenberg/client-portal-go/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Route policies. Each is validated when the package loads.
var (
	policyAuthenticated = authz.MustPolicy("authenticated",
		authz.StepAuthenticate)
	policyTenant = authz.MustPolicy("tenant",
		authz.StepAuthenticate, authz.StepResolveTenant)
	policyCompanyPath = authz.MustPolicy("company-path",
		authz.StepAuthenticate, authz.StepResolveTenantFromPath)
	policySecretary = authz.MustPolicy("secretary",
		authz.StepAuthenticate, authz.StepResolveTenant, authz.StepGuardSecretary)
	policyShareholder = authz.MustPolicy("shareholder",
		authz.StepAuthenticate, authz.StepResolveTenant, authz.StepGuardShareholder)
)

// Services groups what the router dispatches to.
type Services struct {
	Auth         *service.AuthService
	Companies    *service.CompanyService
	Billing      *service.BillingService
	Secretaries  *service.MemberService
	Shareholders *service.MemberService
	Catalog      *service.CatalogService
	Ledger       *service.LedgerService
	Health       *service.HealthService
}

// Options carries the router's non-service dependencies.
type Options struct {
	Pipeline       *authz.Pipeline
	Webhook        *webhook.Verifier // nil disables /s2sTxnEnd
	AllowedOrigins []string
	UploadMaxBytes int64
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options) http.Handler {
	logger := opts.Logger
	metrics := opts.Metrics
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 10 << 20
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerToken, headerSelectedCompany},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Health))
	r.Get("/readyz", readyzHandler(svc.Health))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Payment gateway ---
	r.Post("/s2sTxnEnd", gatewayCallbackHandler(opts.Webhook, metrics, logger))

	guard := func(p authz.Policy) func(http.Handler) http.Handler {
		return authorize(opts.Pipeline, p, logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics/authz", authzMetricsHandler(metrics))

		// =============================================
		// 1. Clients
		// =============================================
		r.Route("/clients", func(r chi.Router) {
			r.Post("/register", registerHandler(svc.Auth, logger))
			r.Post("/login", loginHandler(svc.Auth, logger))

			r.With(guard(policyAuthenticated)).Get("/clients", profileHandler(svc.Auth, logger))
			r.With(guard(policyAuthenticated)).Post("/credits/purchase", purchaseCreditsHandler(svc.Ledger, logger))
			r.With(guard(policyAuthenticated)).Get("/billing", clientBillingHandler(svc.Billing, logger))
		})

		// =============================================
		// 2-4. Companies, documents, billing
		// =============================================
		r.Route("/companies", func(r chi.Router) {
			r.With(guard(policyAuthenticated)).Post("/companies", createCompanyHandler(svc.Companies, logger))
			r.With(guard(policyAuthenticated)).Get("/companies", listCompaniesHandler(svc.Companies, logger))

			r.With(guard(policyCompanyPath)).Get("/companies/{id}", getCompanyHandler(svc.Companies, logger))
			r.With(guard(policyCompanyPath)).Put("/companies/{id}", updateCompanyHandler(svc.Companies, logger))
			r.With(guard(policyCompanyPath)).Delete("/companies/{id}", deleteCompanyHandler(svc.Companies, logger))

			r.With(guard(policyTenant)).Post("/upload", uploadDocumentHandler(svc.Companies, opts.UploadMaxBytes, logger))
			r.With(guard(policyTenant)).Get("/documents/{documentId}", downloadDocumentHandler(svc.Companies, logger))

			r.With(guard(policyTenant)).Post("/billing", addBillingHandler(svc.Billing, logger))
			r.With(guard(policyTenant)).Post("/billing/{billingId}/pay", payBillingHandler(svc.Billing, logger))
		})

		// =============================================
		// 5. Secretaries & Shareholders
		// =============================================
		r.Route("/secretaries/secretaries", memberRoutes(svc.Secretaries, guard, policySecretary, logger))
		r.Route("/shareholders/shareholders", memberRoutes(svc.Shareholders, guard, policyShareholder, logger))

		// =============================================
		// 6. Service catalogue
		// =============================================
		r.Route("/service/services", func(r chi.Router) {
			r.Get("/", listServicesHandler(svc.Catalog, logger))
			r.Get("/{serviceId}", getServiceHandler(svc.Catalog, logger))

			r.With(guard(policyAuthenticated)).Post("/", createServiceHandler(svc.Catalog, logger))
			r.With(guard(policyAuthenticated)).Put("/{serviceId}", updateServiceHandler(svc.Catalog, logger))
			r.With(guard(policyAuthenticated)).Delete("/{serviceId}", deleteServiceHandler(svc.Catalog, logger))
			r.With(guard(policyTenant)).Post("/engage/{serviceId}", engageServiceHandler(svc.Catalog, logger))
		})

		// =============================================
		// 7. Transactions
		// =============================================
		r.Route("/transactions/transactions", func(r chi.Router) {
			r.Use(guard(policyAuthenticated))
			r.Post("/", createTransactionHandler(svc.Ledger, logger))
			r.Get("/", listTransactionsHandler(svc.Ledger, logger))
			r.Get("/{id}", getTransactionHandler(svc.Ledger, logger))
			r.Put("/{id}", updateTransactionHandler(svc.Ledger, logger))
			r.Delete("/{id}", deleteTransactionHandler(svc.Ledger, logger))
		})
	})

	return r
}

func memberRoutes(svc *service.MemberService, guard func(authz.Policy) func(http.Handler) http.Handler, resource authz.Policy, logger *zap.Logger) func(chi.Router) {
	h := memberHandlers{svc: svc, logger: logger}
	return func(r chi.Router) {
		r.With(guard(policyTenant)).Post("/", h.create)
		r.With(guard(policyTenant)).Get("/", h.list)
		r.With(guard(resource)).Get("/{id}", h.get)
		r.With(guard(resource)).Put("/{id}", h.update)
		r.With(guard(resource)).Delete("/{id}", h.delete)
	}
}

// ============================================================
// 9. Metrics & Health
// ============================================================

func healthzHandler(health *service.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "healthy"})
			return
		}
		writeJSON(w, http.StatusOK, health.Check(r.Context()))
	}
}

func readyzHandler(health *service.HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if status := health.Check(r.Context()); status.Status != "healthy" {
				writeJSON(w, http.StatusServiceUnavailable, status)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func authzMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAuthzSnapshot())
	}
}
