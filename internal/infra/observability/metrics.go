package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

const authzDecisionsName = "portal_authz_decisions_total"

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	authzDecisions *prometheus.CounterVec
	webhookResults *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	storeErrors    *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		authzDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: authzDecisionsName,
				Help: "Authorization decisions by pipeline step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		webhookResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_webhook_verifications_total",
				Help: "Payment gateway callbacks by verification result.",
			},
			[]string{"result"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_store_errors_total",
				Help: "Persistence gateway failures by operation.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordHTTPRequest records the duration of one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncrAuthzDecision counts one authorization step outcome.
func (m *Metrics) IncrAuthzDecision(step, outcome string) {
	m.authzDecisions.WithLabelValues(step, outcome).Inc()
}

// IncrWebhook counts a webhook verification ("verified" or "rejected").
func (m *Metrics) IncrWebhook(result string) {
	m.webhookResults.WithLabelValues(result).Inc()
}

// IncrLogin counts a login attempt outcome.
func (m *Metrics) IncrLogin(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// IncrStoreError counts a persistence failure.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// AuthzDecisionCount returns the current count for one step/outcome pair.
func (m *Metrics) AuthzDecisionCount(step, outcome string) float64 {
	return getCounterValue(m.authzDecisions.WithLabelValues(step, outcome))
}

func (m *Metrics) LoginCount(outcome string) float64 {
	return getCounterValue(m.loginAttempts.WithLabelValues(outcome))
}

func (m *Metrics) CacheHitCount(cache string) float64 {
	return getCounterValue(m.cacheHits.WithLabelValues(cache))
}

// GetAuthzSnapshot returns the authorization counters for the
// GET /api/metrics/authz endpoint.
func (m *Metrics) GetAuthzSnapshot() *domain.AuthzMetrics {
	snap := &domain.AuthzMetrics{
		Decisions:          map[string]map[string]float64{},
		WebhookVerified:    getCounterValue(m.webhookResults.WithLabelValues("verified")),
		WebhookRejected:    getCounterValue(m.webhookResults.WithLabelValues("rejected")),
		LoginsThrottled:    getCounterValue(m.loginAttempts.WithLabelValues("throttled")),
		CatalogueCacheHits: getCounterValue(m.cacheHits.WithLabelValues("catalogue")),
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return snap
	}
	for _, mf := range families {
		if mf.GetName() != authzDecisionsName {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var step, outcome string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "step":
					step = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			if snap.Decisions[step] == nil {
				snap.Decisions[step] = map[string]float64{}
			}
			snap.Decisions[step][outcome] = metric.GetCounter().GetValue()
		}
	}
	return snap
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
