package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz and GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual backend.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// AuthzMetrics is returned by GET /api/metrics/authz.
type AuthzMetrics struct {
	Decisions          map[string]map[string]float64 `json:"decisions"` // step -> outcome -> count
	WebhookVerified    float64                       `json:"webhookVerified"`
	WebhookRejected    float64                       `json:"webhookRejected"`
	LoginsThrottled    float64                       `json:"loginsThrottled"`
	CatalogueCacheHits float64                       `json:"catalogueCacheHits"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
