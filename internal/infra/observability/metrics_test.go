package observability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/infra/observability"
)

func TestNewMetrics_Twice(t *testing.T) {
	// Private registries: a second instance must not panic.
	observability.NewMetrics()
	observability.NewMetrics()
}

func TestGetAuthzSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrAuthzDecision("authenticate", "allow")
	m.IncrAuthzDecision("authenticate", "allow")
	m.IncrAuthzDecision("resolve-tenant", "tenant_forbidden")
	m.IncrWebhook("verified")
	m.IncrWebhook("rejected")
	m.IncrWebhook("rejected")
	m.IncrLogin("throttled")
	m.RecordHTTPRequest("GET", "/healthz", 200, 5*time.Millisecond)

	snap := m.GetAuthzSnapshot()

	require.Equal(t, 2.0, snap.Decisions["authenticate"]["allow"])
	require.Equal(t, 1.0, snap.Decisions["resolve-tenant"]["tenant_forbidden"])
	require.Equal(t, 1.0, snap.WebhookVerified)
	require.Equal(t, 2.0, snap.WebhookRejected)
	require.Equal(t, 1.0, snap.LoginsThrottled)
	require.Equal(t, 2.0, m.AuthzDecisionCount("authenticate", "allow"))
}
