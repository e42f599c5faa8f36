package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// Pinger is anything with a liveness probe: the store, the Redis limiter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService probes backing dependencies for /healthz and /readyz.
type HealthService struct {
	deps    map[string]Pinger
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthService(timeout time.Duration, logger *zap.Logger) *HealthService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthService{deps: map[string]Pinger{}, timeout: timeout, logger: logger}
}

// Register adds a named dependency. Call before serving.
func (s *HealthService) Register(name string, p Pinger) {
	s.deps[name] = p
}

// Check pings every dependency in parallel. A failing dependency makes the
// whole status unhealthy.
func (s *HealthService) Check(ctx context.Context) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339)
	results := []domain.ServiceHealth{{Name: "portal-api", Status: "healthy", LastChecked: now}}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, dep := range s.deps {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			start := time.Now()
			status := "healthy"
			if err := dep.Ping(ctx); err != nil {
				status = "unhealthy"
				s.logger.Warn("health: dependency down", zap.String("dependency", name), zap.Error(err))
			}
			mu.Lock()
			results = append(results, domain.ServiceHealth{
				Name:        name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()
	sort.Slice(results[1:], func(i, j int) bool { return results[i+1].Name < results[j+1].Name })

	overall := "healthy"
	for _, r := range results {
		if r.Status != "healthy" {
			overall = "unhealthy"
			break
		}
	}
	return domain.HealthStatus{Status: overall, Services: results}
}
