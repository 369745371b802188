package observability

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/calque-ai/reviewchat/pkg/reqctx"
)

var startTime = time.Now()

const defaultCheckTimeout = 5 * time.Second

// TCPHealthCheck passes when a TCP connection to Addr can be opened.
type TCPHealthCheck struct {
	CheckName    string
	Addr         string
	CheckTimeout time.Duration
}

func (c *TCPHealthCheck) Name() string { return c.CheckName }

func (c *TCPHealthCheck) Check(ctx context.Context) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return reqctx.WrapErr(ctx, err, "tcp connection failed")
	}
	return conn.Close()
}

func (c *TCPHealthCheck) Timeout() time.Duration { return c.CheckTimeout }

// FuncHealthCheck wraps a function as a health check, e.g. a vector store ping.
type FuncHealthCheck struct {
	CheckName    string
	CheckFunc    func(ctx context.Context) error
	CheckTimeout time.Duration
}

func (c *FuncHealthCheck) Name() string { return c.CheckName }

func (c *FuncHealthCheck) Check(ctx context.Context) error { return c.CheckFunc(ctx) }

func (c *FuncHealthCheck) Timeout() time.Duration { return c.CheckTimeout }

// HealthCheckRegistry manages a dynamic set of health checks.
//
// Example:
//
//	registry := observability.NewHealthCheckRegistry(5 * time.Second)
//	registry.Register(&observability.FuncHealthCheck{CheckName: "qdrant", CheckFunc: store.Ping})
//	mux.Handle("/health", registry.Handler())
type HealthCheckRegistry struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	timeout time.Duration
}

// NewHealthCheckRegistry creates a registry whose checks default to timeout.
func NewHealthCheckRegistry(timeout time.Duration) *HealthCheckRegistry {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &HealthCheckRegistry{
		checks:  make(map[string]HealthChecker),
		timeout: timeout,
	}
}

// Register adds a health check, replacing any check with the same name
func (r *HealthCheckRegistry) Register(check HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[check.Name()] = check
}

// RunAll runs every registered check concurrently. Any failure makes the
// report unhealthy.
func (r *HealthCheckRegistry) RunAll(ctx context.Context) HealthReport {
	r.mu.RLock()
	checks := make([]HealthChecker, 0, len(r.checks))
	for _, check := range r.checks {
		checks = append(checks, check)
	}
	r.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]HealthCheckResult, len(checks)),
		Uptime:    time.Since(startTime),
		Timestamp: time.Now(),
	}

	results := make(chan HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()
			results <- r.run(ctx, c)
		}(check)
	}
	wg.Wait()
	close(results)

	for result := range results {
		report.Checks[result.Name] = result
		if result.Status != "ok" {
			report.Status = HealthStatusUnhealthy
		}
	}
	return report
}

func (r *HealthCheckRegistry) run(ctx context.Context, c HealthChecker) HealthCheckResult {
	timeout := c.Timeout()
	if timeout == 0 {
		timeout = r.timeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	result := HealthCheckResult{Name: c.Name(), Status: "ok", Latency: time.Since(start)}
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
	}
	return result
}

// Handler serves the JSON health report; unhealthy reports get a 503.
func (r *HealthCheckRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report := r.RunAll(req.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	})
}
