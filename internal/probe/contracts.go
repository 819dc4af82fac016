// internal/probe/contracts.go
package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

// Contract check names.
const (
	NameHealthContract    = "health-contract"
	NameReadinessContract = "readiness-contract"
	NameCORSPreflight     = "cors-preflight"
	NameBurstNotLimited   = "burst-not-limited"
	NameRateLimitEnforced = "rate-limit-enforced"
	NameSecurityHeaders   = "security-headers"
	NameAPILatency        = "api-latency"
)

// Default endpoint paths of the API contract.
const (
	HealthPath    = "/health"
	ReadinessPath = "/health/ready"
)

// Fixed ceilings from the API contract.
const (
	DefaultLatencyBudget = 500 * time.Millisecond
	DefaultBurstSize     = 10
)

// compose folds several sub-checks into one result named name. The first
// non-passing sub-check decides the verdict and message.
func compose(name string, parts ...check.Result) check.Result {
	for _, r := range parts {
		switch r.Verdict() {
		case check.VerdictFail:
			return check.Fail(name, "%s", r.Message())
		case check.VerdictError:
			return check.Errored(name, fmt.Errorf("%s", r.Message()))
		}
	}
	msgs := make([]string, 0, len(parts))
	for _, r := range parts {
		msgs = append(msgs, r.Message())
	}
	return check.Pass(name, "%s", strings.Join(msgs, "; "))
}

// EvaluateHealth checks a /health response: 200, status "healthy", timestamp and uptime.
func EvaluateHealth(resp *Response) check.Result {
	if r := check.StatusInSet(resp.Status, http.StatusOK); !r.Passed() {
		return compose(NameHealthContract, r)
	}
	body, err := DecodeHealth(resp.Body)
	if err != nil {
		return check.Fail(NameHealthContract, "malformed health body: %v", err)
	}
	if m := body.Missing(); len(m) > 0 {
		return check.Fail(NameHealthContract, "health body missing field(s): %s", strings.Join(m, ", "))
	}
	if s := body.Status.String(); s != "healthy" {
		return check.Fail(NameHealthContract, "status is %q, want \"healthy\"", s)
	}
	return check.Pass(NameHealthContract, "healthy (uptime %s)", body.Uptime.String())
}

// EvaluateReadiness checks a /health/ready response. 503 is a valid "not yet ready"
// outcome, not an error.
func EvaluateReadiness(resp *Response) check.Result {
	if r := check.StatusInSet(resp.Status, http.StatusOK, http.StatusServiceUnavailable); !r.Passed() {
		return compose(NameReadinessContract, r)
	}
	body, err := DecodeReadiness(resp.Body)
	if err != nil {
		return check.Fail(NameReadinessContract, "malformed readiness body: %v", err)
	}
	if m := body.Missing(); len(m) > 0 {
		return check.Fail(NameReadinessContract, "readiness body missing field(s): %s", strings.Join(m, ", "))
	}
	switch s := body.Status.String(); s {
	case "ready", "not_ready":
		return check.Pass(NameReadinessContract, "status %d, %s", resp.Status, s)
	default:
		return check.Fail(NameReadinessContract, "status is %q, want \"ready\" or \"not_ready\"", s)
	}
}

// EvaluateCORS checks a preflight response: 200 plus allow-origin and allow-methods.
func EvaluateCORS(resp *Response) check.Result {
	return compose(NameCORSPreflight,
		check.StatusInSet(resp.Status, http.StatusOK),
		check.HeaderPresence(resp.Header, "Access-Control-Allow-Origin", "Access-Control-Allow-Methods"),
	)
}

// EvaluateSecurityHeaders requires X-Content-Type-Options and X-Frame-Options, and at
// least one of X-XSS-Protection or X-Content-Type-Options.
func EvaluateSecurityHeaders(resp *Response) check.Result {
	return compose(NameSecurityHeaders,
		check.HeaderPresence(resp.Header, "X-Content-Type-Options", "X-Frame-Options"),
		check.AnyHeaderPresent(resp.Header, "X-XSS-Protection", "X-Content-Type-Options"),
	)
}

// EvaluateLatency requires a 200 within budget.
func EvaluateLatency(resp *Response, budget time.Duration) check.Result {
	if r := check.StatusInSet(resp.Status, http.StatusOK); !r.Passed() {
		return compose(NameAPILatency, r)
	}
	t := check.ResponseTimeBudget(resp.Elapsed, budget)
	m, _ := t.Measured()
	return check.WithMeasurement(NameAPILatency, t.Verdict(), m.Value, m.Unit, "%s", t.Message())
}

// EvaluateBurst passes iff every status is 200; it fails at the first non-200.
func EvaluateBurst(statuses []int) check.Result {
	for i, s := range statuses {
		if s != http.StatusOK {
			return check.WithMeasurement(NameBurstNotLimited, check.VerdictFail, float64(i), "index",
				"request %d returned %d, want 200", i+1, s)
		}
	}
	return check.WithMeasurement(NameBurstNotLimited, check.VerdictPass, float64(len(statuses)), "requests",
		"all %d requests returned 200", len(statuses))
}

// EvaluateRateLimit passes iff at least one status is 429.
func EvaluateRateLimit(statuses []int) check.Result {
	for i, s := range statuses {
		if s == http.StatusTooManyRequests {
			return check.WithMeasurement(NameRateLimitEnforced, check.VerdictPass, float64(i), "index",
				"request %d of %d was throttled with 429", i+1, len(statuses))
		}
	}
	return check.WithMeasurement(NameRateLimitEnforced, check.VerdictFail, float64(len(statuses)), "requests",
		"none of %d rapid requests was throttled", len(statuses))
}

// Health calls GET /health and evaluates the health contract.
func (p *Probe) Health(ctx context.Context) check.Result {
	resp, err := p.get(ctx, HealthPath)
	if err != nil {
		return check.Errored(NameHealthContract, err)
	}
	return EvaluateHealth(resp)
}

// Readiness calls GET /health/ready and evaluates the readiness contract.
func (p *Probe) Readiness(ctx context.Context) check.Result {
	resp, err := p.get(ctx, ReadinessPath)
	if err != nil {
		return check.Errored(NameReadinessContract, err)
	}
	return EvaluateReadiness(resp)
}

// CORSPreflight sends OPTIONS /health as a browser preflight would.
func (p *Probe) CORSPreflight(ctx context.Context) check.Result {
	h := http.Header{}
	h.Set("Access-Control-Request-Method", http.MethodGet)
	if p.origin != "" {
		h.Set("Origin", p.origin)
	}
	resp, err := p.Call(ctx, Request{Method: http.MethodOptions, Path: HealthPath, Header: h})
	if err != nil {
		return check.Errored(NameCORSPreflight, err)
	}
	return EvaluateCORS(resp)
}

// SecurityHeaders calls GET /health and evaluates its security headers.
func (p *Probe) SecurityHeaders(ctx context.Context) check.Result {
	resp, err := p.get(ctx, HealthPath)
	if err != nil {
		return check.Errored(NameSecurityHeaders, err)
	}
	return EvaluateSecurityHeaders(resp)
}

// Latency times GET /health against budget.
func (p *Probe) Latency(ctx context.Context, budget time.Duration) check.Result {
	if budget <= 0 {
		budget = DefaultLatencyBudget
	}
	resp, err := p.get(ctx, HealthPath)
	if err != nil {
		return check.Errored(NameAPILatency, err)
	}
	return EvaluateLatency(resp, budget)
}

// Burst issues n rapid sequential GETs to path, which must never be rate limited.
// It stops at the first non-200 since the verdict is already decided.
func (p *Probe) Burst(ctx context.Context, path string, n int) check.Result {
	if path == "" {
		path = HealthPath
	}
	if n <= 0 {
		n = DefaultBurstSize
	}
	statuses, err := p.burst(ctx, path, n, func(status int) bool { return status != http.StatusOK })
	if err != nil {
		return check.Errored(NameBurstNotLimited, err)
	}
	return EvaluateBurst(statuses)
}

// RateLimitEnforced issues n rapid requests to a limited endpoint and expects at
// least one 429. This is a separate property from Burst: the lightweight endpoint
// being exempt says nothing about limited endpoints being enforced.
func (p *Probe) RateLimitEnforced(ctx context.Context, path string, n int) check.Result {
	if path == "" {
		return check.Errored(NameRateLimitEnforced, fmt.Errorf("no rate-limited endpoint configured"))
	}
	statuses, err := p.burst(ctx, path, n, func(status int) bool { return status == http.StatusTooManyRequests })
	if err != nil {
		return check.Errored(NameRateLimitEnforced, err)
	}
	return EvaluateRateLimit(statuses)
}

// burst issues up to n GETs, paced by the limiter, stopping early once stop
// returns true for a status.
func (p *Probe) burst(ctx context.Context, path string, n int, stop func(int) bool) ([]int, error) {
	statuses := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return statuses, fmt.Errorf("burst interrupted after %d requests: %w", i, err)
		}
		resp, err := p.get(ctx, path)
		if err != nil {
			return statuses, fmt.Errorf("request %d of %d: %w", i+1, n, err)
		}
		statuses = append(statuses, resp.Status)
		if stop(resp.Status) {
			break
		}
	}
	p.logger.Debug("Burst finished.", zap.String("path", path), zap.Ints("statuses", statuses))
	return statuses, nil
}
