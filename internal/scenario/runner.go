// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/config"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
)

const (
	// TracerName is the instrumentation name of scenario spans.
	TracerName = "github.com/xkilldash9x/scalpel-e2e/internal/scenario"

	// NamePageFixture names the error result recorded when no page could be provided.
	NamePageFixture = "page-fixture"

	DefaultTimeout      = 60 * time.Second
	DefaultPresenceWait = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Status classifies a finished scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
)

// Outcome is everything one scenario run produced. Results keep step order.
type Outcome struct {
	Scenario string
	Target   Kind
	Tags     []string
	Results  []check.Result
	Started  time.Time
	Duration time.Duration
}

// Status is errored if any result errored, failed if any failed, passed otherwise.
func (o Outcome) Status() Status {
	status := StatusPassed
	for _, r := range o.Results {
		switch r.Verdict() {
		case check.VerdictError:
			return StatusErrored
		case check.VerdictFail:
			status = StatusFailed
		}
	}
	return status
}

// PageSource hands out one page per page scenario.
type PageSource interface {
	Acquire(ctx context.Context) (*browser.PageHandle, error)
	Release(ctx context.Context, h *browser.PageHandle) error
}

// APIChecks is the slice of the API probe the runner drives.
type APIChecks interface {
	Call(ctx context.Context, req probe.Request) (*probe.Response, error)
	Health(ctx context.Context) check.Result
	Readiness(ctx context.Context) check.Result
	CORSPreflight(ctx context.Context) check.Result
	SecurityHeaders(ctx context.Context) check.Result
	Latency(ctx context.Context, budget time.Duration) check.Result
	Burst(ctx context.Context, path string, n int) check.Result
	RateLimitEnforced(ctx context.Context, path string, n int) check.Result
}

// Config holds the runner's defaults.
type Config struct {
	// BaseURL resolves relative navigate paths.
	BaseURL      string
	Timeout      time.Duration
	PresenceWait time.Duration
	PollInterval time.Duration
	// LimitedPath is the endpoint rate-limit checks target when a step names none.
	// With neither set, rate-limit steps are skipped.
	LimitedPath string
	// Tracer records one span per scenario. Nil uses the global provider.
	Tracer trace.Tracer
}

// Runner executes scenarios one at a time. It is not safe for concurrent use;
// parallel runs give each worker its own Runner and page source.
type Runner struct {
	cfg    Config
	base   *url.URL
	pages  PageSource
	api    APIChecks
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRunner builds a runner. pages may be nil when only API scenarios run, and api
// may be nil when only page scenarios run.
func NewRunner(cfg Config, pages PageSource, api APIChecks, logger *zap.Logger) (*Runner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PresenceWait <= 0 {
		cfg.PresenceWait = DefaultPresenceWait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	var base *url.URL
	if cfg.BaseURL != "" {
		if err := config.ValidateURL("target.base_url", cfg.BaseURL); err != nil {
			return nil, err
		}
		base, _ = url.Parse(cfg.BaseURL)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}
	return &Runner{
		cfg:    cfg,
		base:   base,
		pages:  pages,
		api:    api,
		logger: logger.Named("scenario_runner"),
		tracer: cfg.Tracer,
	}, nil
}

// Run executes sc under its timeout. It never returns an error: failures of any
// kind end up as results. The page, if any, is released on every path.
func (r *Runner) Run(ctx context.Context, sc Scenario) (out Outcome) {
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	out = Outcome{Scenario: sc.Name, Target: sc.Target, Tags: sc.Tags, Started: time.Now()}
	logger := r.logger.With(zap.String("scenario", sc.Name))

	ctx, span := r.tracer.Start(ctx, "scenario.run", trace.WithAttributes(
		attribute.String("scenario.name", sc.Name),
		attribute.String("scenario.target", string(sc.Target)),
		attribute.Int("scenario.steps", len(sc.Steps)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	record := func(res check.Result) {
		out.Results = append(out.Results, res)
		span.AddEvent("check", trace.WithAttributes(
			attribute.String("check.name", res.Name()),
			attribute.String("check.verdict", string(res.Verdict())),
			attribute.String("check.message", res.Message()),
		))
		if err := res.Err(); err != nil {
			span.RecordError(err)
			logger.Debug("Check failed.", zap.Error(err))
		}
	}

	defer func() {
		out.Duration = time.Since(out.Started)
		status := out.Status()
		span.SetAttributes(attribute.String("scenario.status", string(status)))
		if status == StatusErrored {
			span.SetStatus(codes.Error, "scenario errored")
		}
		logger.Info("Scenario finished.",
			zap.String("status", string(status)),
			zap.Int("results", len(out.Results)),
			zap.Duration("duration", out.Duration))
	}()

	logger.Debug("Scenario starting.", zap.Duration("timeout", timeout))

	st := &stepState{optional: make(map[string]bool)}
	if sc.Target == KindPage {
		if r.pages == nil {
			record(check.Errored(NamePageFixture, errs.Resource("page.acquire", errors.New("no browser session available"))))
			return out
		}
		h, err := r.pages.Acquire(ctx)
		if err != nil {
			record(check.Errored(NamePageFixture, err))
			return out
		}
		defer func() {
			if err := r.pages.Release(ctx, h); err != nil {
				logger.Warn("Failed to release page.", zap.Error(err))
			}
		}()
		st.page = h.Page()

		if sc.Viewport != nil {
			if err := st.page.SetViewport(ctx, *sc.Viewport); err != nil {
				record(check.Errored(NamePageFixture, fmt.Errorf("set viewport: %w", err)))
				return out
			}
		}
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			record(check.Errored(step.resultName(), interrupted(err, timeout)))
			return out
		}

		res, ok, err := r.safeStep(ctx, st, step)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %v", interrupted(ctxErr, timeout), err)
			}
			err = fmt.Errorf("step %d (%s): %w", i+1, step.Label(), err)
			logger.Warn("Step errored, skipping remaining steps.", zap.Error(err))
			span.RecordError(err)
			record(check.Errored(step.resultName(), err))
			return out
		}
		if ok {
			record(res)
		}
	}
	return out
}

// interrupted describes why ctx ended.
func interrupted(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scenario timed out after %s", timeout)
	}
	return fmt.Errorf("scenario canceled: %w", err)
}

// safeStep converts a panic in a step into an error.
func (r *Runner) safeStep(ctx context.Context, st *stepState, s Step) (res check.Result, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Panic in scenario step.", zap.Any("panic", p), zap.String("step", s.Label()))
			res, ok, err = check.Result{}, false, fmt.Errorf("panic: %v", p)
		}
	}()
	return r.step(ctx, st, s)
}

// resolve turns a navigate target into an absolute URL.
func (r *Runner) resolve(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if r.base == nil {
		return "", errs.Config("target.base_url", "relative navigation to %q needs a base URL", target)
	}
	return r.base.ResolveReference(u).String(), nil
}
