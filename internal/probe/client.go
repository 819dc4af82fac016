// internal/probe/client.go
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scalpel-e2e/internal/config"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// maxBodyBytes bounds how much of a response body is retained for evaluation.
const maxBodyBytes = 1 << 20

// Request is one call against the API under test. Path is resolved against the
// probe's base URL unless it is already absolute.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Response is the captured result of a Request. It is never mutated after capture.
type Response struct {
	Method  string
	URL     string
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

// Options configures a Probe.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Origin is sent on CORS preflights. Usually the front end's origin.
	Origin string
	// BurstRate paces burst requests per second. Zero means as fast as possible.
	BurstRate float64
	Transport TransportConfig
}

// Probe issues HTTP requests against the backend API and evaluates them against
// its declared contract.
type Probe struct {
	base      *url.URL
	client    *http.Client
	logger    *zap.Logger
	userAgent string
	origin    string
	limiter   *rate.Limiter
}

// New builds a Probe. The base URL must be absolute.
func New(opts Options, logger *zap.Logger) (*Probe, error) {
	if err := config.ValidateURL("target.api_url", opts.BaseURL); err != nil {
		return nil, err
	}
	base, _ := url.Parse(opts.BaseURL)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.BurstRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.BurstRate), 1)
	}

	logger = logger.Named("api_probe")
	transport, err := newTransport(opts.Transport, logger)
	if err != nil {
		return nil, errs.Config("api.proxy", "%v", err)
	}

	return &Probe{
		base: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			// The contract is asserted on the endpoint itself, not wherever it redirects.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:    logger,
		userAgent: opts.UserAgent,
		origin:    opts.Origin,
		limiter:   limiter,
	}, nil
}

// BaseURL returns the API origin the probe targets.
func (p *Probe) BaseURL() string {
	return p.base.String()
}

func (p *Probe) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid probe path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := *p.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

// Call issues req and captures the response. Connection failures and timeouts are
// returned as errs.NetworkError; any HTTP status is a successful call.
func (p *Probe) Call(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := p.resolve(req.Path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, target, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if p.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", p.userAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Debug("Probe request failed.", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, errs.Network(method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return nil, errs.Network(method, target, fmt.Errorf("reading body: %w", err))
	}

	p.logger.Debug("Probe request completed.",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	return &Response{
		Method:  method,
		URL:     target,
		Status:  resp.StatusCode,
		Header:  resp.Header.Clone(),
		Body:    data,
		Elapsed: elapsed,
	}, nil
}

// get is shorthand for a bare GET.
func (p *Probe) get(ctx context.Context, path string) (*Response, error) {
	return p.Call(ctx, Request{Method: http.MethodGet, Path: path})
}
