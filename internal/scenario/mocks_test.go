// internal/scenario/mocks_test.go
package scenario

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
	"github.com/xkilldash9x/scalpel-e2e/internal/mocks"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
)

func TestRunner_APIArgumentsReachProbe(t *testing.T) {
	api := new(mocks.MockAPIChecks)
	api.On("Burst", mock.Anything, "/health", 10).Return(check.Pass(probe.NameBurstNotLimited, "10 x 200")).Once()
	api.On("RateLimitEnforced", mock.Anything, "/api/contact", probe.DefaultBurstSize).Return(check.Pass(probe.NameRateLimitEnforced, "429 at 12")).Once()
	api.On("Latency", mock.Anything, 500*time.Millisecond).Return(check.Pass(probe.NameAPILatency, "12ms")).Once()
	api.On("Call", mock.Anything, probe.Request{Method: http.MethodGet, Path: "/health"}).
		Return(&probe.Response{Status: http.StatusOK}, nil).Once()

	r, err := NewRunner(Config{LimitedPath: "/api/contact"}, nil, api, zaptest.NewLogger(t))
	require.NoError(t, err)

	out := r.Run(context.Background(), Scenario{
		Name:   "api arguments",
		Target: KindAPI,
		Steps: []Step{
			{Check: CheckBurst, Path: "/health", Count: 10},
			{Check: CheckRateLimit},
			{Check: CheckLatency, Budget: 500 * time.Millisecond},
			{Check: CheckStatus, Path: "/health", Status: []int{200, 204}},
		},
	})

	assert.Equal(t, StatusPassed, out.Status())
	assert.Len(t, out.Results, 4)
	api.AssertExpectations(t)
}

func TestRunner_NetworkErrorOnRawCall(t *testing.T) {
	api := new(mocks.MockAPIChecks)
	netErr := errs.Network(http.MethodGet, "http://localhost:3001/health", errors.New("connection refused"))
	api.On("Call", mock.Anything, mock.Anything).Return(nil, netErr)
	api.On("Health", mock.Anything).Return(check.Pass(probe.NameHealthContract, "healthy"))

	r, err := NewRunner(Config{}, nil, api, zaptest.NewLogger(t))
	require.NoError(t, err)

	out := r.Run(context.Background(), Scenario{
		Name:   "raw call",
		Target: KindAPI,
		Steps: []Step{
			{Check: CheckHeaders, Path: "/health", Headers: []string{"X-Frame-Options"}},
			{Check: CheckHealth},
		},
	})

	// The network error is confined to its check; the next step still runs.
	require.Len(t, out.Results, 2)
	assert.Equal(t, check.VerdictError, out.Results[0].Verdict())
	assert.Contains(t, out.Results[0].Message(), "connection refused")
	assert.True(t, out.Results[1].Passed())
	api.AssertExpectations(t)
}

func TestRunner_FailedAcquireIsNeverReleased(t *testing.T) {
	pages := new(mocks.MockPageSource)
	pages.On("Acquire", mock.Anything).Return(nil, errs.Resource("page.acquire", errors.New("target crashed")))

	r, err := NewRunner(Config{BaseURL: "http://localhost:3000"}, pages, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	out := r.Run(context.Background(), Scenario{Name: "hero", Target: KindPage, Steps: []Step{{Navigate: "/"}}})

	require.Len(t, out.Results, 1)
	assert.Equal(t, NamePageFixture, out.Results[0].Name())
	assert.Contains(t, out.Results[0].Message(), "target crashed")
	pages.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	pages.AssertExpectations(t)
}
