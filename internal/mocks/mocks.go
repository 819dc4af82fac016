// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
)

// -- API Probe Mock --

// MockAPIChecks mocks the probe methods a scenario runner drives.
type MockAPIChecks struct {
	mock.Mock
}

func (m *MockAPIChecks) Call(ctx context.Context, req probe.Request) (*probe.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*probe.Response)
	return resp, args.Error(1)
}

func (m *MockAPIChecks) Health(ctx context.Context) check.Result {
	return m.Called(ctx).Get(0).(check.Result)
}

func (m *MockAPIChecks) Readiness(ctx context.Context) check.Result {
	return m.Called(ctx).Get(0).(check.Result)
}

func (m *MockAPIChecks) CORSPreflight(ctx context.Context) check.Result {
	return m.Called(ctx).Get(0).(check.Result)
}

func (m *MockAPIChecks) SecurityHeaders(ctx context.Context) check.Result {
	return m.Called(ctx).Get(0).(check.Result)
}

func (m *MockAPIChecks) Latency(ctx context.Context, budget time.Duration) check.Result {
	return m.Called(ctx, budget).Get(0).(check.Result)
}

func (m *MockAPIChecks) Burst(ctx context.Context, path string, n int) check.Result {
	return m.Called(ctx, path, n).Get(0).(check.Result)
}

func (m *MockAPIChecks) RateLimitEnforced(ctx context.Context, path string, n int) check.Result {
	return m.Called(ctx, path, n).Get(0).(check.Result)
}

// -- Page Source Mock --

// MockPageSource mocks the per-scenario page fixture.
type MockPageSource struct {
	mock.Mock
}

func (m *MockPageSource) Acquire(ctx context.Context) (*browser.PageHandle, error) {
	args := m.Called(ctx)
	h, _ := args.Get(0).(*browser.PageHandle)
	return h, args.Error(1)
}

func (m *MockPageSource) Release(ctx context.Context, h *browser.PageHandle) error {
	return m.Called(ctx, h).Error(0)
}
