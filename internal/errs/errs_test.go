package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"plain", errors.New("boom"), CategoryUnknown},
		{"assertion", &AssertionFailure{Check: "h1", Message: "2 found"}, CategoryAssertion},
		{"resource", Resource("launch browser", errors.New("exec: chrome not found")), CategoryResource},
		{"network", Network("GET", "http://x/health", errors.New("refused")), CategoryNetwork},
		{"config", Config("base_url", "missing scheme"), CategoryConfiguration},
		{"wrapped resource", fmt.Errorf("starting run: %w", Resource("new context", nil)), CategoryResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestNetworkErrorTimeout(t *testing.T) {
	ne := &NetworkError{Method: "GET", URL: "http://x", Err: context.DeadlineExceeded}
	assert.True(t, ne.Timeout())
	assert.ErrorIs(t, ne, context.DeadlineExceeded)

	ne = &NetworkError{Method: "GET", URL: "http://x", Err: errors.New("connection refused")}
	assert.False(t, ne.Timeout())
	assert.Contains(t, ne.Error(), "GET http://x")
}
