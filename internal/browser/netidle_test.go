// internal/browser/netidle_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIdleTracker_WaitsForInflight(t *testing.T) {
	tr := newIdleTracker(zaptest.NewLogger(t))
	tr.handle(&network.EventRequestWillBeSent{RequestID: "1"})
	tr.handle(&network.EventRequestWillBeSent{RequestID: "2"})

	n, _ := tr.snapshot()
	assert.Equal(t, 2, n)

	go func() {
		time.Sleep(30 * time.Millisecond)
		tr.handle(&network.EventLoadingFinished{RequestID: "1"})
		tr.handle(&network.EventLoadingFailed{RequestID: "2"})
	}()

	start := time.Now()
	require.NoError(t, tr.Wait(context.Background(), 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestIdleTracker_ContextCancel(t *testing.T) {
	tr := newIdleTracker(zaptest.NewLogger(t))
	tr.handle(&network.EventRequestWillBeSent{RequestID: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Wait(ctx, 20*time.Millisecond), context.DeadlineExceeded)
}
