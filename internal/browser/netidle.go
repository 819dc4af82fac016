// internal/browser/netidle.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

// defaultQuietPeriod matches the usual "networkidle" definition: no requests in flight for 500ms.
const defaultQuietPeriod = 500 * time.Millisecond

// idleTracker counts in-flight requests for one page target.
type idleTracker struct {
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastSeen time.Time
}

func newIdleTracker(logger *zap.Logger) *idleTracker {
	return &idleTracker{
		logger:   logger,
		inflight: make(map[network.RequestID]struct{}),
		lastSeen: time.Now(),
	}
}

// handle is registered with chromedp.ListenTarget.
func (t *idleTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.mu.Lock()
		t.inflight[e.RequestID] = struct{}{}
		t.lastSeen = time.Now()
		t.mu.Unlock()
	case *network.EventLoadingFinished:
		t.done(e.RequestID)
	case *network.EventLoadingFailed:
		t.done(e.RequestID)
	}
}

func (t *idleTracker) done(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.lastSeen = time.Now()
	t.mu.Unlock()
}

func (t *idleTracker) snapshot() (int, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight), t.lastSeen
}

// Wait polls until nothing has been in flight for quiet.
func (t *idleTracker) Wait(ctx context.Context, quiet time.Duration) error {
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	ticker := time.NewTicker(quiet / 5)
	defer ticker.Stop()

	for {
		n, last := t.snapshot()
		if n == 0 && time.Since(last) >= quiet {
			return nil
		}
		select {
		case <-ctx.Done():
			t.logger.Debug("Network idle wait aborted.", zap.Int("inflight_requests", n), zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
