// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext returns a context carrying ctx1's values (the CDP target) that is
// canceled when either ctx1 or ctx2 is. ctx2 is the caller's operational deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)
	if ctx2 == nil {
		return combinedCtx, cancel
	}
	if deadline, ok := ctx2.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combinedCtx, cancelDeadline = context.WithDeadline(combinedCtx, deadline)
		inner := cancel
		cancel = func() {
			cancelDeadline()
			inner()
		}
	}

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()
	return combinedCtx, cancel
}

// valueOnlyContext inherits values but never cancellation. Cleanup that must
// outlive a canceled scenario runs under one of these.
type valueOnlyContext struct{ context.Context }

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }

// Detach returns a context that keeps ctx's values but is not canceled with it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
