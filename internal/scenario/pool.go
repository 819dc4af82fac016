// internal/scenario/pool.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

// NameNotRun names the error result given to scenarios a canceled run never reached.
const NameNotRun = "not-run"

// Executor runs one scenario at a time on resources it owns.
type Executor interface {
	Run(ctx context.Context, sc Scenario) Outcome
}

// Execute runs scenarios across the given executors, one goroutine each. Outcomes
// come back in scenario order regardless of completion order. Scenarios never
// started because ctx ended get an error outcome.
func Execute(ctx context.Context, scs []Scenario, workers []Executor) []Outcome {
	outcomes := make([]Outcome, len(scs))
	done := make([]bool, len(scs))
	if len(workers) == 0 {
		return fillUnrun(scs, outcomes, done, errors.New("no workers available"))
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range scs {
			if gctx.Err() != nil {
				return nil
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for _, w := range workers {
		w := w
		g.Go(func() error {
			for i := range jobs {
				outcomes[i] = w.Run(gctx, scs[i])
				done[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	reason := ctx.Err()
	if reason == nil {
		reason = context.Canceled
	}
	return fillUnrun(scs, outcomes, done, reason)
}

func fillUnrun(scs []Scenario, outcomes []Outcome, done []bool, reason error) []Outcome {
	for i, sc := range scs {
		if done[i] {
			continue
		}
		outcomes[i] = Outcome{
			Scenario: sc.Name,
			Target:   sc.Target,
			Tags:     sc.Tags,
			Started:  time.Now(),
			Results:  []check.Result{check.Errored(NameNotRun, fmt.Errorf("scenario not started: %w", reason))},
		}
	}
	return outcomes
}
