// internal/scenario/pool_test.go
package scenario

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
)

// sleepyExecutor finishes later scenarios sooner to shake out ordering bugs.
type sleepyExecutor struct {
	ran atomic.Int32
}

func (e *sleepyExecutor) Run(ctx context.Context, sc Scenario) Outcome {
	e.ran.Add(1)
	var idx int
	_, _ = fmt.Sscanf(sc.Name, "s%d", &idx)
	select {
	case <-time.After(time.Duration(10-idx) * time.Millisecond):
	case <-ctx.Done():
	}
	return Outcome{Scenario: sc.Name, Results: []check.Result{check.Pass("noop", "ok")}}
}

func scenarios(n int) []Scenario {
	out := make([]Scenario, n)
	for i := range out {
		out[i] = Scenario{Name: fmt.Sprintf("s%d", i), Target: KindAPI}
	}
	return out
}

func TestExecute_PreservesOrder(t *testing.T) {
	scs := scenarios(10)
	workers := []Executor{&sleepyExecutor{}, &sleepyExecutor{}, &sleepyExecutor{}}

	outcomes := Execute(context.Background(), scs, workers)

	require.Len(t, outcomes, 10)
	for i, o := range outcomes {
		assert.Equal(t, scs[i].Name, o.Scenario)
		assert.Equal(t, StatusPassed, o.Status())
	}
	var total int32
	for _, w := range workers {
		total += w.(*sleepyExecutor).ran.Load()
	}
	assert.EqualValues(t, 10, total)
}

func TestExecute_Sequential(t *testing.T) {
	w := &sleepyExecutor{}
	outcomes := Execute(context.Background(), scenarios(3), []Executor{w})
	assert.Equal(t, []string{"s0", "s1", "s2"}, []string{outcomes[0].Scenario, outcomes[1].Scenario, outcomes[2].Scenario})
	assert.EqualValues(t, 3, w.ran.Load())
}

func TestExecute_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &sleepyExecutor{}
	outcomes := Execute(ctx, scenarios(4), []Executor{w})
	assert.EqualValues(t, 0, w.ran.Load())

	require.Len(t, outcomes, 4)
	for i, o := range outcomes {
		assert.Equal(t, fmt.Sprintf("s%d", i), o.Scenario)
		assert.Equal(t, StatusErrored, o.Status())
		assert.Equal(t, NameNotRun, o.Results[0].Name())
		assert.Contains(t, o.Results[0].Message(), "not started")
	}
}

func TestExecute_NoWorkers(t *testing.T) {
	outcomes := Execute(context.Background(), scenarios(2), nil)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, StatusErrored, o.Status())
	}
}
