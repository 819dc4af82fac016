// internal/report/aggregator_test.go
package report

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/scenario"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func outcome(name string, results ...check.Result) scenario.Outcome {
	return scenario.Outcome{
		Scenario: name,
		Target:   scenario.KindPage,
		Results:  results,
		Started:  time.Now(),
		Duration: 150 * time.Millisecond,
	}
}

func mixedSummary() Summary {
	agg := NewAggregator()
	agg.Record(outcome("homepage loads",
		check.Pass(check.NameContentPresence, "'main' visible"),
		check.WithMeasurement(check.NameLoadTimeBudget, check.VerdictPass, 820, "ms", "loaded in 820ms"),
	))
	agg.Record(outcome("pricing section",
		check.Pass(check.NameContentPresence, "'#pricing' visible"),
		check.Fail(check.NameTextContains, "'#pricing' text does not contain %q", "Enterprise"),
	))
	agg.Record(outcome("api health check",
		check.Errored("health-contract", errors.New("connection refused")),
	))
	return agg.Finalize()
}

func TestAggregator_Totals(t *testing.T) {
	s := mixedSummary()

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.Scenarios)
	assert.Equal(t, 1, s.ScenariosPassed)
	assert.Equal(t, 1, s.ScenariosFailed)
	assert.Equal(t, 1, s.ScenariosErrored)
	assert.Equal(t, 5, s.Checks)
	assert.Equal(t, 3, s.ChecksPassed)
	assert.Equal(t, 1, s.ChecksFailed)
	assert.Equal(t, 1, s.ChecksErrored)
	assert.False(t, s.OK())
	assert.Equal(t, ExitFailed, s.ExitCode())
	assert.False(t, s.Finished.Before(s.Started))
}

func TestAggregator_FailuresNameScenario(t *testing.T) {
	failures := mixedSummary().Failures()
	require.Len(t, failures, 2)

	assert.Equal(t, "pricing section", failures[0].Scenario)
	assert.Equal(t, check.NameTextContains, failures[0].Result.Name())
	assert.Equal(t, check.VerdictFail, failures[0].Result.Verdict())

	assert.Equal(t, "api health check", failures[1].Scenario)
	assert.Equal(t, check.VerdictError, failures[1].Result.Verdict())
}

func TestAggregator_AllPassedExitsZero(t *testing.T) {
	agg := NewAggregator()
	agg.Record(outcome("a", check.Pass("x", "ok")))
	agg.Record(outcome("b", check.Pass("y", "ok")))

	assert.Equal(t, ExitOK, agg.ExitCode())
	assert.True(t, agg.Finalize().OK())
}

func TestAggregator_SingleErrorFailsRun(t *testing.T) {
	agg := NewAggregator()
	agg.Record(outcome("a", check.Pass("x", "ok")))
	agg.Record(outcome("b", check.Errored("y", errors.New("boom"))))

	assert.Equal(t, ExitFailed, agg.ExitCode())
}

func TestAggregator_EmptyRun(t *testing.T) {
	s := NewAggregator().Finalize()
	assert.Zero(t, s.Scenarios)
	assert.Zero(t, s.Checks)
	assert.True(t, s.OK())
	assert.Empty(t, s.Failures())
}

func TestAggregator_FinalizeIsSnapshot(t *testing.T) {
	agg := NewAggregator()
	agg.Record(outcome("a", check.Pass("x", "ok")))
	first := agg.Finalize()

	agg.Record(outcome("b", check.Fail("y", "nope")))
	second := agg.Finalize()

	assert.Equal(t, 1, first.Scenarios)
	assert.True(t, first.OK())
	assert.Equal(t, 2, second.Scenarios)
	assert.False(t, second.OK())
	assert.Equal(t, first.RunID, second.RunID)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	agg := NewAggregator()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Record(outcome(fmt.Sprintf("s%d", i), check.Pass("x", "ok"), check.Fail("y", "nope")))
		}(i)
	}
	wg.Wait()

	s := agg.Finalize()
	assert.Equal(t, n, s.Scenarios)
	assert.Equal(t, 2*n, s.Checks)
	assert.Equal(t, n, s.ChecksFailed)
	assert.Equal(t, n, s.ScenariosFailed)
}
