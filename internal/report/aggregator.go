// internal/report/aggregator.go
package report

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/scenario"
)

// Exit codes consumed by CI.
const (
	ExitOK     = 0
	ExitFailed = 1
	// ExitConfig means the run was aborted before any scenario executed.
	ExitConfig = 2
)

// Failure is one failing or errored check and the scenario that produced it.
type Failure struct {
	Scenario string
	Result   check.Result
}

// Summary is the finalized view of a run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []scenario.Outcome

	Scenarios        int
	ScenariosPassed  int
	ScenariosFailed  int
	ScenariosErrored int

	Checks        int
	ChecksPassed  int
	ChecksFailed  int
	ChecksErrored int
}

// OK reports whether every check of every scenario passed.
func (s Summary) OK() bool {
	return s.ChecksFailed == 0 && s.ChecksErrored == 0
}

// ExitCode is ExitOK when the run passed and ExitFailed otherwise.
func (s Summary) ExitCode() int {
	if s.OK() {
		return ExitOK
	}
	return ExitFailed
}

func (s Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Failures lists every non-passing check in run order.
func (s Summary) Failures() []Failure {
	var out []Failure
	for _, o := range s.Outcomes {
		for _, r := range o.Results {
			if !r.Passed() {
				out = append(out, Failure{Scenario: o.Scenario, Result: r})
			}
		}
	}
	return out
}

// Aggregator collects scenario outcomes in submission order. It is safe for
// concurrent use.
type Aggregator struct {
	runID   string
	started time.Time

	mu       sync.Mutex
	outcomes []scenario.Outcome
}

func NewAggregator() *Aggregator {
	return &Aggregator{runID: uuid.New().String(), started: time.Now()}
}

func (a *Aggregator) RunID() string { return a.runID }

// Record appends one scenario outcome.
func (a *Aggregator) Record(o scenario.Outcome) {
	a.mu.Lock()
	a.outcomes = append(a.outcomes, o)
	a.mu.Unlock()
}

// Finalize computes totals over everything recorded so far.
func (a *Aggregator) Finalize() Summary {
	a.mu.Lock()
	outcomes := append([]scenario.Outcome(nil), a.outcomes...)
	a.mu.Unlock()

	s := Summary{
		RunID:     a.runID,
		Started:   a.started,
		Finished:  time.Now(),
		Outcomes:  outcomes,
		Scenarios: len(outcomes),
	}
	for _, o := range outcomes {
		switch o.Status() {
		case scenario.StatusPassed:
			s.ScenariosPassed++
		case scenario.StatusFailed:
			s.ScenariosFailed++
		case scenario.StatusErrored:
			s.ScenariosErrored++
		}
		for _, r := range o.Results {
			s.Checks++
			switch r.Verdict() {
			case check.VerdictPass:
				s.ChecksPassed++
			case check.VerdictFail:
				s.ChecksFailed++
			default:
				s.ChecksErrored++
			}
		}
	}
	return s
}

// ExitCode finalizes and returns the process exit status.
func (a *Aggregator) ExitCode() int {
	return a.Finalize().ExitCode()
}
