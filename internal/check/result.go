// internal/check/result.go
package check

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
)

// Verdict is the terminal outcome of one check.
type Verdict string

const (
	VerdictPass  Verdict = "pass"
	VerdictFail  Verdict = "fail"
	VerdictError Verdict = "error"
)

// Measurement is an optional measured value attached to a result (elapsed ms, a count).
type Measurement struct {
	Value float64
	Unit  string
}

func (m Measurement) String() string {
	if m.Unit == "" {
		return fmt.Sprintf("%g", m.Value)
	}
	return fmt.Sprintf("%g%s", m.Value, m.Unit)
}

// Result is the verdict of one predicate evaluation. Fields are unexported so a
// result cannot be altered once produced; use the accessors.
type Result struct {
	name     string
	verdict  Verdict
	message  string
	measured *Measurement
	at       time.Time
}

func (r Result) Name() string     { return r.name }
func (r Result) Verdict() Verdict { return r.verdict }
func (r Result) Message() string  { return r.message }
func (r Result) At() time.Time    { return r.at }
func (r Result) Passed() bool     { return r.verdict == VerdictPass }

// Err returns the failure as an *errs.AssertionFailure, or nil unless the
// verdict is fail.
func (r Result) Err() error {
	if r.verdict != VerdictFail {
		return nil
	}
	return &errs.AssertionFailure{Check: r.name, Message: r.message}
}

// Measured returns the attached measurement, if any.
func (r Result) Measured() (Measurement, bool) {
	if r.measured == nil {
		return Measurement{}, false
	}
	return *r.measured, true
}

func (r Result) String() string {
	if r.measured != nil {
		return fmt.Sprintf("[%s] %s: %s (%s)", r.verdict, r.name, r.message, r.measured)
	}
	return fmt.Sprintf("[%s] %s: %s", r.verdict, r.name, r.message)
}

// Pass builds a passing result.
func Pass(name, format string, args ...interface{}) Result {
	return newResult(name, VerdictPass, fmt.Sprintf(format, args...), nil)
}

// Fail builds a failing result.
func Fail(name, format string, args ...interface{}) Result {
	return newResult(name, VerdictFail, fmt.Sprintf(format, args...), nil)
}

// Errored converts an error raised while producing an observation into an error result.
func Errored(name string, err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return newResult(name, VerdictError, msg, nil)
}

// WithMeasurement builds a result carrying a measured value.
func WithMeasurement(name string, verdict Verdict, value float64, unit, format string, args ...interface{}) Result {
	return newResult(name, verdict, fmt.Sprintf(format, args...), &Measurement{Value: value, Unit: unit})
}

func newResult(name string, verdict Verdict, msg string, m *Measurement) Result {
	return Result{name: name, verdict: verdict, message: msg, measured: m, at: time.Now().UTC()}
}

// verdictOf maps a predicate outcome to pass/fail.
func verdictOf(ok bool) Verdict {
	if ok {
		return VerdictPass
	}
	return VerdictFail
}

// AllPassed reports whether every result in rs passed. An empty slice passes.
func AllPassed(rs []Result) bool {
	for _, r := range rs {
		if r.verdict != VerdictPass {
			return false
		}
	}
	return true
}
