// internal/report/console.go
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/scenario"
)

// ConsoleWriter prints a human-readable report. Every failing check is named
// together with its scenario.
type ConsoleWriter struct {
	verbose bool

	pass  *color.Color
	fail  *color.Color
	errc  *color.Color
	dim   *color.Color
	title *color.Color
}

func NewConsoleWriter(noColor, verbose bool) *ConsoleWriter {
	cw := &ConsoleWriter{
		verbose: verbose,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		errc:    color.New(color.FgYellow, color.Bold),
		dim:     color.New(color.Faint),
		title:   color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{cw.pass, cw.fail, cw.errc, cw.dim, cw.title} {
			c.DisableColor()
		}
	}
	return cw
}

func (cw *ConsoleWriter) verdictColor(v check.Verdict) *color.Color {
	switch v {
	case check.VerdictPass:
		return cw.pass
	case check.VerdictFail:
		return cw.fail
	default:
		return cw.errc
	}
}

func (cw *ConsoleWriter) statusColor(s scenario.Status) *color.Color {
	switch s {
	case scenario.StatusPassed:
		return cw.pass
	case scenario.StatusFailed:
		return cw.fail
	default:
		return cw.errc
	}
}

var statusLabel = map[scenario.Status]string{
	scenario.StatusPassed:  "PASS ",
	scenario.StatusFailed:  "FAIL ",
	scenario.StatusErrored: "ERROR",
}

func (cw *ConsoleWriter) Write(w io.Writer, s Summary) error {
	ew := &errWriter{w: w}

	cw.title.Fprintf(ew, "Run %s\n", s.RunID)
	for _, o := range s.Outcomes {
		status := o.Status()
		cw.statusColor(status).Fprint(ew, statusLabel[status])
		fmt.Fprintf(ew, " %s ", o.Scenario)
		cw.dim.Fprintf(ew, "(%s)\n", o.Duration.Round(time.Millisecond))

		for _, r := range o.Results {
			if r.Passed() && !cw.verbose {
				continue
			}
			fmt.Fprint(ew, "      ")
			cw.verdictColor(r.Verdict()).Fprintf(ew, "%-5s", r.Verdict())
			fmt.Fprintf(ew, " %s: %s\n", r.Name(), r.Message())
		}
	}

	fmt.Fprintln(ew)
	cw.title.Fprint(ew, "Scenarios: ")
	fmt.Fprintf(ew, "%d total, ", s.Scenarios)
	cw.pass.Fprintf(ew, "%d passed", s.ScenariosPassed)
	fmt.Fprint(ew, ", ")
	cw.fail.Fprintf(ew, "%d failed", s.ScenariosFailed)
	fmt.Fprint(ew, ", ")
	cw.errc.Fprintf(ew, "%d errored\n", s.ScenariosErrored)
	cw.title.Fprint(ew, "Checks:    ")
	fmt.Fprintf(ew, "%d total, %d passed, %d failed, %d errored\n", s.Checks, s.ChecksPassed, s.ChecksFailed, s.ChecksErrored)
	cw.dim.Fprintf(ew, "Duration:  %s\n", s.Duration().Round(time.Millisecond))

	if failures := s.Failures(); len(failures) > 0 {
		fmt.Fprintln(ew)
		cw.fail.Fprintf(ew, "%d failing check(s):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(ew, "  - [%s] %s > %s: %s\n", f.Result.Verdict(), f.Scenario, f.Result.Name(), f.Result.Message())
		}
	} else {
		cw.pass.Fprintln(ew, "All checks passed.")
	}
	return ew.err
}

// errWriter remembers the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
