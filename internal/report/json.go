// internal/report/json.go
package report

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonReport struct {
	RunID      string         `json:"run_id"`
	Started    time.Time      `json:"started"`
	Finished   time.Time      `json:"finished"`
	DurationMs float64        `json:"duration_ms"`
	OK         bool           `json:"ok"`
	ExitCode   int            `json:"exit_code"`
	Totals     jsonTotals     `json:"totals"`
	Scenarios  []jsonScenario `json:"scenarios"`
}

type jsonTotals struct {
	Scenarios        int `json:"scenarios"`
	ScenariosPassed  int `json:"scenarios_passed"`
	ScenariosFailed  int `json:"scenarios_failed"`
	ScenariosErrored int `json:"scenarios_errored"`
	Checks           int `json:"checks"`
	ChecksPassed     int `json:"checks_passed"`
	ChecksFailed     int `json:"checks_failed"`
	ChecksErrored    int `json:"checks_errored"`
}

type jsonScenario struct {
	Name       string       `json:"name"`
	Target     string       `json:"target"`
	Tags       []string     `json:"tags,omitempty"`
	Status     string       `json:"status"`
	DurationMs float64      `json:"duration_ms"`
	Results    []jsonResult `json:"results"`
}

type jsonResult struct {
	Check   string   `json:"check"`
	Verdict string   `json:"verdict"`
	Message string   `json:"message"`
	Value   *float64 `json:"value,omitempty"`
	Unit    string   `json:"unit,omitempty"`
}

// JSONWriter emits the summary as one indented JSON document.
type JSONWriter struct{}

func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (JSONWriter) Write(w io.Writer, s Summary) error {
	doc := jsonReport{
		RunID:      s.RunID,
		Started:    s.Started.UTC(),
		Finished:   s.Finished.UTC(),
		DurationMs: millis(s.Duration()),
		OK:         s.OK(),
		ExitCode:   s.ExitCode(),
		Totals: jsonTotals{
			Scenarios:        s.Scenarios,
			ScenariosPassed:  s.ScenariosPassed,
			ScenariosFailed:  s.ScenariosFailed,
			ScenariosErrored: s.ScenariosErrored,
			Checks:           s.Checks,
			ChecksPassed:     s.ChecksPassed,
			ChecksFailed:     s.ChecksFailed,
			ChecksErrored:    s.ChecksErrored,
		},
		Scenarios: make([]jsonScenario, 0, len(s.Outcomes)),
	}
	for _, o := range s.Outcomes {
		js := jsonScenario{
			Name:       o.Scenario,
			Target:     string(o.Target),
			Tags:       o.Tags,
			Status:     string(o.Status()),
			DurationMs: millis(o.Duration),
			Results:    make([]jsonResult, 0, len(o.Results)),
		}
		for _, r := range o.Results {
			jr := jsonResult{Check: r.Name(), Verdict: string(r.Verdict()), Message: r.Message()}
			if m, ok := r.Measured(); ok {
				v := m.Value
				jr.Value, jr.Unit = &v, m.Unit
			}
			js.Results = append(js.Results, jr)
		}
		doc.Scenarios = append(doc.Scenarios, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
