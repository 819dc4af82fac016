// internal/report/sarif_writer.go
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/check"
	"github.com/xkilldash9x/scalpel-e2e/internal/report/sarif"
)

const (
	ToolName    = "scalpel-e2e"
	ToolInfoURI = "https://github.com/xkilldash9x/scalpel-e2e"
)

// ruleIDSanitizer collapses anything outside [A-Za-z0-9_.] into a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFWriter renders failing and errored checks as SARIF 2.1.0 results, one
// rule per check name, so CI code-scanning views can list them.
type SARIFWriter struct {
	toolVersion string
	logger      *zap.Logger
}

func NewSARIFWriter(toolVersion string, logger *zap.Logger) *SARIFWriter {
	return &SARIFWriter{toolVersion: toolVersion, logger: logger.Named("sarif_writer")}
}

// ruleID derives a stable rule ID from a check name.
func ruleID(name string) string {
	id := strings.Trim(ruleIDSanitizer.ReplaceAllString(strings.ToUpper(name), "-"), "-")
	if id == "" {
		id = "UNNAMED-CHECK"
	}
	return "E2E-" + id
}

func levelFor(v check.Verdict) sarif.Level {
	switch v {
	case check.VerdictFail:
		return sarif.LevelError
	case check.VerdictError:
		return sarif.LevelWarning
	default:
		return sarif.LevelNone
	}
}

// Build converts the summary into a SARIF log.
func (sw *SARIFWriter) Build(s Summary) *sarif.Log {
	driver := &sarif.ToolComponent{
		Name:           ToolName,
		Version:        pString(sw.toolVersion),
		InformationURI: pString(ToolInfoURI),
		Rules:          []*sarif.ReportingDescriptor{},
	}
	exitCode := s.ExitCode()
	run := &sarif.Run{
		Tool: &sarif.Tool{Driver: driver},
		Invocations: []*sarif.Invocation{{
			ExecutionSuccessful: s.OK(),
			StartTimeUTC:        pString(s.Started.UTC().Format(time.RFC3339)),
			EndTimeUTC:          pString(s.Finished.UTC().Format(time.RFC3339)),
			ExitCode:            &exitCode,
		}},
		Results: []*sarif.Result{},
		Properties: sarif.PropertyBag{
			"runId":     s.RunID,
			"scenarios": s.Scenarios,
			"checks":    s.Checks,
		},
	}

	ruleIndex := make(map[string]int)
	for _, f := range s.Failures() {
		name := f.Result.Name()
		idx, ok := ruleIndex[name]
		if !ok {
			idx = len(driver.Rules)
			ruleIndex[name] = idx
			driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
				ID:               ruleID(name),
				Name:             pString(name),
				ShortDescription: &sarif.MultiformatMessageString{Text: pString(fmt.Sprintf("End-to-end check %s", name))},
				Properties:       sarif.PropertyBag{"tags": []string{"e2e", "scalpel"}},
			})
		}

		res := &sarif.Result{
			RuleID:    driver.Rules[idx].ID,
			RuleIndex: idx,
			Kind:      sarif.KindFail,
			Level:     levelFor(f.Result.Verdict()),
			Message:   &sarif.Message{Text: pString(f.Result.Message())},
			Locations: []*sarif.Location{{
				LogicalLocations: []*sarif.LogicalLocation{{
					Name:               f.Scenario,
					FullyQualifiedName: pString(f.Scenario + "/" + name),
					Kind:               "resource",
				}},
			}},
			Properties: sarif.PropertyBag{"verdict": string(f.Result.Verdict())},
		}
		if m, ok := f.Result.Measured(); ok {
			res.Properties["measured"] = m.Value
			res.Properties["unit"] = m.Unit
		}
		run.Results = append(run.Results, res)
	}

	return &sarif.Log{Version: sarif.Version, Schema: sarif.Schema, Runs: []*sarif.Run{run}}
}

func (sw *SARIFWriter) Write(w io.Writer, s Summary) error {
	log := sw.Build(s)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		sw.logger.Error("Failed to encode SARIF log.", zap.Error(err))
		return fmt.Errorf("failed to encode SARIF output: %w", err)
	}
	sw.logger.Debug("SARIF report written.",
		zap.Int("total_results", len(log.Runs[0].Results)),
		zap.Int("total_rules", len(log.Runs[0].Tool.Driver.Rules)))
	return nil
}

func pString(s string) *string { return &s }
