// File: cmd/cmd_test.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
	"github.com/xkilldash9x/scalpel-e2e/internal/report"
)

const pageSuite = `
name: cmd-test
scenarios:
  - name: landing page
    target: page
    steps:
      - navigate: /
      - check: visible
        target: "#hero"
      - check: title-matches
        want: /Scanner/
  - name: api health check
    target: api
    steps:
      - check: health
`

func landingPage() *browsertest.Page {
	return &browsertest.Page{
		Visible:   map[string]bool{"#hero": true},
		TitleText: "AI Accessibility Scanner",
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, report.ExitOK},
		{"failed checks", &ExitError{Code: report.ExitFailed}, report.ExitFailed},
		{"configuration", errs.Config("run.run", "no scenarios"), report.ExitConfig},
		{"wrapped configuration", fmt.Errorf("load: %w", errs.Config("k", "bad")), report.ExitConfig},
		{"resource", errs.Resource("browser.launch", errors.New("no chrome")), report.ExitFailed},
		{"other", errors.New("boom"), report.ExitFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	res := run(t, nil, "version")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "scalpel-e2e "+Version)
}

func TestListCommand(t *testing.T) {
	res := run(t, nil, "list", "--run", "^api")
	require.Equal(t, 0, res.code, res.stderr)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 7, "header plus the six API scenarios")
	assert.Contains(t, lines[0], "SCENARIO")
	assert.Contains(t, lines[1], "api health check")
	for _, l := range lines[1:] {
		assert.Contains(t, l, "api")
	}
}

func TestListCommand_NoMatch(t *testing.T) {
	res := run(t, nil, "list", "--run", "no-such-scenario")
	assert.Equal(t, report.ExitConfig, res.code)
	assert.Contains(t, res.stderr, "no scenarios selected")
}

func TestRun_APIScenariosPass(t *testing.T) {
	api, srv := newMockAPI(t)

	res := run(t, nil, "run", "--api-url", srv.URL, "--run", "^api", "--format", "json", "--no-color")
	require.Equal(t, report.ExitOK, res.code, res.stdout+res.stderr)

	assert.True(t, gjson.Get(res.stdout, "ok").Bool())
	assert.Equal(t, int64(6), gjson.Get(res.stdout, "totals.scenarios").Int())
	assert.Equal(t, "api health check", gjson.Get(res.stdout, "scenarios.0.name").String())
	assert.Zero(t, gjson.Get(res.stdout, "totals.checks_failed").Int())
	assert.Greater(t, api.hits.Load(), int32(10), "burst and contract checks hit /health")
}

func TestRun_FailingCheckExitsOne(t *testing.T) {
	api, srv := newMockAPI(t)
	api.unhealthy.Store(true)

	res := run(t, nil, "run", "--api-url", srv.URL, "--run", "^api health check$", "--no-color")
	assert.Equal(t, report.ExitFailed, res.code)
	assert.Contains(t, res.stdout, "api health check > health-contract")
	assert.NotContains(t, res.stderr, "Error:", "a failed run is not a command error")
}

func TestRun_PageScenariosWithFakeBrowser(t *testing.T) {
	_, srv := newMockAPI(t)
	launcher := &browsertest.Launcher{NewPage: landingPage}
	metrics := filepath.Join(t.TempDir(), "e2e.prom")
	out := filepath.Join(t.TempDir(), "report.sarif")

	res := run(t, launcher, "run",
		"--suite", writeSuite(t, pageSuite),
		"--base-url", "https://app.example.com",
		"--api-url", srv.URL,
		"--format", "sarif",
		"--output", out,
		"--metrics-file", metrics,
	)
	require.Equal(t, report.ExitOK, res.code, res.stdout+res.stderr)

	require.Equal(t, 1, launcher.Launches())
	engine := launcher.Engines()[0]
	assert.Equal(t, 1, engine.Closes(), "session shut down after the run")
	require.Len(t, engine.Contexts(), 1)
	assert.Equal(t, 1, engine.Contexts()[0].Closes())

	sarifDoc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(sarifDoc, "runs.0.invocations.0.executionSuccessful").Bool())
	assert.Equal(t, int64(0), gjson.GetBytes(sarifDoc, "runs.0.results.#").Int())

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "scalpel_e2e_run_success 1")
}

func TestRun_ParallelWorkersOwnSessions(t *testing.T) {
	_, srv := newMockAPI(t)
	launcher := &browsertest.Launcher{NewPage: landingPage}
	suite := writeSuite(t, `
name: parallel
scenarios:
  - name: one
    target: page
    steps: [{navigate: /}, {check: visible, target: "#hero"}]
  - name: two
    target: page
    steps: [{navigate: /}, {check: visible, target: "#hero"}]
  - name: three
    target: page
    steps: [{navigate: /}, {check: visible, target: "#hero"}]
`)

	res := run(t, launcher, "run", "--suite", suite, "--api-url", srv.URL, "--parallel", "2", "--format", "json")
	require.Equal(t, report.ExitOK, res.code, res.stdout+res.stderr)

	assert.Equal(t, 2, launcher.Launches())
	for _, e := range launcher.Engines() {
		assert.Equal(t, 1, e.Closes())
	}
	names := gjson.Get(res.stdout, "scenarios.#.name").Array()
	require.Len(t, names, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{names[0].String(), names[1].String(), names[2].String()})
}

func TestRun_APIOnlySuiteLaunchesNoBrowser(t *testing.T) {
	_, srv := newMockAPI(t)
	launcher := &browsertest.Launcher{}

	res := run(t, launcher, "run", "--api-url", srv.URL, "--run", "^api health check$")
	require.Equal(t, report.ExitOK, res.code, res.stdout+res.stderr)
	assert.Zero(t, launcher.Launches())
}

func TestRun_LaunchFailureExitsOne(t *testing.T) {
	_, srv := newMockAPI(t)
	launcher := &browsertest.Launcher{LaunchErr: errors.New("chrome not found")}

	res := run(t, launcher, "run", "--suite", writeSuite(t, pageSuite), "--api-url", srv.URL)
	assert.Equal(t, report.ExitFailed, res.code)
	assert.Contains(t, res.stderr, "chrome not found")
}

func TestRun_ConfigurationErrorsExitTwo(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"malformed base url", []string{"--base-url", "localhost:3000"}, "target.base_url"},
		{"unknown format", []string{"--format", "xml"}, "report.format"},
		{"bad run filter", []string{"--run", "("}, "run.run"},
		{"no scenarios selected", []string{"--run", "nothing-matches-this"}, "no scenarios selected"},
		{"missing suite file", []string{"--suite", "/does/not/exist.yaml"}, "run.suite"},
		{"zero parallelism", []string{"--parallel", "0"}, "run.parallelism"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := &browsertest.Launcher{}
			res := run(t, launcher, append([]string{"run"}, tt.args...)...)
			assert.Equal(t, report.ExitConfig, res.code)
			assert.Contains(t, res.stderr, tt.want)
			assert.Zero(t, launcher.Launches(), "no session is started for an invalid run")
		})
	}
}

func TestRun_InvalidSuite(t *testing.T) {
	suite := writeSuite(t, `
name: broken
scenarios:
  - name: typo
    target: page
    steps:
      - navigat: /
`)
	res := run(t, &browsertest.Launcher{}, "run", "--suite", suite)
	assert.Equal(t, report.ExitConfig, res.code)
	assert.Contains(t, res.stderr, "invalid suite")
}

func TestRun_CanceledContext(t *testing.T) {
	_, srv := newMockAPI(t)
	launcher := &browsertest.Launcher{NewPage: landingPage}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr strings.Builder
	code := execute(ctx, newRootCommand(launcher), []string{"run", "--suite", writeSuite(t, pageSuite), "--api-url", srv.URL}, &stdout, &stderr)
	assert.NotEqual(t, report.ExitOK, code)
}
