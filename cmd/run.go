// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-e2e/internal/browser"
	"github.com/xkilldash9x/scalpel-e2e/internal/config"
	"github.com/xkilldash9x/scalpel-e2e/internal/errs"
	"github.com/xkilldash9x/scalpel-e2e/internal/observability"
	"github.com/xkilldash9x/scalpel-e2e/internal/probe"
	"github.com/xkilldash9x/scalpel-e2e/internal/report"
	"github.com/xkilldash9x/scalpel-e2e/internal/scenario"
)

// shutdownTimeout bounds browser teardown after the run, including after a signal.
const shutdownTimeout = 30 * time.Second

func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the verification suite against the target deployment",
		Long: `Runs every selected scenario and prints a report naming each failing check.
Exit status is 0 when every check passed, 1 when any check failed or errored,
and 2 when the configuration or suite is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.run(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if code != report.ExitOK {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	f := runCmd.Flags()
	f.String("suite", "", "suite file (default: built-in suite)")
	f.String("run", "", "only run scenarios whose name matches this regexp")
	f.String("skip", "", "skip scenarios whose name matches this regexp")
	f.String("format", "text", "report format: text, json or sarif")
	f.StringP("output", "o", "", "write the report to this file instead of stdout")
	f.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	f.Int("parallel", 1, "number of scenarios to run concurrently, each with its own browser")
	f.Duration("timeout", 60*time.Second, "default per-scenario timeout")
	f.String("base-url", "", "front end base URL (overrides BASE_URL)")
	f.String("api-url", "", "API base URL (overrides API_URL)")
	f.Bool("headless", true, "run the browser headless")
	f.String("limited-path", "", "endpoint expected to enforce rate limiting")
	f.Bool("insecure", false, "skip TLS certificate verification on API calls")
	f.String("proxy", "", "route API calls through this proxy URL")
	f.Bool("no-color", false, "disable colored console output")
	f.BoolP("verbose", "v", false, "list passing checks too")
	f.Bool("trace", false, "export OpenTelemetry spans to tracing.file")

	a.bind(runCmd, map[string]string{
		"suite":        "run.suite",
		"run":          "run.run",
		"skip":         "run.skip",
		"format":       "report.format",
		"output":       "report.output",
		"metrics-file": "report.metrics_file",
		"parallel":     "run.parallelism",
		"timeout":      "run.scenario_timeout",
		"base-url":     "target.base_url",
		"api-url":      "target.api_url",
		"headless":     "browser.headless",
		"limited-path": "api.limited_path",
		"insecure":     "api.ignore_tls_errors",
		"proxy":        "api.proxy",
		"no-color":     "report.no_color",
		"verbose":      "report.verbose",
		"trace":        "tracing.enabled",
	})
	return runCmd
}

// worker is one executor plus the session it owns.
type worker struct {
	runner   *scenario.Runner
	manager  *browser.Manager
	provider *browser.PageProvider
}

// run executes the selected scenarios and writes the report. The returned error
// is reserved for problems that stop the run before or after scenarios execute.
func (a *app) run(ctx context.Context, stdout io.Writer) (int, error) {
	cfg, logger := a.cfg, a.logger.Named("run")

	scs, err := selectScenarios(cfg)
	if err != nil {
		return report.ExitConfig, err
	}

	tp, err := observability.NewTracerProvider(cfg.Tracing, Version)
	if err != nil {
		return report.ExitConfig, errs.Config("tracing.file", "%v", err)
	}
	a.tracer = tp.Tracer(scenario.TracerName)
	defer func() {
		sctx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn("Failed to flush traces.", zap.Error(err))
		}
	}()

	api, err := probe.New(probe.Options{
		BaseURL:   cfg.Target.APIURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.Browser.UserAgent,
		Origin:    cfg.Origin(),
		BurstRate: cfg.API.BurstRate,
		Transport: probe.TransportConfig{
			IgnoreTLSErrors: cfg.API.IgnoreTLSErrors,
			Proxy:           cfg.API.Proxy,
			HTTP2:           cfg.API.HTTP2,
		},
	}, logger)
	if err != nil {
		return report.ExitConfig, err
	}

	agg := report.NewAggregator()
	logger.Info("Starting run",
		zap.String("run_id", agg.RunID()),
		zap.Int("scenarios", len(scs)),
		zap.Int("parallelism", cfg.Run.Parallelism),
		zap.String("base_url", cfg.Target.BaseURL),
		zap.String("api_url", cfg.Target.APIURL))

	workers, err := a.startWorkers(ctx, cfg, scs, api, logger)
	defer a.stopWorkers(ctx, workers, logger)
	if err != nil {
		return report.ExitFailed, err
	}

	executors := make([]scenario.Executor, len(workers))
	for i, w := range workers {
		executors[i] = w.runner
	}
	for _, o := range scenario.Execute(ctx, scs, executors) {
		agg.Record(o)
	}
	summary := agg.Finalize()

	if err := writeReport(cfg, summary, stdout, logger); err != nil {
		return report.ExitFailed, err
	}
	if cfg.Report.MetricsFile != "" {
		m := report.NewMetrics()
		m.Observe(summary)
		if err := m.WriteTextfile(cfg.Report.MetricsFile); err != nil {
			logger.Error("Failed to write metrics file.", zap.Error(err))
		}
	}

	logger.Info("Run complete",
		zap.String("run_id", summary.RunID),
		zap.Bool("ok", summary.OK()),
		zap.Int("checks", summary.Checks),
		zap.Int("failed", summary.ChecksFailed),
		zap.Int("errored", summary.ChecksErrored),
		zap.Duration("duration", summary.Duration()))
	return summary.ExitCode(), nil
}

// selectScenarios loads the suite and applies the run/skip filters. Selecting
// nothing is a configuration error rather than a vacuous pass.
func selectScenarios(cfg *config.Config) ([]scenario.Scenario, error) {
	suite, err := scenario.LoadSuite(cfg.Run.Suite)
	if err != nil {
		return nil, err
	}
	runRe, err := scenario.CompileFilter("run.run", cfg.Run.Run)
	if err != nil {
		return nil, err
	}
	skipRe, err := scenario.CompileFilter("run.skip", cfg.Run.Skip)
	if err != nil {
		return nil, err
	}
	scs := suite.Filter(runRe, skipRe)
	if len(scs) == 0 {
		return nil, errs.Config("run.run", "no scenarios selected from suite %q", suite.Name)
	}
	return scs, nil
}

// startWorkers builds one runner per worker. Each worker gets its own browser
// session when any selected scenario needs a page, so contexts are never shared
// between concurrent scenarios.
func (a *app) startWorkers(ctx context.Context, cfg *config.Config, scs []scenario.Scenario, api *probe.Probe, logger *zap.Logger) ([]*worker, error) {
	n := cfg.Run.Parallelism
	if n > len(scs) {
		n = len(scs)
	}
	needsBrowser := scenario.NeedsBrowser(scs)
	opts := browserOptions(cfg)

	workers := make([]*worker, 0, n)
	for i := 0; i < n; i++ {
		w := &worker{}
		var pages scenario.PageSource
		if needsBrowser {
			w.manager = browser.NewManager(opts, a.launcher, logger)
			workers = append(workers, w)
			if err := w.manager.Start(ctx); err != nil {
				return workers, fmt.Errorf("failed to start browser session %d: %w", i+1, err)
			}
			w.provider = browser.NewPageProvider(logger)
			pages = browser.NewFixtures(w.manager, w.provider)
		} else {
			workers = append(workers, w)
		}

		runner, err := scenario.NewRunner(scenario.Config{
			BaseURL:      cfg.Target.BaseURL,
			Timeout:      cfg.Run.ScenarioTimeout,
			PresenceWait: cfg.Run.PresenceWait,
			LimitedPath:  cfg.API.LimitedPath,
			Tracer:       a.tracer,
		}, pages, api, logger)
		if err != nil {
			return workers, err
		}
		w.runner = runner
	}
	return workers, nil
}

// stopWorkers shuts every session down, even after cancellation, and reports
// whether every acquired page was released.
func (a *app) stopWorkers(ctx context.Context, workers []*worker, logger *zap.Logger) {
	sctx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
	defer cancel()

	var acquired, released int64
	for _, w := range workers {
		if w.provider != nil {
			acquired += w.provider.Acquired()
			released += w.provider.Released()
		}
		if w.manager == nil {
			continue
		}
		if err := w.manager.Shutdown(sctx); err != nil {
			logger.Error("Failed to shut down browser session.", zap.String("session_id", w.manager.ID()), zap.Error(err))
		}
	}
	if acquired != released {
		logger.Error("Page handles leaked.", zap.Int64("acquired", acquired), zap.Int64("released", released))
		return
	}
	logger.Info("Page handles balanced.", zap.Int64("acquired", acquired), zap.Int64("released", released))
}

func browserOptions(cfg *config.Config) browser.Options {
	return browser.Options{
		Headless:        cfg.Browser.Headless,
		IgnoreTLSErrors: cfg.Browser.IgnoreTLSErrors,
		ExecPath:        cfg.Browser.ExecPath,
		Args:            cfg.Browser.Args,
		LaunchTimeout:   cfg.Browser.LaunchTimeout,
		Context: browser.ContextConfig{
			Viewport:  browser.Viewport{Width: cfg.Browser.Viewport.Width, Height: cfg.Browser.Viewport.Height},
			UserAgent: cfg.Browser.UserAgent,
		},
	}
}

// writeReport renders the summary in the configured format to stdout or the
// configured file.
func writeReport(cfg *config.Config, s report.Summary, stdout io.Writer, logger *zap.Logger) error {
	w, err := report.NewWriter(cfg.Report.Format, report.WriterOptions{
		ToolVersion: Version,
		NoColor:     cfg.Report.NoColor,
		Verbose:     cfg.Report.Verbose,
	}, logger)
	if err != nil {
		return errs.Config("report.format", "%v", err)
	}

	if cfg.Report.Output == "" {
		return w.Write(stdout, s)
	}
	out, _, err := report.Open(cfg.Report.Output)
	if err != nil {
		return err
	}
	if err := w.Write(out, s); err != nil {
		out.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	logger.Info("Report written", zap.String("path", cfg.Report.Output), zap.String("format", cfg.Report.Format))
	return nil
}
