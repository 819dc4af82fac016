// internal/report/metrics.go
package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "scalpel_e2e"

// Metrics exposes a run summary as Prometheus gauges on a private registry,
// suitable for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	scenarios *prometheus.GaugeVec
	checks    *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	success   prometheus.Gauge
	lastRun   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scenarios: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scenarios",
			Help:      "Scenarios in the last run by status.",
		}, []string{"status"}),
		checks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "checks",
			Help:      "Check results in the last run by verdict.",
		}, []string{"verdict"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scenario_duration_seconds",
			Help:      "Wall time of each scenario in the last run.",
		}, []string{"scenario", "status"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_success",
			Help:      "1 if every check of the last run passed, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.scenarios, m.checks, m.duration, m.success, m.lastRun)
	return m
}

// Observe loads the summary into the gauges, replacing earlier values.
func (m *Metrics) Observe(s Summary) {
	m.scenarios.Reset()
	m.checks.Reset()
	m.duration.Reset()

	m.scenarios.WithLabelValues("passed").Set(float64(s.ScenariosPassed))
	m.scenarios.WithLabelValues("failed").Set(float64(s.ScenariosFailed))
	m.scenarios.WithLabelValues("errored").Set(float64(s.ScenariosErrored))
	m.checks.WithLabelValues("pass").Set(float64(s.ChecksPassed))
	m.checks.WithLabelValues("fail").Set(float64(s.ChecksFailed))
	m.checks.WithLabelValues("error").Set(float64(s.ChecksErrored))

	for _, o := range s.Outcomes {
		m.duration.WithLabelValues(o.Scenario, string(o.Status())).Set(o.Duration.Seconds())
	}
	if s.OK() {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
	m.lastRun.Set(float64(s.Finished.Unix()))
}

// WriteTextfile writes the gauges atomically to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
