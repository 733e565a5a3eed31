// Package metrics provides Prometheus metrics for botkeeper.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// --- Supervisor overview ---
var (
	botkeeperInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "botkeeper_info",
			Help: "Information about the supervisor (value always 1)",
		},
		[]string{"version", "script", "interpreter"},
	)

	botkeeperWorkerAlive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_worker_alive",
			Help: "Whether a worker process is currently alive (0 or 1)",
		},
	)

	botkeeperWorkerPID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_worker_pid",
			Help: "PID of the current worker process (0 when none)",
		},
	)

	botkeeperRestartAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_restart_attempts",
			Help: "Restart attempts consumed so far",
		},
	)

	botkeeperMaxRestartAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_max_restart_attempts",
			Help: "Configured restart budget",
		},
	)
)

// --- Worker lifecycle ---
var (
	botkeeperSpawnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botkeeper_spawns_total",
			Help: "Total worker incarnations spawned",
		},
	)

	botkeeperRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "botkeeper_restarts_total",
			Help: "Total restarts scheduled after worker crashes",
		},
	)

	botkeeperExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botkeeper_worker_exits_total",
			Help: "Total worker exits by class",
		},
		[]string{"class"}, // clean, crash, signal
	)

	botkeeperLastExitCode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_worker_last_exit_code",
			Help: "Exit code of the most recent worker exit",
		},
	)

	botkeeperUptimeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botkeeper_worker_uptime_seconds",
			Help:    "Uptime of worker incarnations at exit",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400, 86400},
		},
	)
)

// --- Worker resource usage ---
var (
	botkeeperWorkerCPUPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_worker_cpu_percent",
			Help: "Worker process CPU usage percent",
		},
	)

	botkeeperWorkerRSSBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "botkeeper_worker_memory_rss_bytes",
			Help: "Worker process resident set size in bytes",
		},
	)
)

// CollectorConfig holds static labels and policy exposed as metrics.
type CollectorConfig struct {
	Version     string
	Script      string
	Interpreter string
	MaxRestarts int
}

// Collector updates the botkeeper metrics from supervisor events.
type Collector struct {
	cfg CollectorConfig
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector registered with the given
// registry. Tests pass a fresh registry for isolation.
func NewCollectorWithRegistry(cfg CollectorConfig, reg prometheus.Registerer) *Collector {
	reg.MustRegister(
		botkeeperInfo,
		botkeeperWorkerAlive,
		botkeeperWorkerPID,
		botkeeperRestartAttempts,
		botkeeperMaxRestartAttempts,
		botkeeperSpawnsTotal,
		botkeeperRestartsTotal,
		botkeeperExitsTotal,
		botkeeperLastExitCode,
		botkeeperUptimeSeconds,
		botkeeperWorkerCPUPercent,
		botkeeperWorkerRSSBytes,
	)

	botkeeperInfo.WithLabelValues(cfg.Version, cfg.Script, cfg.Interpreter).Set(1)
	botkeeperMaxRestartAttempts.Set(float64(cfg.MaxRestarts))

	return &Collector{cfg: cfg}
}

// RecordSpawn records a new worker incarnation.
func (c *Collector) RecordSpawn(pid int) {
	botkeeperSpawnsTotal.Inc()
	botkeeperWorkerAlive.Set(1)
	botkeeperWorkerPID.Set(float64(pid))
}

// RecordExit records a worker exit.
func (c *Collector) RecordExit(code int, signaled bool, uptime time.Duration) {
	botkeeperWorkerAlive.Set(0)
	botkeeperWorkerPID.Set(0)
	botkeeperLastExitCode.Set(float64(code))
	botkeeperUptimeSeconds.Observe(uptime.Seconds())
	botkeeperExitsTotal.WithLabelValues(classifyExit(code, signaled)).Inc()
}

// RecordRestart records a scheduled restart.
func (c *Collector) RecordRestart(attempt int) {
	botkeeperRestartsTotal.Inc()
	botkeeperRestartAttempts.Set(float64(attempt))
}

// SetResourceUsage updates the worker resource gauges.
func (c *Collector) SetResourceUsage(cpuPercent float64, rssBytes uint64) {
	botkeeperWorkerCPUPercent.Set(cpuPercent)
	botkeeperWorkerRSSBytes.Set(float64(rssBytes))
}

// ClearResourceUsage zeroes the resource gauges when no worker is alive.
func (c *Collector) ClearResourceUsage() {
	botkeeperWorkerCPUPercent.Set(0)
	botkeeperWorkerRSSBytes.Set(0)
}

// classifyExit maps an exit to a metrics label.
func classifyExit(code int, signaled bool) string {
	switch {
	case code == 0:
		return "clean"
	case signaled:
		return "signal"
	default:
		return "crash"
	}
}
