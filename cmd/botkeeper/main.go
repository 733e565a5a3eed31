// Package main provides the botkeeper CLI entry point.
//
// botkeeper supervises a Python trading bot worker process: it spawns
// the worker, relays its output, restarts it on crashes up to a fixed
// budget, and exposes a status/metrics HTTP surface.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quantfold/botkeeper/internal/config"
	"github.com/quantfold/botkeeper/internal/install"
	"github.com/quantfold/botkeeper/internal/logging"
	"github.com/quantfold/botkeeper/internal/metrics"
	"github.com/quantfold/botkeeper/internal/preflight"
	"github.com/quantfold/botkeeper/internal/process"
	"github.com/quantfold/botkeeper/internal/procstat"
	"github.com/quantfold/botkeeper/internal/stats"
	"github.com/quantfold/botkeeper/internal/status"
	"github.com/quantfold/botkeeper/internal/supervisor"
	"github.com/quantfold/botkeeper/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/botkeeper
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("botkeeper %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When the TUI is enabled, suppress logs to keep the screen clean.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, cfg.LogFormat, cfg.LogLevel)
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	// The env file may define PYTHON_BIN and PORT, so load it before
	// resolving either.
	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Environment error: %v\n", err)
		return 1
	}
	cfg.ApplyEnvOverrides()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle -install mode
	if cfg.Install {
		return runInstall(cfg, logger)
	}

	interpreter := cfg.ResolveInterpreter()
	runner := process.NewBotRunner(&process.BotConfig{
		Interpreter: interpreter,
		Script:      cfg.Script,
		WorkDir:     cfg.WorkDir,
	})

	// Handle -print-cmd mode
	if cfg.PrintCmd {
		fmt.Println("# Worker command that would be run:")
		fmt.Println()
		fmt.Println(runner.CommandString())
		return 0
	}

	if !cfg.SkipPreflight {
		result := preflight.RunAll(interpreter, cfg.Script, cfg.WorkDir)
		if !cfg.TUIEnabled || !result.Passed {
			fmt.Fprintln(os.Stderr, "Preflight checks:")
			for _, c := range result.Checks {
				fmt.Fprintln(os.Stderr, c)
			}
		}
		if !result.Passed {
			fmt.Fprintln(os.Stderr, "\nPreflight failed. Fix the issues above or use -skip-preflight.")
			return 1
		}
	}

	logger.Info("starting",
		"version", version,
		"script", cfg.Script,
		"interpreter", interpreter,
		"max_restarts", cfg.MaxRestarts,
		"restart_delay", cfg.RestartDelay.String(),
		"status_addr", cfg.StatusAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg, interpreter)
	}

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version:     version,
		Script:      cfg.Script,
		Interpreter: interpreter,
		MaxRestarts: cfg.MaxRestarts,
	})
	tracker := stats.NewTracker()
	sampler := procstat.NewSampler(cfg.SampleInterval, collector, logger)
	output := logging.NewWorkerOutputHandler(logger)
	spawner := process.NewExecSpawner(runner, output, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var statusServer *status.Server

	sup := supervisor.New(supervisor.Config{
		Spawner:      spawner,
		Logger:       logger,
		MaxRestarts:  cfg.MaxRestarts,
		RestartDelay: cfg.RestartDelay,
		KillTimeout:  cfg.KillTimeout,
		Callbacks: supervisor.Callbacks{
			OnStart: func(pid int) {
				collector.RecordSpawn(pid)
				tracker.RecordSpawn()
				sampler.Track(pid)
			},
			OnExit: func(code int, signaled bool, uptime time.Duration) {
				collector.RecordExit(code, signaled, uptime)
				tracker.RecordExit(code, uptime)
				sampler.Clear()
			},
			OnRestart: func(attempt int, _ time.Duration) {
				collector.RecordRestart(attempt)
				tracker.RecordRestart()
			},
		},
		ExitFunc: func(code int) {
			// Shutdown path: wind down the HTTP surface, print the
			// session summary, and terminate the host.
			cancel()
			if statusServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
				statusServer.Shutdown(shutdownCtx)
				shutdownCancel()
			}
			printSummary(tracker)
			os.Exit(code)
		},
	})

	statusServer = status.NewServer(status.ServerConfig{
		Addr:    cfg.StatusAddr,
		Version: version,
		Source:  sup,
		Logger:  logger,
	})
	statusServer.Start()

	go sampler.Run(ctx)

	if err := sup.Start(ctx); err != nil {
		logger.Error("supervisor_start_failed", "error", err)
		return 1
	}

	if cfg.TUIEnabled {
		return runDashboard(cfg, sup, sampler, output, tracker)
	}

	if err := sup.Wait(); err != nil {
		logger.Error("supervision_ended", "error", err)
		printSummary(tracker)
		return 1
	}

	printSummary(tracker)
	return 0
}

// runInstall seeds the working directory with starter files.
func runInstall(cfg *config.Config, logger *slog.Logger) int {
	steps, err := install.Run(cfg.WorkDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Install error: %v\n", err)
		return 1
	}

	fmt.Println("Install complete:")
	for _, step := range steps {
		if step.Created {
			fmt.Printf("  created %s\n", step.Path)
		} else {
			fmt.Printf("  kept    %s (already exists)\n", step.Path)
		}
	}
	fmt.Println("\nEdit .env with your credentials, then run: botkeeper")
	return 0
}

// runDashboard runs the live TUI until the user quits or supervision ends.
func runDashboard(cfg *config.Config, sup *supervisor.Supervisor, sampler *procstat.Sampler, output *logging.WorkerOutputHandler, tracker *stats.Tracker) int {
	model := tui.New(tui.Config{
		Script:        cfg.Script,
		StatusAddr:    cfg.StatusAddr,
		Version:       version,
		StatusSource:  sup,
		UsageSource:   sampler,
		OutputSource:  output,
		SummarySource: tracker,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Close the dashboard when supervision ends on its own.
	waitErr := make(chan error, 1)
	go func() {
		err := sup.Wait()
		waitErr <- err
		p.Send(tui.QuitMsg{})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Dashboard error: %v\n", err)
	}

	select {
	case err := <-waitErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Supervision ended: %v\n", err)
			printSummary(tracker)
			return 1
		}
		printSummary(tracker)
		return 0
	default:
		// The user quit while the worker was still running.
		// Shutdown terminates the host with exit code 0.
		sup.Shutdown()
		return 0
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config, interpreter string) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════╗")
	fmt.Println("║                      botkeeper                        ║")
	fmt.Println("║        Trading Bot Worker Process Supervisor          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Worker:      %s %s\n", interpreter, cfg.Script)
	fmt.Printf("  Workdir:     %s\n", cfg.WorkDir)
	fmt.Printf("  Restarts:    up to %d, %s apart\n", cfg.MaxRestarts, cfg.RestartDelay)
	fmt.Printf("  Status:      http://%s/status\n", cfg.StatusAddr)
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.StatusAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printSummary renders the session statistics table.
func printSummary(tracker *stats.Tracker) {
	fmt.Println()
	fmt.Println("Session summary:")
	if err := stats.WriteSummary(os.Stdout, tracker.Summary()); err != nil {
		fmt.Fprintf(os.Stderr, "summary error: %v\n", err)
	}
}
