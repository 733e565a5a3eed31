package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags and returns a Config.
// A config file given with -config is loaded first, then flags
// override it.
func ParseFlags() (*Config, error) {
	return parseFlags(os.Args[1:])
}

func parseFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("botkeeper", flag.ContinueOnError)

	var configFile string
	fs.StringVar(&configFile, "config", "", "Path to YAML config file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `botkeeper - trading bot worker supervisor

Usage:
  botkeeper [flags]

Worker Flags:
`)
		printFlagCategory(fs, []string{"script", "interpreter", "workdir", "env-file"})

		fmt.Fprintf(fs.Output(), "\nRestart Policy:\n")
		printFlagCategory(fs, []string{"max-restarts", "restart-delay", "kill-timeout"})

		fmt.Fprintf(fs.Output(), "\nObservability:\n")
		printFlagCategory(fs, []string{"status", "sample-interval", "v", "log-format", "log-level"})

		fmt.Fprintf(fs.Output(), "\nDashboard:\n")
		printFlagCategory(fs, []string{"tui"})

		fmt.Fprintf(fs.Output(), "\nDiagnostics & Setup:\n")
		printFlagCategory(fs, []string{"config", "print-cmd", "install", "skip-preflight"})

		fmt.Fprintf(fs.Output(), `
Examples:
  # Supervise ./bot.py with defaults
  botkeeper

  # One-time environment setup
  botkeeper -install

  # Custom script and fast restart cycle
  botkeeper -script trader.py -restart-delay 5s

`)
	}

	// Worker flags
	fs.StringVar(&cfg.Script, "script", cfg.Script, "Worker script to supervise")
	fs.StringVar(&cfg.Interpreter, "interpreter", cfg.Interpreter, "Interpreter binary (default: $PYTHON_BIN or python3)")
	fs.StringVar(&cfg.WorkDir, "workdir", cfg.WorkDir, "Working directory for the worker")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Dotenv file loaded before spawning")

	// Restart policy
	fs.IntVar(&cfg.MaxRestarts, "max-restarts", cfg.MaxRestarts, "Restart budget before terminal failure")
	fs.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "Delay between restart attempts")
	fs.DurationVar(&cfg.KillTimeout, "kill-timeout", cfg.KillTimeout, "Grace period before SIGKILL on shutdown")

	// Observability
	fs.StringVar(&cfg.StatusAddr, "status", cfg.StatusAddr, "Status/metrics HTTP address")
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "Worker resource sampling interval")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Diagnostics & setup
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the worker command and exit")
	fs.BoolVar(&cfg.Install, "install", cfg.Install, "Run idempotent environment setup and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Flags win over the file: load the file into the bound struct,
	// then apply the command line a second time on top of it.
	if configFile != "" {
		if err := LoadFile(cfg, configFile); err != nil {
			return nil, err
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, names []string) {
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(fs.Output(), "  -%s\n    \t%s", f.Name, f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(fs.Output(), " (default %s)", f.DefValue)
				}
				fmt.Fprintln(fs.Output())
				return
			}
		}
	})
}
