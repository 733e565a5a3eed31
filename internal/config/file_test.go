package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "botkeeper.yml", `
script: trader.py
max_restarts: 3
restart_delay: 5s
kill_timeout: 2s
log_format: text
tui: true
`)

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Script != "trader.py" {
		t.Errorf("Script = %q, want trader.py", cfg.Script)
	}
	if cfg.MaxRestarts != 3 {
		t.Errorf("MaxRestarts = %d, want 3", cfg.MaxRestarts)
	}
	if cfg.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v, want 5s", cfg.RestartDelay)
	}
	if cfg.KillTimeout != 2*time.Second {
		t.Errorf("KillTimeout = %v, want 2s", cfg.KillTimeout)
	}
	if !cfg.TUIEnabled {
		t.Error("TUIEnabled = false, want true")
	}

	// Absent keys keep their defaults.
	if cfg.StatusAddr != "0.0.0.0:10000" {
		t.Errorf("StatusAddr = %q, want default", cfg.StatusAddr)
	}
	if cfg.SampleInterval != 2*time.Second {
		t.Errorf("SampleInterval = %v, want default 2s", cfg.SampleInterval)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "botkeeper.yml", "scirpt: typo.py\n")

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err == nil {
		t.Error("LoadFile() error = nil for unknown key, want error")
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	path := writeFile(t, t.TempDir(), "botkeeper.yml", "restart_delay: soon\n")

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err == nil {
		t.Error("LoadFile() error = nil for bad duration, want error")
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFile(cfg, filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("LoadFile() error = nil for missing file, want error")
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "botkeeper.yml", "")

	cfg := DefaultConfig()
	if err := LoadFile(cfg, path); err != nil {
		t.Errorf("LoadFile() error = %v for empty file, want nil", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("loads variables", func(t *testing.T) {
		t.Setenv("BOTKEEPER_TEST_KEY", "")
		os.Unsetenv("BOTKEEPER_TEST_KEY")

		path := writeFile(t, t.TempDir(), ".env", "BOTKEEPER_TEST_KEY=from-file\n")
		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}
		if got := os.Getenv("BOTKEEPER_TEST_KEY"); got != "from-file" {
			t.Errorf("BOTKEEPER_TEST_KEY = %q, want from-file", got)
		}
	})

	t.Run("does not override existing variables", func(t *testing.T) {
		t.Setenv("BOTKEEPER_TEST_KEY2", "from-env")

		path := writeFile(t, t.TempDir(), ".env", "BOTKEEPER_TEST_KEY2=from-file\n")
		if err := LoadEnvFile(path); err != nil {
			t.Fatalf("LoadEnvFile() error = %v", err)
		}
		if got := os.Getenv("BOTKEEPER_TEST_KEY2"); got != "from-env" {
			t.Errorf("BOTKEEPER_TEST_KEY2 = %q, want from-env", got)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("LoadEnvFile() error = %v for missing file, want nil", err)
		}
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		if err := LoadEnvFile(""); err != nil {
			t.Errorf("LoadEnvFile(\"\") error = %v, want nil", err)
		}
	})
}
