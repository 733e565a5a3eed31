package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckInterpreter(t *testing.T) {
	tests := []struct {
		name        string
		interpreter string
		wantPass    bool
	}{
		{"shell is always present", "sh", true},
		{"missing binary", "definitely-not-a-real-interpreter", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkInterpreter(tt.interpreter)
			if c.Passed != tt.wantPass {
				t.Errorf("checkInterpreter(%q).Passed = %v, want %v (%s)",
					tt.interpreter, c.Passed, tt.wantPass, c.Message)
			}
		})
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bot.py")
	if err := os.WriteFile(script, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("absolute path", func(t *testing.T) {
		if c := checkScript(script, ""); !c.Passed {
			t.Errorf("check failed: %s", c.Message)
		}
	})

	t.Run("relative to workdir", func(t *testing.T) {
		if c := checkScript("bot.py", dir); !c.Passed {
			t.Errorf("check failed: %s", c.Message)
		}
	})

	t.Run("missing script", func(t *testing.T) {
		if c := checkScript("nope.py", dir); c.Passed {
			t.Error("check passed for missing script")
		}
	})

	t.Run("directory instead of file", func(t *testing.T) {
		if c := checkScript(dir, ""); c.Passed {
			t.Error("check passed for a directory")
		}
	})
}

func TestCheckWorkDir(t *testing.T) {
	t.Run("writable directory", func(t *testing.T) {
		c := checkWorkDir(t.TempDir())
		if !c.Passed || c.Warning {
			t.Errorf("check = %+v, want pass without warning", c)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if c := checkWorkDir(filepath.Join(t.TempDir(), "missing")); c.Passed {
			t.Error("check passed for missing directory")
		}
	})

	t.Run("empty defaults to cwd", func(t *testing.T) {
		if c := checkWorkDir(""); !c.Passed {
			t.Errorf("check failed for cwd: %s", c.Message)
		}
	})
}

func TestCheckFileDescriptors(t *testing.T) {
	c := checkFileDescriptors()
	// Any reasonable environment has at least 64 descriptors.
	if !c.Passed {
		t.Errorf("check failed: %s", c.Message)
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bot.py")
	if err := os.WriteFile(script, []byte("pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := RunAll("sh", "bot.py", dir)
	if !result.Passed {
		for _, c := range result.Checks {
			t.Logf("%s", c)
		}
		t.Fatal("RunAll failed in a healthy setup")
	}
	if len(result.Checks) != 4 {
		t.Errorf("len(Checks) = %d, want 4", len(result.Checks))
	}

	result = RunAll("definitely-not-a-real-interpreter", "bot.py", dir)
	if result.Passed {
		t.Error("RunAll passed with a missing interpreter")
	}
}

func TestCheckString(t *testing.T) {
	c := Check{Name: "script", Passed: true, Message: "/tmp/bot.py"}
	if got := c.String(); !strings.Contains(got, "script") || !strings.Contains(got, "✓") {
		t.Errorf("String() = %q", got)
	}

	c = Check{Name: "script", Passed: false, Message: "missing"}
	if got := c.String(); !strings.Contains(got, "✗") {
		t.Errorf("String() = %q", got)
	}
}
