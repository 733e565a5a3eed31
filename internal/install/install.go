// Package install seeds a working directory with starter configuration
// for a new bot deployment.
package install

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed templates/env.example templates/botkeeper.yml
var templates embed.FS

// Step records the outcome of one installation step.
type Step struct {
	Name    string
	Path    string
	Created bool // false when the file already existed
}

// files maps template names to their install targets.
var files = []struct {
	template string
	target   string
}{
	{"templates/env.example", ".env"},
	{"templates/botkeeper.yml", "botkeeper.yml"},
}

// Run writes the starter files into dir. Existing files are left
// untouched, so Run is safe to repeat on a configured deployment.
func Run(dir string, logger *slog.Logger) ([]Step, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	steps := make([]Step, 0, len(files))
	for _, f := range files {
		step, err := installFile(dir, f.template, f.target)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)

		if step.Created {
			logger.Info("install_file_created", "path", step.Path)
		} else {
			logger.Info("install_file_exists", "path", step.Path)
		}
	}

	return steps, nil
}

// installFile writes one template unless the target already exists.
func installFile(dir, template, target string) (Step, error) {
	path := filepath.Join(dir, target)
	step := Step{Name: target, Path: path}

	if _, err := os.Stat(path); err == nil {
		return step, nil
	} else if !os.IsNotExist(err) {
		return step, fmt.Errorf("checking %s: %w", path, err)
	}

	data, err := templates.ReadFile(template)
	if err != nil {
		return step, fmt.Errorf("reading template %s: %w", template, err)
	}

	// The env file may hold credentials later; keep it private.
	mode := os.FileMode(0o644)
	if target == ".env" {
		mode = 0o600
	}

	if err := os.WriteFile(path, data, mode); err != nil {
		return step, fmt.Errorf("writing %s: %w", path, err)
	}

	step.Created = true
	return step, nil
}
