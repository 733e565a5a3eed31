package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables already set. A missing file
// is not an error: the env file is optional by contract.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config for YAML decoding. Durations are strings
// ("30s") and every field is a pointer so absent keys keep their
// current values.
type fileConfig struct {
	Script      *string `yaml:"script"`
	Interpreter *string `yaml:"interpreter"`
	WorkDir     *string `yaml:"work_dir"`
	EnvFile     *string `yaml:"env_file"`

	MaxRestarts  *int    `yaml:"max_restarts"`
	RestartDelay *string `yaml:"restart_delay"`
	KillTimeout  *string `yaml:"kill_timeout"`

	StatusAddr     *string `yaml:"status_addr"`
	SampleInterval *string `yaml:"sample_interval"`
	Verbose        *bool   `yaml:"verbose"`
	LogFormat      *string `yaml:"log_format"`
	LogLevel       *string `yaml:"log_level"`

	TUIEnabled *bool `yaml:"tui"`
}

// LoadFile merges settings from a YAML config file into cfg. Fields not
// present in the file keep their current values. Unknown keys are
// rejected to catch typos.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && err != io.EOF {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return fc.apply(cfg, path)
}

// apply copies the decoded values onto cfg, parsing duration strings.
func (fc *fileConfig) apply(cfg *Config, path string) error {
	if fc.Script != nil {
		cfg.Script = *fc.Script
	}
	if fc.Interpreter != nil {
		cfg.Interpreter = *fc.Interpreter
	}
	if fc.WorkDir != nil {
		cfg.WorkDir = *fc.WorkDir
	}
	if fc.EnvFile != nil {
		cfg.EnvFile = *fc.EnvFile
	}
	if fc.MaxRestarts != nil {
		cfg.MaxRestarts = *fc.MaxRestarts
	}
	if fc.StatusAddr != nil {
		cfg.StatusAddr = *fc.StatusAddr
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.TUIEnabled != nil {
		cfg.TUIEnabled = *fc.TUIEnabled
	}

	durations := []struct {
		raw  *string
		dst  *time.Duration
		name string
	}{
		{fc.RestartDelay, &cfg.RestartDelay, "restart_delay"},
		{fc.KillTimeout, &cfg.KillTimeout, "kill_timeout"},
		{fc.SampleInterval, &cfg.SampleInterval, "sample_interval"},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.name, err)
		}
		*d.dst = v
	}

	return nil
}
