/*
Package config loads taskforge's YAML configuration file: the target
repository, the handoff root, sandbox image/limits, and polling
behavior. Defaults are filled in for anything the file omits so the
zero-value Config is still a usable, conservative configuration.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is taskforge's top-level runtime configuration.
type Config struct {
	// RepoPath is the target repository the orchestrator mutates via
	// per-task worktrees.
	RepoPath string `yaml:"repo_path"`
	// HandoffRoot is the directory holding tasks/, running/, results/, etc.
	HandoffRoot string `yaml:"handoff_root"`

	PollIntervalSec int `yaml:"poll_interval_sec"`

	Sandbox SandboxConfig `yaml:"sandbox"`
	Locks   LocksConfig   `yaml:"locks"`
}

// SandboxConfig configures the container engine the SandboxRunner talks to.
type SandboxConfig struct {
	SocketPath   string   `yaml:"socket_path"`
	Image        string   `yaml:"image"`
	CPUCores     float64  `yaml:"cpu_cores"`
	MemoryMB     int64    `yaml:"memory_mb"`
	PidsLimit    int64    `yaml:"pids_limit"`
	TimeoutSec   int      `yaml:"timeout_sec"`
	EnvAllowlist []string `yaml:"env_allowlist"`
}

// LocksConfig configures lock reclaim behavior.
type LocksConfig struct {
	WorkerStaleSec int `yaml:"worker_stale_sec"`
}

// DefaultEnvAllowlist is the fixed set of host environment variables the
// sandbox is permitted to inherit.
var DefaultEnvAllowlist = []string{"CI", "NODE_ENV", "HOME", "PATH", "TERM", "LANG", "LC_ALL", "TZ"}

// Default returns a Config with every field populated with the spec's
// documented defaults.
func Default() Config {
	return Config{
		PollIntervalSec: 2,
		Sandbox: SandboxConfig{
			SocketPath:   "/run/containerd/containerd.sock",
			CPUCores:     2,
			MemoryMB:     2048,
			PidsLimit:    256,
			TimeoutSec:   300,
			EnvAllowlist: DefaultEnvAllowlist,
		},
		Locks: LocksConfig{WorkerStaleSec: 0},
	}
}

// Load reads and parses a YAML config file at path, filling any field
// left zero by the file with the documented default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Sandbox.EnvAllowlist) == 0 {
		cfg.Sandbox.EnvAllowlist = DefaultEnvAllowlist
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.RepoPath == "" {
		return fmt.Errorf("config: repo_path is required")
	}
	if c.HandoffRoot == "" {
		return fmt.Errorf("config: handoff_root is required")
	}
	if c.Sandbox.Image == "" {
		return fmt.Errorf("config: sandbox.image is required")
	}
	return nil
}

// PollInterval returns the configured poll interval as a time.Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}
