package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version  int            `json:"version"`
	Defaults DefaultsConfig `json:"defaults"`
	Command  CommandConfig  `json:"command"`
}

type DefaultsConfig struct {
	Concurrency       int    `json:"concurrency"`
	ContinueOnFailure bool   `json:"continueOnFailure"`
	Timeout           int    `json:"timeout"`
	OutputDir         string `json:"outputDir"`
	Workspace         string `json:"workspace"`
}

// CommandConfig selects the external test command. Adapter is "ng" (default)
// or "custom"; custom args may contain the {project} placeholder.
type CommandConfig struct {
	Adapter  string   `json:"adapter" yaml:"adapter,omitempty"`
	Binary   string   `json:"binary" yaml:"binary,omitempty"`
	Args     []string `json:"args,omitempty" yaml:"args,omitempty"`
	Browsers string   `json:"browsers,omitempty" yaml:"browsers,omitempty"`
}

func NewDefaults() *Config {
	return &Config{
		Version: 1,
		Defaults: DefaultsConfig{
			Concurrency: 4,
			OutputDir:   "./.paratest/runs",
			Workspace:   "angular.json",
		},
		Command: CommandConfig{
			Adapter:  "ng",
			Binary:   "ng",
			Browsers: "ChromeHeadless",
		},
	}
}

var ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")

// ParseConcurrency validates a user-supplied concurrency value.
func ParseConcurrency(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidConcurrency, s)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, n)
	}
	return n, nil
}

// Validate reports the first setting that would make a run impossible.
func (c *Config) Validate() error {
	if c.Defaults.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Defaults.Concurrency)
	}
	if c.Defaults.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: got %d", c.Defaults.Timeout)
	}
	switch c.Command.Adapter {
	case "", "ng":
	case "custom":
		if c.Command.Binary == "" {
			return errors.New("custom command requires a binary")
		}
	default:
		return fmt.Errorf("unknown command adapter %q: must be ng or custom", c.Command.Adapter)
	}
	return nil
}

func GlobalConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "paratest")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "paratest")
}

func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

func LoadFromFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	// Security: refuse to load config writable by group/others
	if info.Mode().Perm()&0o022 != 0 {
		return nil, fmt.Errorf("config %s has unsafe permissions %o (writable by group/others)", path, info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewDefaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ProjectDefaults holds per-workspace overrides.
type ProjectDefaults struct {
	Concurrency       *int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	ContinueOnFailure *bool   `json:"continueOnFailure,omitempty" yaml:"continueOnFailure,omitempty"`
	Timeout           *int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	OutputDir         *string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	Workspace         *string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

// ProjectConfig is a .paratest.json or .paratest.yaml file in the workspace root.
type ProjectConfig struct {
	Defaults *ProjectDefaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Command  *CommandConfig   `json:"command,omitempty" yaml:"command,omitempty"`
}

var projectConfigNames = []string{".paratest.json", ".paratest.yaml", ".paratest.yml"}

// ProjectConfigPath returns the first project config file present in dir, or "".
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadProjectConfig reads the project config from dir. Returns nil if not found.
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}
	var pc ProjectConfig
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &pc)
	} else {
		err = yaml.Unmarshal(data, &pc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &pc, nil
}

// SaveProjectConfig writes pc as .paratest.yaml in dir and returns the path.
func SaveProjectConfig(dir string, pc *ProjectConfig) (string, error) {
	data, err := yaml.Marshal(pc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ".paratest.yaml")
	return path, atomicWrite(path, data, 0o644)
}

// MergeWithProject applies project-level overrides to the global config.
func MergeWithProject(cfg *Config, pc *ProjectConfig) {
	if pc == nil {
		return
	}
	if d := pc.Defaults; d != nil {
		if d.Concurrency != nil {
			cfg.Defaults.Concurrency = *d.Concurrency
		}
		if d.ContinueOnFailure != nil {
			cfg.Defaults.ContinueOnFailure = *d.ContinueOnFailure
		}
		if d.Timeout != nil {
			cfg.Defaults.Timeout = *d.Timeout
		}
		if d.OutputDir != nil {
			cfg.Defaults.OutputDir = *d.OutputDir
		}
		if d.Workspace != nil {
			cfg.Defaults.Workspace = *d.Workspace
		}
	}
	if c := pc.Command; c != nil {
		if c.Adapter != "" {
			cfg.Command.Adapter = c.Adapter
		}
		if c.Binary != "" {
			cfg.Command.Binary = c.Binary
		}
		if c.Args != nil {
			cfg.Command.Args = c.Args
		}
		if c.Browsers != "" {
			cfg.Command.Browsers = c.Browsers
		}
	}
}

func Load() (*Config, error) {
	path := GlobalConfigPath()
	cfg, err := LoadFromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefaults(), nil
		}
		return nil, fmt.Errorf("global config: %w", err)
	}
	return cfg, nil
}

// LoadMerged loads global config, then merges project-level overrides from
// the given directory.
func LoadMerged(projectDir string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	pc, err := LoadProjectConfig(projectDir)
	if err != nil {
		return nil, fmt.Errorf("project config: %w", err)
	}
	MergeWithProject(cfg, pc)
	return cfg, nil
}

func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return atomicWrite(path, data, 0o600)
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".paratest-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
