package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the pipeline.
type Paths struct {
	QueueDir    string `toml:"queue_dir"`
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	DatabaseDir string `toml:"database_dir"`
}

// Engine contains configuration for launching the host-engine worker process.
type Engine struct {
	Binary         string   `toml:"binary"`
	ProjectPath    string   `toml:"project_path"`
	ExtraArgs      []string `toml:"extra_args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Remote contains configuration for the baked-scene object store.
type Remote struct {
	BakedPrefix string `toml:"baked_prefix"`
	MirrorDir   string `toml:"mirror_dir"`
}

// Workflow contains daemon timing and waiter intervals.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	WaitPollInterval  int `toml:"wait_poll_interval"`
	WaitTimeout       int `toml:"wait_timeout"`
}

// History contains configuration for the append-only job history log.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sceneforge.
//
// Configuration sections by subsystem:
//   - Paths: queue, output, log, and database directories
//   - Engine: host-engine binary invocation for worker jobs
//   - Remote: baked-scene store prefix and local mirror used for registry sync
//   - Workflow: daemon poll cadence and waiter deadlines
//   - History: append-only job audit log
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Engine   Engine   `toml:"engine"`
	Remote   Remote   `toml:"remote"`
	Workflow Workflow `toml:"workflow"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sceneforge/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves a leading ~ in user-supplied path values.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sceneforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for queue and registry operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.QueueDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.DatabaseDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the scene registry database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DatabaseDir, "scene_registry.db")
}

// HistoryLogPath returns the job history log location, honoring an explicit override.
func (c *Config) HistoryLogPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.LogDir, "job_history.jsonl")
}

// QueuePollInterval returns the daemon claim cadence as a duration.
func (c *Config) QueuePollInterval() time.Duration {
	return time.Duration(c.Workflow.QueuePollInterval) * time.Second
}

// WaitPollInterval returns the status waiter poll cadence as a duration.
func (c *Config) WaitPollInterval() time.Duration {
	return time.Duration(c.Workflow.WaitPollInterval) * time.Second
}

// WaitTimeout returns the status waiter deadline as a duration.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Workflow.WaitTimeout) * time.Second
}

// EngineTimeout returns the per-job engine process deadline as a duration.
// Zero means no deadline beyond the caller's context.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

func (c *Config) normalize() error {
	paths := []*string{
		&c.Paths.QueueDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.DatabaseDir,
		&c.Remote.MirrorDir,
		&c.History.Path,
	}
	for _, p := range paths {
		if strings.TrimSpace(*p) == "" {
			*p = ""
			continue
		}
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Remote.BakedPrefix = strings.TrimSpace(c.Remote.BakedPrefix)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
