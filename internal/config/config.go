// Package config loads the TOML configuration file at
// ~/.agentpane/config.toml. A missing file means defaults; a broken file
// returns defaults plus the parse error so the caller can report it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dsakurai/agentpane/internal/detect"
	"github.com/dsakurai/agentpane/internal/mapping"
	"github.com/dsakurai/agentpane/internal/transcript"
)

// FileName is the config file name under the config directory.
const FileName = "config.toml"

// Config is the user-facing configuration.
type Config struct {
	// ProcessNames overrides the detector allowlist.
	// Default: ["claude", "anthropic"]
	ProcessNames []string `toml:"process_names"`

	// PollIntervalSeconds is the engine's periodic refresh interval.
	// Default: 3
	PollIntervalSeconds int `toml:"poll_interval_seconds"`

	// WaitingTimeoutSeconds is how long an unanswered tool call may sit
	// before it counts as waiting for approval. Default: 10
	WaitingTimeoutSeconds int `toml:"waiting_timeout_seconds"`

	// MappingDir overrides the session mapping directory.
	// Default: ~/.agentpane/sessions
	MappingDir string `toml:"mapping_dir"`

	// Logs defines log file settings
	Logs LogSettings `toml:"logs"`
}

// LogSettings defines log rotation and verbosity.
type LogSettings struct {
	// Dir is the log directory. Empty disables file logging unless debug
	// forces it.
	Dir string `toml:"dir"`

	// Level: "debug", "info", "warn", "error" (default: "info")
	Level string `toml:"level"`

	// Format: "text" or "json" (default: "text")
	Format string `toml:"format"`

	// MaxSizeMB is the rotation threshold per log file (default: 10)
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups is how many rotated files to keep (default: 3)
	MaxBackups int `toml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept (default: 7)
	MaxAgeDays int `toml:"max_age_days"`

	// Compress gzips rotated files (default: false)
	Compress bool `toml:"compress"`
}

var defaultConfig = Config{
	ProcessNames:          detect.DefaultProcessNames,
	PollIntervalSeconds:   3,
	WaitingTimeoutSeconds: int(transcript.DefaultWaitingTimeout / time.Second),
	Logs: LogSettings{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	},
}

// Dir returns the per-user config directory (~/.agentpane).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".agentpane")
	}
	return filepath.Join(home, ".agentpane")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

// Load reads the default config file. See LoadFile.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads a config file. A missing file yields the defaults with no
// error; an unparseable one yields the defaults plus the error so the
// caller can surface it without dying.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		fallback := defaultConfig
		return &fallback, fmt.Errorf("%s parse error: %w", FileName, err)
	}

	if len(cfg.ProcessNames) == 0 {
		cfg.ProcessNames = detect.DefaultProcessNames
	}
	return &cfg, nil
}

// PollInterval returns the poll interval, falling back to the default for
// zero or negative values.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return time.Duration(defaultConfig.PollIntervalSeconds) * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// WaitingTimeout returns the classifier waiting timeout.
func (c *Config) WaitingTimeout() time.Duration {
	if c.WaitingTimeoutSeconds <= 0 {
		return transcript.DefaultWaitingTimeout
	}
	return time.Duration(c.WaitingTimeoutSeconds) * time.Second
}

// SessionsDir returns the mapping directory, configured or default.
func (c *Config) SessionsDir() string {
	if c.MappingDir != "" {
		return c.MappingDir
	}
	return mapping.DefaultDir()
}

// TranscriptOptions returns classifier options derived from the config.
func (c *Config) TranscriptOptions() transcript.Options {
	return transcript.Options{WaitingTimeout: c.WaitingTimeout()}
}
