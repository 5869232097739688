// Package config handles configuration loading and validation for timewarp.
//
// The config file lives next to the timewarp binary as timewarp.toml,
// timewarp.json or timewarp.yaml. A default TOML file is written on first
// run. Example:
//
//	console = false
//	hook_delay = "250ms"
//	tick_interval = "16ms"
//	focus_only = true
//	reload_keys = ["VK_CONTROL", "VK_SHIFT", "VK_R"]
//
//	[startup]
//	speed = 20.0
//	duration = "5s"
//
//	[[bindings]]
//	keys = ["VK_CONTROL", "VK_SHIFT"]
//	speed = 10.0
//	toggle = false
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"timewarp/internal/keyboard"
)

// FileName is the default config file name.
const FileName = "timewarp.toml"

// Config is the complete timewarp configuration.
type Config struct {
	// Console opens a console window for log output on Windows.
	Console bool `toml:"console" json:"console" yaml:"console"`

	// HookDelay is how long to wait before installing the time hooks.
	HookDelay Duration `toml:"hook_delay" json:"hook_delay" yaml:"hook_delay"`

	// TickInterval is the control loop cadence.
	TickInterval Duration `toml:"tick_interval" json:"tick_interval" yaml:"tick_interval"`

	// FocusOnly ignores bindings while the host window is in the background.
	FocusOnly bool `toml:"focus_only" json:"focus_only" yaml:"focus_only"`

	// WatchFile reloads the config whenever the file changes on disk.
	WatchFile bool `toml:"watch_file" json:"watch_file" yaml:"watch_file"`

	// ReloadKeys is the chord that reloads this file. Empty disables it.
	ReloadKeys []Key `toml:"reload_keys" json:"reload_keys" yaml:"reload_keys"`

	// Startup is an optional speed applied once after attaching.
	Startup *StartupConfig `toml:"startup,omitempty" json:"startup,omitempty" yaml:"startup,omitempty"`

	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	Bindings []BindingConfig `toml:"bindings" json:"bindings" yaml:"bindings"`
}

// StartupConfig holds the startup transient.
type StartupConfig struct {
	Speed    float64  `toml:"speed" json:"speed" yaml:"speed"`
	Duration Duration `toml:"duration" json:"duration" yaml:"duration"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`
	Format string `toml:"format" json:"format" yaml:"format"`
	// Output is "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`
	// FilePath is resolved against the config directory when relative.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// BindingConfig maps a chord to a speed.
type BindingConfig struct {
	Keys   []Key   `toml:"keys" json:"keys" yaml:"keys"`
	Speed  float64 `toml:"speed" json:"speed" yaml:"speed"`
	Toggle bool    `toml:"toggle" json:"toggle" yaml:"toggle"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Console:      false,
		HookDelay:    Duration(250 * time.Millisecond),
		TickInterval: Duration(16 * time.Millisecond),
		FocusOnly:    true,
		ReloadKeys:   []Key{Key(keyboard.VKControl), Key(keyboard.VKShift), Key('R')},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Bindings: []BindingConfig{{
			Keys:  []Key{Key(keyboard.VKControl), Key(keyboard.VKShift)},
			Speed: 10.0,
		}},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.ReloadKeys = append([]Key(nil), c.ReloadKeys...)
	if c.Startup != nil {
		s := *c.Startup
		out.Startup = &s
	}
	out.Bindings = make([]BindingConfig, len(c.Bindings))
	for i, b := range c.Bindings {
		b.Keys = append([]Key(nil), b.Keys...)
		out.Bindings[i] = b
	}
	return &out
}

// EnvFileName holds TIMEWARP_* overrides next to the config file.
const EnvFileName = "timewarp.env"

// ApplyEnvOverrides applies TIMEWARP_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnv(os.LookupEnv)
}

// ApplyEnvFile applies the overrides in the env file in dir, if there is one.
// Variables set in the process environment win over the file.
func (c *Config) ApplyEnvFile(dir string) error {
	path := filepath.Join(dir, EnvFileName)
	vars, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		c.ApplyEnvOverrides()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", EnvFileName, err)
	}
	c.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	})
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("TIMEWARP_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("TIMEWARP_LOG_FILE"); ok && v != "" {
		c.Logging.FilePath = v
		if c.Logging.Output != "both" {
			c.Logging.Output = "file"
		}
	}
	if v, ok := lookup("TIMEWARP_CONSOLE"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Console = b
		}
	}
}
