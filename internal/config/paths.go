package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// candidates are tried in order by Find.
var candidates = []string{"timewarp.toml", "timewarp.json", "timewarp.yaml", "timewarp.yml"}

// DefaultDir returns the directory holding the timewarp binary, falling
// back to the working directory.
func DefaultDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// DefaultPath returns the config path in DefaultDir.
func DefaultPath() string {
	return Find(DefaultDir())
}

// Find returns the first existing config file in dir, or dir/timewarp.toml.
func Find(dir string) string {
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, FileName)
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/timewarp/
//   - Linux:   $XDG_STATE_HOME/timewarp/ or ~/.local/state/timewarp/
//   - Windows: %LOCALAPPDATA%\timewarp\logs\
func PlatformLogDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "timewarp")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "timewarp", "logs")
		}
		return filepath.Join(home, "AppData", "Local", "timewarp", "logs")
	default:
		if state := os.Getenv("XDG_STATE_HOME"); state != "" {
			return filepath.Join(state, "timewarp")
		}
		return filepath.Join(home, ".local", "state", "timewarp")
	}
}

// LogFilePath returns the configured log file, or the platform default.
func (c *Config) LogFilePath() string {
	if c.Logging.FilePath != "" {
		return c.Logging.FilePath
	}
	return filepath.Join(PlatformLogDir(), "timewarp.log")
}
