// timewarp speeds up or slows down a process's view of time.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"timewarp/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "timewarp",
	Short: "Speed up or slow down a process's view of time.",
	Long: `timewarp rescales GetTickCount, GetTickCount64 and QueryPerformanceCounter ` +
		`inside a process. Keyboard chords from the config file pick the speed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default: timewarp.toml next to the binary)")
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
