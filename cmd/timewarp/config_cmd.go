package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"timewarp/internal/config"
	"timewarp/internal/logging"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolvedConfigPath()
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("config already exists: %s (use --force to overwrite)", path)
		}
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolvedConfigPath()
		cfg, err := config.Load(path)
		if err != nil {
			var verrs config.ValidationErrors
			if !errors.As(err, &verrs) {
				return err
			}
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "%s is invalid:\n", path)
			for _, e := range verrs {
				fmt.Fprintf(w, "  %s: %s\n", e.Field, e.Message)
			}
			return fmt.Errorf("%d problem(s) in %s", len(verrs), path)
		}
		printConfig(cmd, path, cfg)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the config JSON schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), config.Schema())
	},
}

func printConfig(cmd *cobra.Command, path string, cfg *config.Config) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s is valid\n\n", path)
	fmt.Fprintf(w, "Hook delay:    %s\n", cfg.HookDelay)
	fmt.Fprintf(w, "Tick interval: %s\n", cfg.TickInterval)
	fmt.Fprintf(w, "Focus only:    %t\n", cfg.FocusOnly)
	fmt.Fprintf(w, "Watch file:    %t\n", cfg.WatchFile)
	if len(cfg.ReloadKeys) > 0 {
		fmt.Fprintf(w, "Reload chord:  %s\n", chord(cfg.ReloadKeys))
	} else {
		fmt.Fprintln(w, "Reload chord:  (disabled)")
	}
	if cfg.Startup != nil {
		fmt.Fprintf(w, "Startup:       %gx for %s\n", cfg.Startup.Speed, cfg.Startup.Duration)
	}
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		fmt.Fprintf(w, "Log level:     %s\n", logging.LevelString(level))
	}
	fmt.Fprintf(w, "Log output:    %s\n", cfg.Logging.Output)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Bindings:")
	for _, b := range cfg.Bindings {
		mode := "hold"
		if b.Toggle {
			mode = "toggle"
		}
		fmt.Fprintf(w, "  %-32s %6gx  %s\n", chord(b.Keys), b.Speed, mode)
	}
}

func chord(keys []config.Key) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return strings.Join(names, "+")
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
	rootCmd.AddCommand(initCmd, checkCmd, schemaCmd)
}
