package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"timewarp/internal/attach"
	"timewarp/internal/hook"
	"timewarp/internal/platform"
)

var runEvery time.Duration

// runCmd attaches to this process. The hooked functions are reached through
// an in-process table, so the printed virtual clock follows the bindings.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach to this process and print virtual time until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		clock := platform.NewClock()
		table := platform.Table(clock)

		session, err := attach.Attach(ctx, attach.Options{
			ConfigPath: resolvedConfigPath(),
			Engine:     table,
		})
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		defer session.Detach()

		return printClocks(ctx, cmd, clock, table, session)
	},
}

func printClocks(ctx context.Context, cmd *cobra.Command, clock platform.Clock, table *hook.Table, session *attach.Session) error {
	w := cmd.OutOrStdout()
	ticker := time.NewTicker(runEvery)
	defer ticker.Stop()

	realStart := clock.TickCount64()
	virtStart := table.TickCount64()
	freq := clock.PerformanceFrequency()

	fmt.Fprintf(w, "Session %s attached. Press Ctrl+C to stop.\n", session.ID())
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case <-ticker.C:
			var qpc int64
			table.QueryPerformanceCounter(&qpc)
			fmt.Fprintf(w, "real %10dms  virtual %10dms  counter %12d (%d/s)  speed %gx\n",
				clock.TickCount64()-realStart,
				table.TickCount64()-virtStart,
				qpc, freq,
				session.Speed())
		}
	}
}

func init() {
	runCmd.Flags().DurationVar(&runEvery, "every", time.Second, "print interval")
	rootCmd.AddCommand(runCmd)
}
