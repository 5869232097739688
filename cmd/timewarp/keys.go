package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"timewarp/internal/keyboard"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List key names usable in bindings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range keyboard.KeyNames() {
			k, _ := keyboard.ParseKey(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s 0x%02X\n", name, uint8(k))
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
