package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "multisweep",
	Short: "Parallel circuit simulation sweep toolkit",
	Long:  "Multisweep runs parameter-swept circuit simulations in parallel and merges the per-run datasets into one result.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(formatsCmd)
}
