package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multisweep/internal/report"
)

var (
	reportInput string
	reportWidth int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-summarize a persisted log bundle",
	Long:  "report loads the JSON log bundle of a finished sweep and renders the error and warning summary again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := report.ReadLogFile(reportInput)
		if err != nil {
			return err
		}
		width := reportWidth
		if width <= 0 {
			width = termWidth()
		}
		fmt.Print(a.Render(width))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "Path to the log bundle (.log.json)")
	reportCmd.Flags().IntVar(&reportWidth, "width", 0, "Wrap width (default: terminal width)")
	reportCmd.MarkFlagRequired("input")
}
