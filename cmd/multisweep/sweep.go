package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"multisweep/internal/config"
	"multisweep/internal/logging"
	"multisweep/internal/sim"
)

var (
	sweepConfigPath string
	sweepSchemaPath string
	sweepPlain      bool
	sweepOutput     string
	sweepFormat     string
	sweepRunLog     string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the configured simulation sweep",
	Long:  "sweep expands the configured parameter space, runs every point on a worker pool and writes the merged dataset and the log bundle.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(sweepConfigPath, sweepSchemaPath)
		if err != nil {
			return err
		}
		idx, err := cfg.BuildIndex()
		if err != nil {
			return err
		}

		obs, closeObs := newObserver(sweepPlain, idx.Len())
		rec, cleanup, err := newRecorder(sweepRunLog)
		if err != nil {
			return err
		}
		defer cleanup()

		mgr, err := sim.NewManager(cfg, idx, obs, rec)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logging.New())

		runErr := mgr.Run(ctx)
		closeObs()
		if runErr != nil {
			return runErr
		}

		format := sweepFormat
		if format == "" {
			format = cfg.Output.Type
		}
		outPath := sweepOutput
		if outPath == "" {
			outPath = cfg.Output.Path
		}
		path, err := mgr.WriteOutput(outPath, format)
		if err != nil {
			return err
		}
		logPath, err := mgr.WriteLogs()
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Print(mgr.Aggregator().Render(termWidth()))
		fmt.Printf("\nResults written to %s\n", path)
		fmt.Printf("Log bundle written to %s\n", logPath)
		return nil
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepConfigPath, "config", "config/sweep.yaml", "Path to sweep configuration YAML")
	sweepCmd.Flags().StringVar(&sweepSchemaPath, "schema", "schemas/sweep.cue", "Path to CUE schema file")
	sweepCmd.Flags().BoolVar(&sweepPlain, "plain", false, "Print plain progress lines instead of the TUI")
	sweepCmd.Flags().StringVar(&sweepOutput, "output", "", "Result file path (default: derived from sim_name)")
	sweepCmd.Flags().StringVar(&sweepFormat, "format", "", "Result format, overrides output.type from the config")
	sweepCmd.Flags().StringVar(&sweepRunLog, "run-log", "", "Path to export per-run records (JSONL)")
}
