package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/engine"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a dispatch event log file",
	Long:  "replay feeds dispatch events from a JSONL log file back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg := &config.SimulationConfig{}
		cfg.ApplyDefaults()
		writer, err := newEventWriter(cfg, replayPrintOnly)
		if err != nil {
			return err
		}
		return engine.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to dispatch event log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print events to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
