package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dispatchops-sim/internal/admin"
	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/engine"
	"dispatchops-sim/internal/logging"
	"dispatchops-sim/internal/persist"
	"dispatchops-sim/internal/scenario"
)

var (
	simPrintOnly  bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simSaveFile   string
	simLogFile    string
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time dispatch simulator",
	Long:  "simulate starts a dispatch simulation emitting unit positions, lifecycle events, and budget changes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(slog.LevelInfo)
		ctx := logging.NewContext(context.Background(), log)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		uw, ew, sw, cleanup, err := newWriters(cfg, simPrintOnly, simTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		simID := os.Getenv("SIM_ID")
		if simID == "" {
			simID = cfg.Name
		}

		tickInterval := simTick
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		scn := loadScenario(cfg, log)
		eng := engine.New(simID, cfg, scn, uw, ew, sw, tickInterval)

		var saves *persist.Store
		if simSaveFile != "" {
			saves = persist.NewStore(simSaveFile)
			snap, err := saves.Load()
			switch {
			case err == nil:
				if err := eng.Restore(snap); err != nil {
					return err
				}
				log.Info("resumed from save", "path", simSaveFile, "saved_at", snap.SavedAt)
			case errors.Is(err, persist.ErrNoState):
				log.Info("no save found, starting fresh", "path", simSaveFile)
			default:
				return err
			}
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		if simAdminAddr != "" {
			srv := admin.NewServer(eng, saves)
			go func() {
				log.Info("admin API listening", "addr", simAdminAddr)
				if aw, ok := uw.(engine.AdminStatusWriter); ok {
					aw.SetAdminStatus(true)
				}
				if err := srv.Start(ctx, simAdminAddr); err != nil && err != http.ErrServerClosed {
					log.Error("admin server failed", "err", err)
				}
			}()
		}

		if tui, ok := uw.(*engine.TUIWriter); ok {
			wireTUICommands(tui, eng)
		}

		if saves != nil {
			go autosave(ctx, eng, saves, cfg.SaveInterval(), log)
		}

		go eng.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		cancel()

		if saves != nil {
			if err := saves.Save(eng.Snapshot()); err != nil {
				log.Error("final save failed", "err", err)
			} else {
				log.Info("state saved", "path", simSaveFile)
			}
		}
		log.Info("dispatch simulation stopped")
		return nil
	},
}

// loadScenario resolves the config's scenario reference: a YAML file path or
// the name of a built-in arc. Empty means no scenario.
func loadScenario(cfg *config.SimulationConfig, log *slog.Logger) *scenario.Scenario {
	ref := cfg.Scenario
	if ref == "" {
		return nil
	}
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		scn, err := scenario.Load(ref)
		if err != nil {
			log.Warn("scenario load failed, running without one", "path", ref, "err", err)
			return nil
		}
		return scn
	}
	if scn, ok := scenario.BuiltIn()[ref]; ok {
		return &scn
	}
	log.Warn("unknown scenario, running without one", "name", ref)
	return nil
}

// autosave writes snapshots on a fixed interval until ctx is cancelled.
func autosave(ctx context.Context, eng *engine.Engine, saves *persist.Store, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saves.Save(eng.Snapshot()); err != nil {
				log.Error("autosave failed", "err", err)
			}
		}
	}
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render the dispatch feed in a terminal UI")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 100*time.Millisecond, "Simulation tick interval (e.g. 100ms, 1s)")
	simulateCmd.Flags().StringVar(&simSaveFile, "save-file", "", "Path to the save file (enables persistence)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export unit/event logs (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address (empty to disable)")
}
