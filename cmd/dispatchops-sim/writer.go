package main

import (
	"os"

	"golang.org/x/term"

	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/engine"
)

// newWriters sets up unit, event, and state writers based on flags and env
// vars. It returns the writers and a cleanup function to close any resources.
func newWriters(cfg *config.SimulationConfig, printOnly, useTUI bool, logFile string) (engine.UnitWriter, engine.EventWriter, engine.StateWriter, func(), error) {
	cleanup := func() {}

	var uw engine.UnitWriter
	var ew engine.EventWriter
	var sw engine.StateWriter
	if useTUI {
		tui := engine.NewTUIWriter(cfg)
		uw, ew, sw = tui, tui, tui
		cleanup = func() { tui.Close() }
	} else {
		var err error
		uw, ew, sw, err = baseWriters(cfg, printOnly)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	if logFile == "" {
		return uw, ew, sw, cleanup, nil
	}

	fw, err := engine.NewFileWriter(logFile, logFile+".events", logFile+".state")
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}
	mw := engine.NewMultiWriter(
		[]engine.UnitWriter{uw, fw},
		[]engine.EventWriter{ew, fw},
		[]engine.StateWriter{sw, fw},
	)
	base := cleanup
	cleanup = func() {
		fw.Close()
		base()
	}
	return mw, mw, mw, cleanup, nil
}

// baseWriters chooses the underlying writers based on the printOnly flag and
// env vars. A color writer is used when STDOUT is a terminal.
func baseWriters(cfg *config.SimulationConfig, printOnly bool) (engine.UnitWriter, engine.EventWriter, engine.StateWriter, error) {
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			cw := engine.NewColorStdoutWriter(cfg)
			return cw, cw, cw, nil
		}
		jw := &engine.StdoutWriter{}
		return jw, jw, jw, nil
	}

	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	w, err := engine.NewGreptimeDBWriter(endpoint, "public")
	if err != nil {
		return nil, nil, nil, err
	}
	return w, w, w, nil
}

// newEventWriter creates an event writer for replay without unit handling.
func newEventWriter(cfg *config.SimulationConfig, printOnly bool) (engine.EventWriter, error) {
	_, ew, _, err := baseWriters(cfg, printOnly)
	return ew, err
}
