package engine

import (
	"dispatchops-sim/internal/event"
)

// MultiWriter fans unit, event, and state rows out to multiple writers.
type MultiWriter struct {
	unitWriters  []UnitWriter
	eventWriters []EventWriter
	stateWriters []StateWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(uws []UnitWriter, ews []EventWriter, sws []StateWriter) *MultiWriter {
	return &MultiWriter{unitWriters: uws, eventWriters: ews, stateWriters: sws}
}

// WriteUnit sends a unit row to all unit writers.
func (mw *MultiWriter) WriteUnit(row event.UnitRow) error {
	for _, w := range mw.unitWriters {
		if err := w.WriteUnit(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteUnits sends multiple unit rows to all unit writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteUnits(rows []event.UnitRow) error {
	for _, w := range mw.unitWriters {
		if bw, ok := w.(batchUnitWriter); ok {
			if err := bw.WriteUnits(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteUnit(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent sends a dispatch event to all event writers.
func (mw *MultiWriter) WriteEvent(row event.Row) error {
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row event.StateRow) error {
	for _, w := range mw.stateWriters {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}
