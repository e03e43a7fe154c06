// Writer implementation printing rows to STDOUT
package engine

import (
	"encoding/json"
	"fmt"

	"dispatchops-sim/internal/event"
)

// StdoutWriter prints unit, event, and state rows to STDOUT as JSON lines.
type StdoutWriter struct{}

// WriteUnit outputs a single unit row.
func (w *StdoutWriter) WriteUnit(row event.UnitRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteUnits outputs multiple unit rows.
func (w *StdoutWriter) WriteUnits(rows []event.UnitRow) error {
	for _, r := range rows {
		_ = w.WriteUnit(r)
	}
	return nil
}

// WriteEvent prints a dispatch event to STDOUT.
func (w *StdoutWriter) WriteEvent(row event.Row) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}

// WriteState prints a simulation state row to STDOUT.
func (w *StdoutWriter) WriteState(row event.StateRow) error {
	data, _ := json.Marshal(row)
	fmt.Println(string(data))
	return nil
}
