package engine

import (
	"encoding/json"
	"os"

	"dispatchops-sim/internal/event"
)

// FileWriter writes unit, event, and state rows to JSONL files.
type FileWriter struct {
	unitFile  *os.File
	eventFile *os.File
	stateFile *os.File
	unitEnc   *json.Encoder
	eventEnc  *json.Encoder
	stateEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. Any path may be empty to skip that log.
func NewFileWriter(unitPath, eventPath, statePath string) (*FileWriter, error) {
	fw := &FileWriter{}
	if unitPath != "" {
		uf, err := os.Create(unitPath)
		if err != nil {
			return nil, err
		}
		fw.unitFile = uf
		fw.unitEnc = json.NewEncoder(uf)
	}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WriteUnit logs a single unit row, if enabled.
func (f *FileWriter) WriteUnit(row event.UnitRow) error {
	if f.unitEnc == nil {
		return nil
	}
	return f.unitEnc.Encode(row)
}

// WriteUnits logs multiple unit rows.
func (f *FileWriter) WriteUnits(rows []event.UnitRow) error {
	for _, r := range rows {
		if err := f.WriteUnit(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a single dispatch event, if enabled.
func (f *FileWriter) WriteEvent(row event.Row) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// WriteState logs a simulation state row, if enabled.
func (f *FileWriter) WriteState(row event.StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.unitFile != nil {
		if e := f.unitFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.stateFile != nil {
		if e := f.stateFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
