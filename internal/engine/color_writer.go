// ColorStdoutWriter prints human-friendly, colorized dispatch output to STDOUT.
package engine

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/world"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

var missionPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// ColorStdoutWriter prints unit and event rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg           *config.SimulationConfig
	out           io.Writer
	once          sync.Once
	missionColors map[string]string
	colorIdx      int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:           cfg,
		out:           os.Stdout,
		missionColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getMissionColor(id string) string {
	if c, ok := w.missionColors[id]; ok {
		return c
	}
	c := missionPalette[w.colorIdx%len(missionPalette)]
	w.missionColors[id] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Region:\t%s\n", w.cfg.Region.Name)
	fmt.Fprintf(tw, "Initial Budget:\t%d\n", w.cfg.InitialBudget)
	fmt.Fprintf(tw, "Mission Interval (s):\t%d\n", w.cfg.MissionIntervalS)
	fmt.Fprintf(tw, "Dwell (s):\t%d\n", w.cfg.DwellS)
	fmt.Fprintf(tw, "Spawn Radius (km):\t%.1f\n", w.cfg.SpawnRadiusKM)
	fmt.Fprintf(tw, "Speed Multiplier:\t%.1f\n", w.cfg.SpeedMultiplier)
	tw.Flush()

	fmt.Fprintln(w.out, "\nMission Kinds:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tReward\tPenalty\tDeadline(s)\n")
	for _, k := range w.cfg.Catalog.Missions {
		col := w.getMissionColor(k.Name)
		fmt.Fprintf(tw, "%s%s%s\t%d\t%d\t%d\n", col, k.Name, colorReset, k.Reward, k.Penalty, k.DeadlineS)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteUnit outputs a single unit row in colorized format.
func (w *ColorStdoutWriter) WriteUnit(row event.UnitRow) error {
	w.once.Do(w.printOverview)

	statusColor := colorGray
	switch world.VehicleStatus(row.Status) {
	case world.VehicleResponding:
		statusColor = colorRed
	case world.VehicleOnScene:
		statusColor = colorYellow
	case world.VehicleReturning:
		statusColor = colorCyan
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sunit=%s%s ", colorWhite(), row.VehicleID, colorReset)
	fmt.Fprintf(w.out, "%skind=%s%s ", colorBlue, row.Kind, colorReset)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, row.Lat, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s ", colorYellow, row.Lon, colorReset)
	fmt.Fprintf(w.out, "%smode=%s%s ", colorMagenta, row.Mode, colorReset)
	fmt.Fprintf(w.out, "%sstatus=%s%s", statusColor, row.Status, colorReset)
	if row.MissionID != "" {
		mc := w.getMissionColor(row.MissionID)
		fmt.Fprintf(w.out, " %smission=%s%s", mc, row.MissionID, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteUnits outputs multiple unit rows.
func (w *ColorStdoutWriter) WriteUnits(rows []event.UnitRow) error {
	for _, r := range rows {
		_ = w.WriteUnit(r)
	}
	return nil
}

// WriteEvent prints a dispatch event to STDOUT.
func (w *ColorStdoutWriter) WriteEvent(row event.Row) error {
	w.once.Do(w.printOverview)

	typeColor := colorBlue
	switch row.Type {
	case event.MissionFailed, event.NoUnitAvailable:
		typeColor = colorRed
	case event.MissionCompleted:
		typeColor = colorGreen
	case event.BudgetChanged:
		typeColor = colorCyan
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s", colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		typeColor, row.Type, colorReset)
	if row.MissionID != "" {
		mc := w.getMissionColor(row.MissionID)
		fmt.Fprintf(w.out, " %smission=%s%s", mc, row.MissionID, colorReset)
	}
	if row.VehicleID != "" {
		fmt.Fprintf(w.out, " unit=%s", row.VehicleID)
	}
	if row.BuildingID != "" {
		fmt.Fprintf(w.out, " building=%s", row.BuildingID)
	}
	if row.Amount != 0 {
		fmt.Fprintf(w.out, " %samount=%d balance=%d%s", colorYellow, row.Amount, row.Balance, colorReset)
	}
	if row.Reason != "" {
		fmt.Fprintf(w.out, " reason=%s", row.Reason)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteState prints simulation state metrics to STDOUT.
func (w *ColorStdoutWriter) WriteState(row event.StateRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s balance=%d buildings=%d vehicles=%d missions=%d done=%d failed=%d surge=%t",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Balance, row.Buildings, row.Vehicles,
		row.ActiveMissions, row.MissionsCompleted, row.MissionsFailed, row.Surge)
	if row.Phase != "" {
		fmt.Fprintf(w.out, " phase=%s", row.Phase)
	}
	if row.Weather != "" {
		fmt.Fprintf(w.out, " weather=%s", row.Weather)
	}
	fmt.Fprintln(w.out)
	return nil
}
