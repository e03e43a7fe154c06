package main

import (
	"fmt"
	"strconv"
	"strings"

	"dispatchops-sim/internal/engine"
	"dispatchops-sim/internal/world"
)

// wireTUICommands connects the TUI's command dialogs to the engine.
func wireTUICommands(tui *engine.TUIWriter, eng *engine.Engine) {
	tui.SetBuyer(func(input string) error { return runBuyCommand(eng, input) })
	tui.SetDispatcher(func(vehicleID, missionID string) error {
		return eng.Dispatch(vehicleID, missionID)
	})
	tui.SetSurgeToggler(eng.ToggleSurge)
}

// runBuyCommand parses a buy/sell dialog line:
//
//	building,<kind>,<lat>,<lon>
//	vehicle,<kind>,<building-id>
//	sell,<entity-id>
func runBuyCommand(eng *engine.Engine, input string) error {
	parts := strings.Split(input, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) == 4 && parts[0] == "building":
		if !eng.Catalog().HasBuilding(parts[1]) {
			return fmt.Errorf("unknown building kind %q", parts[1])
		}
		lat, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return err
		}
		lon, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return err
		}
		_, err = eng.BuyBuilding(parts[1], world.Position{Lat: lat, Lon: lon})
		return err
	case len(parts) == 3 && parts[0] == "vehicle":
		if !eng.Catalog().HasVehicle(parts[1]) {
			return fmt.Errorf("unknown vehicle kind %q", parts[1])
		}
		_, err := eng.BuyVehicle(parts[1], parts[2])
		return err
	case len(parts) == 2 && parts[0] == "sell":
		if strings.HasPrefix(parts[1], "b-") {
			_, err := eng.SellBuilding(parts[1])
			return err
		}
		_, err := eng.SellVehicle(parts[1])
		return err
	}
	return fmt.Errorf("unrecognized command %q", input)
}
