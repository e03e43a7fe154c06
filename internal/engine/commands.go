package engine

import (
	"fmt"
	"math"

	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/world"
)

// BuyBuilding debits the catalog cost and places a new building. The kind
// must exist in the catalog; callers validate user input first.
func (e *Engine) BuyBuilding(kind string, loc world.Position) (world.Building, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	k := e.catalog.Building(kind)
	if !e.ledger.Debit(k.Cost, "buy "+kind) {
		return world.Building{}, fmt.Errorf("buy %s: %w", kind, world.ErrInsufficientFunds)
	}
	b := e.store.AddBuilding(kind, k.Cost, loc)
	e.log.Info("building placed", "id", b.ID, "kind", kind, "balance", e.ledger.Balance())
	e.emitBudget(-k.Cost, "buy "+kind)
	return *b, nil
}

// BuyVehicle debits the catalog cost and homes a new vehicle at the given
// building. Capacity and class restrictions apply per policy.
func (e *Engine) BuyVehicle(kind, buildingID string) (world.Vehicle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.store.Building(buildingID)
	if !ok {
		return world.Vehicle{}, fmt.Errorf("buy %s: %w: building %s", kind, world.ErrUnknownEntity, buildingID)
	}
	k := e.catalog.Vehicle(kind)
	bk := e.catalog.Building(b.Kind)
	if len(bk.Classes) > 0 && !containsStr(bk.Classes, k.Class) {
		return world.Vehicle{}, fmt.Errorf("buy %s: class %s not allowed at %s: %w", kind, k.Class, b.Kind, world.ErrIllegalTransition)
	}
	if e.cfg.Policies.CapacityEnforced() && len(b.VehicleIDs) >= bk.Capacity {
		return world.Vehicle{}, fmt.Errorf("buy %s at %s: %w", kind, buildingID, world.ErrCapacityExceeded)
	}
	if !e.ledger.Debit(k.Cost, "buy "+kind) {
		return world.Vehicle{}, fmt.Errorf("buy %s: %w", kind, world.ErrInsufficientFunds)
	}
	v := e.store.AddVehicle(kind, k.Class, k.Cost, b)
	e.log.Info("vehicle purchased", "id", v.ID, "kind", kind, "home", b.ID, "balance", e.ledger.Balance())
	e.emitBudget(-k.Cost, "buy "+kind)
	return copyVehicle(v), nil
}

// SellVehicle removes an idle vehicle and refunds part of its cost.
// Selling a vehicle that is responding, on scene, or returning is rejected.
func (e *Engine) SellVehicle(id string) (refund int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sellVehicleLocked(id)
}

func (e *Engine) sellVehicleLocked(id string) (int64, error) {
	v, ok := e.store.Vehicle(id)
	if !ok {
		return 0, fmt.Errorf("sell vehicle %s: %w", id, world.ErrUnknownEntity)
	}
	if v.Status != world.VehicleIdle {
		return 0, fmt.Errorf("sell vehicle %s while %s: %w", id, v.Status, world.ErrIllegalTransition)
	}
	refund := int64(math.Floor(float64(v.Cost) * e.cfg.RefundRateVehicle))
	e.store.RemoveVehicle(id)
	e.ledger.Credit(refund, "sell "+v.Kind)
	e.log.Info("vehicle sold", "id", id, "refund", refund, "balance", e.ledger.Balance())
	e.emit(event.Row{Type: event.EntityRemoved, VehicleID: id, Reason: "sold"})
	e.emitBudget(refund, "sell "+v.Kind)
	return refund, nil
}

// SellBuilding removes a building and all vehicles homed there, crediting
// partial refunds for each. Rejected while any homed vehicle is out on a
// mission or returning.
func (e *Engine) SellBuilding(id string) (refund int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.store.Building(id)
	if !ok {
		return 0, fmt.Errorf("sell building %s: %w", id, world.ErrUnknownEntity)
	}
	for _, vid := range b.VehicleIDs {
		if v, ok := e.store.Vehicle(vid); ok && v.Status != world.VehicleIdle {
			return 0, fmt.Errorf("sell building %s: vehicle %s is %s: %w", id, vid, v.Status, world.ErrIllegalTransition)
		}
	}
	total := int64(0)
	for _, vid := range append([]string(nil), b.VehicleIDs...) {
		r, err := e.sellVehicleLocked(vid)
		if err != nil {
			return total, err
		}
		total += r
	}
	r := int64(math.Floor(float64(b.Cost) * e.cfg.RefundRateBuilding))
	e.store.RemoveBuilding(id)
	e.ledger.Credit(r, "sell "+b.Kind)
	total += r
	e.log.Info("building sold", "id", id, "refund", total, "balance", e.ledger.Balance())
	e.emit(event.Row{Type: event.EntityRemoved, BuildingID: id, Reason: "sold"})
	e.emitBudget(r, "sell "+b.Kind)
	return total, nil
}

// Dispatch manually assigns a vehicle to a mission, subject to the same
// eligibility rules the auto dispatcher uses.
func (e *Engine) Dispatch(vehicleID, missionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.store.Vehicle(vehicleID)
	if !ok {
		return fmt.Errorf("dispatch %s: %w", vehicleID, world.ErrUnknownEntity)
	}
	m, ok := e.store.Mission(missionID)
	if !ok {
		return fmt.Errorf("dispatch to %s: %w", missionID, world.ErrUnknownEntity)
	}
	if m.Status != world.MissionActive && m.Status != world.MissionAssigned {
		return fmt.Errorf("dispatch to %s while %s: %w", missionID, m.Status, world.ErrIllegalTransition)
	}
	if m.HasAssigned(vehicleID) {
		return fmt.Errorf("dispatch %s: already assigned to %s: %w", vehicleID, missionID, world.ErrIllegalTransition)
	}
	if !e.availableFor(v) {
		return fmt.Errorf("dispatch %s while %s: %w", vehicleID, v.Status, world.ErrIllegalTransition)
	}
	if !e.catalog.Vehicle(v.Kind).CanServe(m.Kind) {
		return fmt.Errorf("dispatch %s: %s cannot serve %s: %w", vehicleID, v.Kind, m.Kind, world.ErrIllegalTransition)
	}
	if e.assignedOfClass(m, v.Class) >= e.catalog.Mission(m.Kind).Units[v.Class] {
		return fmt.Errorf("dispatch %s: %s already has enough %s units: %w", vehicleID, missionID, v.Class, world.ErrIllegalTransition)
	}
	e.assign(v, m)
	return nil
}

// SetResponseMode pre-selects the urgency a vehicle will use on its next
// run. Only idle vehicles accept a mode change.
func (e *Engine) SetResponseMode(vehicleID string, mode world.ResponseMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch mode {
	case world.ModeIdle, world.ModeCode1, world.ModeCode3:
	default:
		return fmt.Errorf("unknown response mode %q: %w", mode, world.ErrIllegalTransition)
	}
	v, ok := e.store.Vehicle(vehicleID)
	if !ok {
		return fmt.Errorf("response mode for %s: %w", vehicleID, world.ErrUnknownEntity)
	}
	if v.Status != world.VehicleIdle {
		return fmt.Errorf("response mode for %s while %s: %w", vehicleID, v.Status, world.ErrIllegalTransition)
	}
	v.Mode = mode
	return nil
}

// availableFor reports whether the vehicle can take a new assignment.
// Returning vehicles qualify only when the redirect policy allows it.
func (e *Engine) availableFor(v *world.Vehicle) bool {
	switch v.Status {
	case world.VehicleIdle:
		return true
	case world.VehicleReturning:
		return e.cfg.Policies.RedirectReturning()
	default:
		return false
	}
}

// assign binds vehicle and mission in one step so the status and membership
// fields can never disagree. A returning vehicle's homebound leg is
// cancelled first. Caller holds mu.
func (e *Engine) assign(v *world.Vehicle, m *world.Mission) {
	if v.Status == world.VehicleReturning {
		v.Destination = nil
	}
	v.Status = world.VehicleResponding
	v.MissionID = m.ID
	dest := m.Location
	v.Destination = &dest
	if v.Mode == world.ModeIdle {
		if m.Urgency == 1 {
			v.Mode = world.ModeCode1
		} else {
			v.Mode = world.ModeCode3
		}
	}
	m.AssignedIDs = append(m.AssignedIDs, v.ID)
	if m.Status == world.MissionActive {
		m.Status = world.MissionAssigned
	}
	e.log.Info("vehicle dispatched", "vehicle", v.ID, "mission", m.ID, "mode", v.Mode)
	e.emit(event.Row{
		Type:      event.MissionAssigned,
		MissionID: m.ID,
		VehicleID: v.ID,
		Lat:       m.Location.Lat,
		Lon:       m.Location.Lon,
	})
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
