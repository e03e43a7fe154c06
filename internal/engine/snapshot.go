package engine

import (
	"fmt"
	"time"

	"dispatchops-sim/internal/persist"
	"dispatchops-sim/internal/world"
)

// Snapshot captures the full simulation state for persistence. The copy is
// deep, so saving can proceed off-thread while the engine keeps ticking.
func (e *Engine) Snapshot() *persist.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	nb, nv, nm := e.store.NextIDs()
	snap := &persist.Snapshot{
		Version: persist.Version,
		SavedAt: e.now().UTC(),
		Budget:  e.ledger.Balance(),
		Ledger:  e.ledger.Entries(),
		NextIDs: persist.NextIDs{Building: nb, Vehicle: nv, Mission: nm},
		Stats:   e.stats,
		Phase:   e.phase,
	}
	for _, b := range e.buildingsOrdered() {
		cp := *b
		cp.VehicleIDs = append([]string(nil), b.VehicleIDs...)
		snap.Buildings = append(snap.Buildings, cp)
	}
	for _, v := range e.vehiclesOrdered() {
		snap.Vehicles = append(snap.Vehicles, copyVehicle(v))
	}
	for _, m := range e.missionsOrdered() {
		cp := *m
		cp.AssignedIDs = append([]string(nil), m.AssignedIDs...)
		snap.Missions = append(snap.Missions, cp)
	}
	return snap
}

// Restore rebuilds engine state from a snapshot. Loading is defensive:
// entities referencing unknown catalog kinds or missing counterparts are
// dropped or reset rather than failing the whole restore, so a sim survives
// catalog changes between runs. Missions in the completing state restart
// their full dwell.
func (e *Engine) Restore(snap *persist.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("restore: nil snapshot")
	}
	if snap.Version != persist.Version {
		return fmt.Errorf("restore: unsupported snapshot version %d", snap.Version)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	store := world.NewStore()
	store.SetNextIDs(snap.NextIDs.Building, snap.NextIDs.Vehicle, snap.NextIDs.Mission)

	for i := range snap.Buildings {
		b := snap.Buildings[i]
		if !e.catalog.HasBuilding(b.Kind) {
			e.log.Warn("dropping building with unknown kind", "id", b.ID, "kind", b.Kind)
			continue
		}
		b.VehicleIDs = nil // rebuilt by vehicle inserts
		cp := b
		if err := store.InsertBuilding(&cp); err != nil {
			e.log.Warn("dropping building", "id", b.ID, "err", err)
		}
	}

	var fallbackHome string
	for _, b := range store.Buildings {
		if fallbackHome == "" || world.IDOrdinal(b.ID) < world.IDOrdinal(fallbackHome) {
			fallbackHome = b.ID
		}
	}
	for i := range snap.Vehicles {
		v := snap.Vehicles[i]
		if !e.catalog.HasVehicle(v.Kind) {
			e.log.Warn("dropping vehicle with unknown kind", "id", v.ID, "kind", v.Kind)
			continue
		}
		if _, ok := store.Building(v.Home); !ok {
			if fallbackHome == "" {
				e.log.Warn("dropping vehicle with no possible home", "id", v.ID)
				continue
			}
			e.log.Warn("re-homing vehicle", "id", v.ID, "from", v.Home, "to", fallbackHome)
			v.Home = fallbackHome
		}
		cp := v
		if err := store.InsertVehicle(&cp); err != nil {
			e.log.Warn("dropping vehicle", "id", v.ID, "err", err)
		}
	}

	for i := range snap.Missions {
		m := snap.Missions[i]
		if m.Status.Terminal() {
			continue
		}
		if !e.catalog.HasMission(m.Kind) {
			e.log.Warn("dropping mission with unknown kind", "id", m.ID, "kind", m.Kind)
			continue
		}
		kept := m.AssignedIDs[:0]
		for _, vid := range m.AssignedIDs {
			if v, ok := store.Vehicle(vid); ok && v.MissionID == m.ID && v.Assigned() {
				kept = append(kept, vid)
			}
		}
		m.AssignedIDs = kept
		if len(m.AssignedIDs) == 0 && m.Status != world.MissionActive {
			m.Status = world.MissionActive
		}
		cp := m
		if err := store.InsertMission(&cp); err != nil {
			e.log.Warn("dropping mission", "id", m.ID, "err", err)
		}
	}

	// Reconcile vehicle statuses now that all three collections exist.
	// Destinations are re-derived from status rather than trusted.
	e.store = store
	for _, v := range e.vehiclesOrdered() {
		switch v.Status {
		case world.VehicleResponding, world.VehicleOnScene:
			m, ok := store.Mission(v.MissionID)
			if !ok || !m.HasAssigned(v.ID) {
				e.log.Warn("resetting vehicle with broken assignment", "id", v.ID, "mission", v.MissionID)
				e.resetVehicle(v)
				continue
			}
			if v.Status == world.VehicleResponding {
				dest := m.Location
				v.Destination = &dest
			} else {
				v.Location = m.Location
				v.Destination = nil
			}
		case world.VehicleReturning:
			v.MissionID = ""
			if b, ok := store.Building(v.Home); ok {
				dest := b.Location
				v.Destination = &dest
			} else {
				e.resetVehicle(v)
			}
		default:
			e.resetVehicle(v)
		}
	}

	// Completing missions restart their full dwell; partially served dwells
	// are not persisted.
	for _, m := range e.missionsOrdered() {
		if m.Status == world.MissionCompleting {
			if e.requirementsMet(m) {
				m.CompletesAt = now.Add(e.scaled(e.cfg.Dwell()))
			} else if len(m.AssignedIDs) > 0 {
				m.Status = world.MissionAssigned
				m.CompletesAt = time.Time{}
			} else {
				m.Status = world.MissionActive
				m.CompletesAt = time.Time{}
			}
		}
	}

	e.ledger.Restore(snap.Budget, snap.Ledger)
	e.stats = snap.Stats
	if e.scn != nil {
		if _, ok := e.scn.Phase(snap.Phase); ok {
			e.phase = snap.Phase
		} else {
			e.phase = e.scn.First()
		}
	}
	e.lastTick = time.Time{}
	e.nextSpawnAt = time.Time{}
	e.phaseStarted = time.Time{}
	e.log.Info("state restored",
		"saved_at", snap.SavedAt,
		"buildings", len(e.store.Buildings),
		"vehicles", len(e.store.Vehicles),
		"missions", len(e.store.Missions),
		"balance", e.ledger.Balance())
	return nil
}
