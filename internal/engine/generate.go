package engine

import (
	"math"
	"sort"
	"time"

	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/world"
)

// spawnInterval returns the pause until the next generated mission. Surge
// mode halves it.
func (e *Engine) spawnInterval() time.Duration {
	d := e.scaled(e.cfg.MissionInterval())
	if e.surge {
		d /= 2
	}
	return d
}

// generateMission spawns one mission near a random owned building, weighted
// by the active scenario phase. Nothing spawns while no buildings exist.
// Caller holds mu.
func (e *Engine) generateMission(now time.Time) {
	buildings := e.buildingsOrdered()
	if len(buildings) == 0 {
		return
	}
	kind, ok := e.pickMissionKind()
	if !ok {
		e.log.Debug("no spawnable mission kind", "phase", e.phase)
		return
	}
	origin := buildings[e.rand.Intn(len(buildings))]
	loc := e.randomOffset(origin.Location, e.cfg.SpawnRadiusKM*1000)

	k := e.catalog.Mission(kind)
	reward := e.rewardFn(k.Reward)
	var deadline time.Time
	if k.Deadline() > 0 {
		deadline = now.Add(e.scaled(k.Deadline()))
	}
	m := e.store.AddMission(kind, loc, reward, k.Penalty, k.Urgency, now, deadline)
	e.log.Info("mission created", "id", m.ID, "kind", kind, "reward", reward)
	e.emit(event.Row{
		Type:      event.MissionCreated,
		MissionID: m.ID,
		Reason:    kind,
		Amount:    reward,
		Lat:       loc.Lat,
		Lon:       loc.Lon,
	})
	if e.cfg.Policies.AutoDispatchEnabled() {
		e.autoDispatch(m)
	}
}

// pickMissionKind draws a mission kind from the catalog using the active
// phase's weights. Kinds with weight zero never spawn; when the eligibility
// policy is on, kinds no owned vehicle can serve are skipped too.
func (e *Engine) pickMissionKind() (string, bool) {
	type candidate struct {
		name   string
		weight float64
	}
	var cands []candidate
	total := 0.0
	for _, k := range e.catalog.Missions {
		w := 1.0
		if e.scn != nil {
			w = e.scn.Weight(e.phase, k.Name)
		}
		if w <= 0 {
			continue
		}
		if e.cfg.Policies.EligibleUnitRequired() && !e.anyVehicleServes(k.Name) {
			continue
		}
		cands = append(cands, candidate{k.Name, w})
		total += w
	}
	if len(cands) == 0 {
		return "", false
	}
	r := e.rand.Float64() * total
	for _, c := range cands {
		r -= c.weight
		if r < 0 {
			return c.name, true
		}
	}
	return cands[len(cands)-1].name, true
}

// anyVehicleServes reports whether any owned vehicle, regardless of current
// status, is capable of the mission kind.
func (e *Engine) anyVehicleServes(kind string) bool {
	for _, v := range e.store.Vehicles {
		if e.catalog.Vehicle(v.Kind).CanServe(kind) {
			return true
		}
	}
	return false
}

// randomOffset places a point uniformly within radiusM meters of center.
func (e *Engine) randomOffset(center world.Position, radiusM float64) world.Position {
	angle := e.rand.Float64() * 2 * math.Pi
	dist := math.Sqrt(e.rand.Float64()) * radiusM
	dLat := dist * math.Cos(angle) / 111000
	dLon := dist * math.Sin(angle) / (111000 * math.Cos(center.Lat*math.Pi/180))
	return world.Position{Lat: center.Lat + dLat, Lon: center.Lon + dLon}
}

// autoDispatch fills the mission's per-class requirements with the nearest
// eligible vehicles. Emits a shortfall event when nothing could be sent.
// Caller holds mu.
func (e *Engine) autoDispatch(m *world.Mission) {
	k := e.catalog.Mission(m.Kind)
	classes := make([]string, 0, len(k.Units))
	for class := range k.Units {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	sent := 0
	for _, class := range classes {
		needed := k.Units[class] - e.assignedOfClass(m, class)
		for needed > 0 {
			v := e.nearestEligible(m, class)
			if v == nil {
				break
			}
			e.assign(v, m)
			sent++
			needed--
		}
	}
	if sent == 0 && len(m.AssignedIDs) == 0 {
		e.log.Warn("no unit available", "mission", m.ID, "kind", m.Kind)
		e.emit(event.Row{Type: event.NoUnitAvailable, MissionID: m.ID, Reason: m.Kind})
	}
}

// assignedOfClass counts vehicles of the class already attached to the
// mission.
func (e *Engine) assignedOfClass(m *world.Mission, class string) int {
	n := 0
	for _, id := range m.AssignedIDs {
		if v, ok := e.store.Vehicle(id); ok && v.Class == class {
			n++
		}
	}
	return n
}

// nearestEligible finds the closest available vehicle of the class that can
// serve the mission. Ties break on lowest id so runs are reproducible.
func (e *Engine) nearestEligible(m *world.Mission, class string) *world.Vehicle {
	var best *world.Vehicle
	bestDist := math.MaxFloat64
	for _, v := range e.vehiclesOrdered() {
		if v.Class != class || !e.availableFor(v) || m.HasAssigned(v.ID) {
			continue
		}
		if !e.catalog.Vehicle(v.Kind).CanServe(m.Kind) {
			continue
		}
		d := distanceMeters(v.Location, m.Location)
		if d < bestDist {
			best = v
			bestDist = d
		}
	}
	return best
}
