package engine

import (
	"math"
	"time"

	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/world"
)

const earthRadiusM = 6371000

// arrivalEpsilonM treats anything closer than this as arrived, so float
// interpolation can never orbit a destination.
const arrivalEpsilonM = 1.0

// distanceMeters computes the haversine distance between two positions.
func distanceMeters(a, b world.Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// advanceVehicles moves every travelling vehicle along the straight line to
// its destination and fires arrival transitions. Caller holds mu.
func (e *Engine) advanceVehicles(dt time.Duration, now time.Time) {
	if dt <= 0 {
		return
	}
	for _, v := range e.vehiclesOrdered() {
		if v.Destination == nil {
			continue
		}
		if v.Status != world.VehicleResponding && v.Status != world.VehicleReturning {
			// A destination without a travel status is stale data.
			e.log.Warn("clearing stale destination", "vehicle", v.ID, "status", v.Status)
			v.Destination = nil
			continue
		}
		dest := *v.Destination
		dist := distanceMeters(v.Location, dest)
		step := e.speedFor(v) * dt.Seconds()
		if dist <= arrivalEpsilonM || step >= dist {
			v.Location = dest
			e.arrive(v, now)
			continue
		}
		frac := step / dist
		v.Location.Lat += (dest.Lat - v.Location.Lat) * frac
		v.Location.Lon += (dest.Lon - v.Location.Lon) * frac
	}
}

// speedFor returns ground speed in meters per second. Only a code 1 response
// runs urgent; the return leg is always normal speed.
func (e *Engine) speedFor(v *world.Vehicle) float64 {
	if v.Status == world.VehicleResponding && v.Mode == world.ModeCode1 {
		return e.cfg.SpeedUrgentMPS * e.cfg.SpeedMultiplier
	}
	return e.cfg.SpeedNormalMPS * e.cfg.SpeedMultiplier
}

// arrive fires the transition for a vehicle that reached its destination.
// Caller holds mu.
func (e *Engine) arrive(v *world.Vehicle, now time.Time) {
	v.Destination = nil
	switch v.Status {
	case world.VehicleResponding:
		m, ok := e.store.Mission(v.MissionID)
		if !ok || !m.HasAssigned(v.ID) {
			// Mission vanished while en route. Stand the unit down.
			e.log.Warn("arrival for missing mission", "vehicle", v.ID, "mission", v.MissionID)
			e.sendHome(v)
			return
		}
		v.Status = world.VehicleOnScene
		e.emit(event.Row{
			Type:      event.VehicleArrived,
			VehicleID: v.ID,
			MissionID: m.ID,
			Lat:       v.Location.Lat,
			Lon:       v.Location.Lon,
		})
		if m.Status != world.MissionCompleting && e.requirementsMet(m) {
			m.Status = world.MissionCompleting
			m.CompletesAt = now.Add(e.scaled(e.cfg.Dwell()))
			e.log.Info("all units on scene", "mission", m.ID, "completes_at", m.CompletesAt)
		}
	case world.VehicleReturning:
		e.resetVehicle(v)
		e.emit(event.Row{
			Type:       event.VehicleArrived,
			VehicleID:  v.ID,
			BuildingID: v.Home,
			Reason:     "returned",
			Lat:        v.Location.Lat,
			Lon:        v.Location.Lon,
		})
	default:
		e.resetVehicle(v)
	}
}

// requirementsMet reports whether every per-class requirement has enough
// units physically on scene. Caller holds mu.
func (e *Engine) requirementsMet(m *world.Mission) bool {
	k := e.catalog.Mission(m.Kind)
	for class, required := range k.Units {
		n := 0
		for _, id := range m.AssignedIDs {
			if v, ok := e.store.Vehicle(id); ok && v.Class == class && v.Status == world.VehicleOnScene {
				n++
			}
		}
		if n < required {
			return false
		}
	}
	return true
}

// sendHome routes a vehicle back to its station at normal speed. A vehicle
// whose station is gone, or that is already there, goes idle in place.
// Caller holds mu.
func (e *Engine) sendHome(v *world.Vehicle) {
	v.MissionID = ""
	b, ok := e.store.Building(v.Home)
	if !ok {
		e.resetVehicle(v)
		return
	}
	if distanceMeters(v.Location, b.Location) <= arrivalEpsilonM {
		v.Location = b.Location
		e.resetVehicle(v)
		return
	}
	v.Status = world.VehicleReturning
	v.Mode = world.ModeCode3
	dest := b.Location
	v.Destination = &dest
}

// resetVehicle returns a vehicle to the idle ready state.
func (e *Engine) resetVehicle(v *world.Vehicle) {
	v.Status = world.VehicleIdle
	v.Mode = world.ModeIdle
	v.MissionID = ""
	v.Destination = nil
}
