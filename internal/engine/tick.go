package engine

import (
	"context"
	"math"
	"time"

	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/logging"
	"dispatchops-sim/internal/scenario"
	"dispatchops-sim/internal/world"
)

// Run drives the engine off a wall-clock ticker until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	e.mu.Lock()
	e.log = log
	interval := e.tickInterval
	e.mu.Unlock()

	log.Info("engine started", "sim_id", e.simID, "tick", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("engine stopped", "sim_id", e.simID)
			return
		case t := <-ticker.C:
			e.Tick(t)
		}
	}
}

// Tick advances the whole simulation to now: vehicle movement, mission
// completion and expiry, mission generation, scenario phase transitions, and
// the per-tick presentation rows. All state change flows through here or
// through an explicit command.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastTick.IsZero() {
		e.lastTick = now
		if e.phaseStarted.IsZero() {
			e.phaseStarted = now
		}
		if e.nextSpawnAt.IsZero() {
			e.nextSpawnAt = now.Add(e.spawnInterval())
		}
	}
	dt := now.Sub(e.lastTick)
	e.lastTick = now

	e.advanceVehicles(dt, now)
	e.completeMissions(now)
	e.expireMissions(now)
	if !now.Before(e.nextSpawnAt) {
		e.generateMission(now)
		e.nextSpawnAt = now.Add(e.spawnInterval())
	}
	e.advanceScenario(now)
	e.writeUnits(now)
	e.writeState(now)
}

// completeMissions pays out every mission whose dwell has elapsed and sends
// its units home. Caller holds mu.
func (e *Engine) completeMissions(now time.Time) {
	for _, m := range e.missionsOrdered() {
		if m.Status != world.MissionCompleting || now.Before(m.CompletesAt) {
			continue
		}
		reward := int64(math.Round(float64(m.Reward) * e.rewardMultiplier()))
		e.ledger.Credit(reward, "reward "+m.Kind)
		e.stats.MissionsCompleted++
		e.stats.TotalRewards += reward
		m.Status = world.MissionCompleted
		e.log.Info("mission completed", "id", m.ID, "kind", m.Kind, "reward", reward, "balance", e.ledger.Balance())
		e.emit(event.Row{
			Type:      event.MissionCompleted,
			MissionID: m.ID,
			Amount:    reward,
			Balance:   e.ledger.Balance(),
			Reason:    m.Kind,
			Lat:       m.Location.Lat,
			Lon:       m.Location.Lon,
		})
		e.releaseUnits(m)
		e.store.RemoveMission(m.ID)
	}
}

// expireMissions fails every non-terminal mission whose deadline has passed.
// The penalty is forced even if it overdraws the budget. Caller holds mu.
func (e *Engine) expireMissions(now time.Time) {
	for _, m := range e.missionsOrdered() {
		if m.Status.Terminal() || m.Deadline.IsZero() || now.Before(m.Deadline) {
			continue
		}
		e.ledger.Penalize(m.Penalty, "penalty "+m.Kind)
		e.stats.MissionsFailed++
		e.stats.TotalPenalties += m.Penalty
		m.Status = world.MissionFailed
		e.log.Warn("mission failed", "id", m.ID, "kind", m.Kind, "penalty", m.Penalty, "balance", e.ledger.Balance())
		e.emit(event.Row{
			Type:      event.MissionFailed,
			MissionID: m.ID,
			Amount:    -m.Penalty,
			Balance:   e.ledger.Balance(),
			Reason:    m.Kind,
			Lat:       m.Location.Lat,
			Lon:       m.Location.Lon,
		})
		e.releaseUnits(m)
		e.store.RemoveMission(m.ID)
	}
}

// releaseUnits sends every vehicle still bound to the mission back to its
// station. Caller holds mu.
func (e *Engine) releaseUnits(m *world.Mission) {
	for _, id := range m.AssignedIDs {
		v, ok := e.store.Vehicle(id)
		if !ok || v.MissionID != m.ID {
			continue
		}
		e.sendHome(v)
	}
	m.AssignedIDs = nil
}

// advanceScenario checks the active phase's triggers against the lifetime
// counters and elapsed phase time. Caller holds mu.
func (e *Engine) advanceScenario(now time.Time) {
	if e.scn == nil || e.phase == "" {
		return
	}
	events := []scenario.Event{
		{Type: scenario.EventMissionsCompleted, Value: e.stats.MissionsCompleted},
		{Type: scenario.EventMissionsFailed, Value: e.stats.MissionsFailed},
		{Type: scenario.EventTimeElapsed, Value: int(now.Sub(e.phaseStarted).Seconds())},
	}
	for _, ev := range events {
		next, ok := e.scn.NextPhase(e.phase, ev)
		if !ok {
			continue
		}
		e.log.Info("scenario phase change", "from", e.phase, "to", next, "trigger", ev.Type)
		e.phase = next
		e.phaseStarted = now
		return
	}
}

// writeUnits emits one row per vehicle, batched when the writer supports it.
// Caller holds mu.
func (e *Engine) writeUnits(now time.Time) {
	if e.unitWriter == nil {
		return
	}
	vehicles := e.vehiclesOrdered()
	rows := make([]event.UnitRow, 0, len(vehicles))
	for _, v := range vehicles {
		rows = append(rows, event.UnitRow{
			SimID:     e.simID,
			VehicleID: v.ID,
			Kind:      v.Kind,
			Class:     v.Class,
			Lat:       v.Location.Lat,
			Lon:       v.Location.Lon,
			Status:    string(v.Status),
			Mode:      string(v.Mode),
			MissionID: v.MissionID,
			Timestamp: now.UTC(),
		})
	}
	if bw, ok := e.unitWriter.(batchUnitWriter); ok {
		if err := bw.WriteUnits(rows); err != nil {
			e.log.Error("unit batch write failed", "err", err)
		}
		return
	}
	for _, r := range rows {
		if err := e.unitWriter.WriteUnit(r); err != nil {
			e.log.Error("unit write failed", "vehicle", r.VehicleID, "err", err)
		}
	}
}

// writeState emits the per-tick summary row. Caller holds mu.
func (e *Engine) writeState(now time.Time) {
	if e.stateWriter == nil {
		return
	}
	row := event.StateRow{
		SimID:             e.simID,
		Balance:           e.ledger.Balance(),
		Buildings:         len(e.store.Buildings),
		Vehicles:          len(e.store.Vehicles),
		ActiveMissions:    len(e.store.Missions),
		MissionsCompleted: e.stats.MissionsCompleted,
		MissionsFailed:    e.stats.MissionsFailed,
		Surge:             e.surge,
		Phase:             e.phase,
		Weather:           e.weatherLocked(),
		Timestamp:         now.UTC(),
	}
	if err := e.stateWriter.WriteState(row); err != nil {
		e.log.Error("state write failed", "err", err)
	}
}
