// Dispatch engine orchestrating missions, vehicles, and the budget ledger.
package engine

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"dispatchops-sim/internal/catalog"
	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/ledger"
	"dispatchops-sim/internal/logging"
	"dispatchops-sim/internal/persist"
	"dispatchops-sim/internal/scenario"
	"dispatchops-sim/internal/world"
)

// UnitWriter is an interface to support different per-tick unit outputs.
type UnitWriter interface {
	WriteUnit(event.UnitRow) error
}

// EventWriter handles dispatch lifecycle events.
type EventWriter interface {
	WriteEvent(event.Row) error
}

// StateWriter handles per-tick simulation summary rows.
type StateWriter interface {
	WriteState(event.StateRow) error
}

// Optional: unit writers may support batch mode.
type batchUnitWriter interface {
	WriteUnits([]event.UnitRow) error
}

// RewardFunc maps a catalog base reward to the reward actually offered by a
// generated mission. Swappable so tests can pin it to identity.
type RewardFunc func(base int64) int64

// Engine owns the simulation state and applies every transition. All public
// methods are safe for concurrent use; internally everything runs under one
// mutex so each command or tick observes a consistent snapshot.
type Engine struct {
	simID   string
	cfg     *config.SimulationConfig
	catalog *catalog.Catalog
	store   *world.Store
	ledger  *ledger.Ledger

	unitWriter  UnitWriter
	eventWriter EventWriter
	stateWriter StateWriter

	scn          *scenario.Scenario
	phase        string
	phaseStarted time.Time

	surge    bool
	stats    persist.Stats
	rewardFn RewardFunc

	tickInterval time.Duration
	rand         *rand.Rand
	now          func() time.Time
	log          *slog.Logger

	lastTick    time.Time
	nextSpawnAt time.Time

	mu sync.Mutex
}

// New initializes an engine with a fresh store and ledger. scn and the
// writers may be nil.
func New(simID string, cfg *config.SimulationConfig, scn *scenario.Scenario, uw UnitWriter, ew EventWriter, sw StateWriter, tickInterval time.Duration) *Engine {
	e := &Engine{
		simID:        simID,
		cfg:          cfg,
		catalog:      &cfg.Catalog,
		store:        world.NewStore(),
		ledger:       ledger.New(cfg.InitialBudget, cfg.LedgerRetention),
		unitWriter:   uw,
		eventWriter:  ew,
		stateWriter:  sw,
		scn:          scn,
		tickInterval: tickInterval,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
		log:          logging.New(slog.LevelInfo),
	}
	if scn != nil {
		e.phase = scn.First()
	}
	e.rewardFn = e.jitterReward
	return e
}

// SetRewardFunc replaces the reward randomization strategy.
func (e *Engine) SetRewardFunc(fn RewardFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewardFn = fn
}

// jitterReward spreads the base reward uniformly across
// [1-jitter, 1+jitter].
func (e *Engine) jitterReward(base int64) int64 {
	j := e.cfg.RewardJitter
	if j <= 0 {
		return base
	}
	f := 1 - j + e.rand.Float64()*2*j
	return int64(float64(base) * f)
}

// Catalog returns the read-only kind registry.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Balance returns the current budget balance.
func (e *Engine) Balance() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance()
}

// LedgerEntries returns a copy of the budget history.
func (e *Engine) LedgerEntries() []ledger.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Entries()
}

// Stats returns the lifetime mission counters.
func (e *Engine) Stats() persist.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ToggleSurge flips surge mode (doubled mission generation) and returns the
// new state.
func (e *Engine) ToggleSurge() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surge = !e.surge
	e.emit(event.Row{Type: event.SurgeToggled, Reason: boolReason(e.surge)})
	return e.surge
}

// Surge reports whether surge mode is active.
func (e *Engine) Surge() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surge
}

// Summary aggregates headline state for the admin UI.
type Summary struct {
	SimID     string        `json:"sim_id"`
	Balance   int64         `json:"balance"`
	Buildings int           `json:"buildings"`
	Vehicles  int           `json:"vehicles"`
	Missions  int           `json:"missions"`
	Surge     bool          `json:"surge"`
	Phase     string        `json:"phase,omitempty"`
	Weather   string        `json:"weather,omitempty"`
	Stats     persist.Stats `json:"stats"`
}

// Summary returns headline state for display.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summary{
		SimID:     e.simID,
		Balance:   e.ledger.Balance(),
		Buildings: len(e.store.Buildings),
		Vehicles:  len(e.store.Vehicles),
		Missions:  len(e.store.Missions),
		Surge:     e.surge,
		Phase:     e.phase,
		Weather:   e.weatherLocked(),
		Stats:     e.stats,
	}
}

// Buildings returns copies of all buildings, ordered by id.
func (e *Engine) Buildings() []world.Building {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]world.Building, 0, len(e.store.Buildings))
	for _, b := range e.store.Buildings {
		cp := *b
		cp.VehicleIDs = append([]string(nil), b.VehicleIDs...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

// Vehicles returns copies of all vehicles, ordered by id.
func (e *Engine) Vehicles() []world.Vehicle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]world.Vehicle, 0, len(e.store.Vehicles))
	for _, v := range e.store.Vehicles {
		out = append(out, copyVehicle(v))
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

// Missions returns copies of all live missions, ordered by id.
func (e *Engine) Missions() []world.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]world.Mission, 0, len(e.store.Missions))
	for _, m := range e.store.Missions {
		cp := *m
		cp.AssignedIDs = append([]string(nil), m.AssignedIDs...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

func copyVehicle(v *world.Vehicle) world.Vehicle {
	cp := *v
	if v.Destination != nil {
		d := *v.Destination
		cp.Destination = &d
	}
	return cp
}

// weatherLocked returns the active phase's weather label. Caller holds mu.
func (e *Engine) weatherLocked() string {
	if e.scn == nil {
		return ""
	}
	if p, ok := e.scn.Phase(e.phase); ok {
		return p.Weather
	}
	return ""
}

// emit writes a lifecycle event, filling sim id and timestamp. Caller holds
// mu; write failures are logged, never propagated into the state machine.
func (e *Engine) emit(row event.Row) {
	if e.eventWriter == nil {
		return
	}
	row.SimID = e.simID
	if row.Timestamp.IsZero() {
		row.Timestamp = e.now().UTC()
	}
	if err := e.eventWriter.WriteEvent(row); err != nil {
		e.log.Error("event write failed", "type", row.Type, "err", err)
	}
}

// emitBudget reports a ledger mutation.
func (e *Engine) emitBudget(amount int64, reason string) {
	e.emit(event.Row{
		Type:    event.BudgetChanged,
		Amount:  amount,
		Balance: e.ledger.Balance(),
		Reason:  reason,
	})
}

func boolReason(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// vehiclesOrdered returns the live vehicle pointers in deterministic id
// order. Caller holds mu.
func (e *Engine) vehiclesOrdered() []*world.Vehicle {
	out := make([]*world.Vehicle, 0, len(e.store.Vehicles))
	for _, v := range e.store.Vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

// missionsOrdered returns the live mission pointers in deterministic id
// order. Caller holds mu.
func (e *Engine) missionsOrdered() []*world.Mission {
	out := make([]*world.Mission, 0, len(e.store.Missions))
	for _, m := range e.store.Missions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

// buildingsOrdered returns the live building pointers in deterministic id
// order. Caller holds mu.
func (e *Engine) buildingsOrdered() []*world.Building {
	out := make([]*world.Building, 0, len(e.store.Buildings))
	for _, b := range e.store.Buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return world.IDOrdinal(out[i].ID) < world.IDOrdinal(out[j].ID) })
	return out
}

// rewardMultiplier folds in bonuses from owned support buildings.
func (e *Engine) rewardMultiplier() float64 {
	mult := 1.0
	for _, b := range e.store.Buildings {
		mult += e.catalog.Building(b.Kind).RewardBonus
	}
	return mult
}

// scaled shrinks a wall-clock duration by the global speed multiplier.
// Applies to newly scheduled timers only; in-flight deadlines keep the rate
// they were scheduled at.
func (e *Engine) scaled(d time.Duration) time.Duration {
	if e.cfg.SpeedMultiplier <= 0 || e.cfg.SpeedMultiplier == 1 {
		return d
	}
	return time.Duration(float64(d) / e.cfg.SpeedMultiplier)
}
