// JSON admin API for inspecting and steering a running simulation.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dispatchops-sim/internal/engine"
	"dispatchops-sim/internal/persist"
	"dispatchops-sim/internal/world"
)

// Server exposes the engine's command and query surface over HTTP.
type Server struct {
	Engine *engine.Engine
	Saves  *persist.Store
}

// NewServer creates an admin server. saves may be nil to disable /save.
func NewServer(eng *engine.Engine, saves *persist.Store) *Server {
	return &Server{Engine: eng, Saves: saves}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/buildings", s.handleBuildings)
	mux.HandleFunc("/units", s.handleUnits)
	mux.HandleFunc("/missions", s.handleMissions)
	mux.HandleFunc("/budget", s.handleBudget)
	mux.HandleFunc("/buy-building", s.handleBuyBuilding)
	mux.HandleFunc("/buy-vehicle", s.handleBuyVehicle)
	mux.HandleFunc("/sell-building", s.handleSellBuilding)
	mux.HandleFunc("/sell-vehicle", s.handleSellVehicle)
	mux.HandleFunc("/dispatch", s.handleDispatch)
	mux.HandleFunc("/response-mode", s.handleResponseMode)
	mux.HandleFunc("/toggle-surge", s.handleToggleSurge)
	mux.HandleFunc("/save", s.handleSave)
	return mux
}

// Start serves the admin API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sum := s.Engine.Summary()
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sim_id":   sum.SimID,
		"balance":  sum.Balance,
		"units":    sum.Vehicles,
		"missions": sum.Missions,
		"surge":    sum.Surge,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.Summary())
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.Buildings())
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.Vehicles())
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Engine.Missions())
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"balance": s.Engine.Balance(),
		"entries": s.Engine.LedgerEntries(),
	})
}

type buyBuildingRequest struct {
	Kind string  `json:"kind"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (s *Server) handleBuyBuilding(w http.ResponseWriter, r *http.Request) {
	var req buyBuildingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.Engine.Catalog().HasBuilding(req.Kind) {
		http.Error(w, "unknown building kind "+req.Kind, http.StatusBadRequest)
		return
	}
	b, err := s.Engine.BuyBuilding(req.Kind, world.Position{Lat: req.Lat, Lon: req.Lon})
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, b)
}

type buyVehicleRequest struct {
	Kind       string `json:"kind"`
	BuildingID string `json:"building_id"`
}

func (s *Server) handleBuyVehicle(w http.ResponseWriter, r *http.Request) {
	var req buyVehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !s.Engine.Catalog().HasVehicle(req.Kind) {
		http.Error(w, "unknown vehicle kind "+req.Kind, http.StatusBadRequest)
		return
	}
	v, err := s.Engine.BuyVehicle(req.Kind, req.BuildingID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, v)
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSellBuilding(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	refund, err := s.Engine.SellBuilding(req.ID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, map[string]any{"refund": refund, "balance": s.Engine.Balance()})
}

func (s *Server) handleSellVehicle(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	refund, err := s.Engine.SellVehicle(req.ID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, map[string]any{"refund": refund, "balance": s.Engine.Balance()})
}

type dispatchRequest struct {
	VehicleID string `json:"vehicle_id"`
	MissionID string `json:"mission_id"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.Dispatch(req.VehicleID, req.MissionID); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type responseModeRequest struct {
	VehicleID string `json:"vehicle_id"`
	Mode      string `json:"mode"`
}

func (s *Server) handleResponseMode(w http.ResponseWriter, r *http.Request) {
	var req responseModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Engine.SetResponseMode(req.VehicleID, world.ResponseMode(req.Mode)); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleSurge(w http.ResponseWriter, r *http.Request) {
	state := s.Engine.ToggleSurge()
	writeJSON(w, map[string]any{"surge": state})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.Saves == nil {
		http.Error(w, "persistence disabled", http.StatusNotImplemented)
		return
	}
	snap := s.Engine.Snapshot()
	if err := s.Saves.Save(snap); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved_at": snap.SavedAt, "path": s.Saves.Path()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeCommandError maps the engine's error taxonomy to HTTP statuses.
func writeCommandError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrUnknownEntity):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, world.ErrIllegalTransition), errors.Is(err, world.ErrCapacityExceeded):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
