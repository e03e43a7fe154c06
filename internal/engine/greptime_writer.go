package engine

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"dispatchops-sim/internal/event"
)

// GreptimeDBWriter writes unit, event, and state rows to GreptimeDB via the
// ingester client. Tables are created on first write from the row schema.
type GreptimeDBWriter struct {
	client *greptime.Client
}

// NewGreptimeDBWriter connects to a GreptimeDB gRPC endpoint. The endpoint
// may be host only, in which case the default ingest port 4001 is used.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host := endpoint
	port := 4001
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database).WithPort(port)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client}, nil
}

func unitTable(rows []event.UnitRow) (*table.Table, error) {
	tbl, err := table.New(event.UnitTableName)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddTagColumn("vehicle_id", types.STRING),
		tbl.AddFieldColumn("kind", types.STRING),
		tbl.AddFieldColumn("class", types.STRING),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddFieldColumn("status", types.STRING),
		tbl.AddFieldColumn("mode", types.STRING),
		tbl.AddFieldColumn("mission_id", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.SimID, r.VehicleID, r.Kind, r.Class, r.Lat, r.Lon, r.Status, r.Mode, r.MissionID, r.Timestamp); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func eventTable(row event.Row) (*table.Table, error) {
	tbl, err := table.New(event.EventTableName)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddTagColumn("type", types.STRING),
		tbl.AddFieldColumn("mission_id", types.STRING),
		tbl.AddFieldColumn("vehicle_id", types.STRING),
		tbl.AddFieldColumn("building_id", types.STRING),
		tbl.AddFieldColumn("amount", types.INT64),
		tbl.AddFieldColumn("balance", types.INT64),
		tbl.AddFieldColumn("reason", types.STRING),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return nil, err
	}
	if err := tbl.AddRow(row.SimID, row.Type, row.MissionID, row.VehicleID, row.BuildingID,
		row.Amount, row.Balance, row.Reason, row.Lat, row.Lon, row.Timestamp); err != nil {
		return nil, err
	}
	return tbl, nil
}

func stateTable(row event.StateRow) (*table.Table, error) {
	tbl, err := table.New(event.StateTableName)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		tbl.AddTagColumn("sim_id", types.STRING),
		tbl.AddFieldColumn("balance", types.INT64),
		tbl.AddFieldColumn("buildings", types.INT64),
		tbl.AddFieldColumn("vehicles", types.INT64),
		tbl.AddFieldColumn("active_missions", types.INT64),
		tbl.AddFieldColumn("missions_completed", types.INT64),
		tbl.AddFieldColumn("missions_failed", types.INT64),
		tbl.AddFieldColumn("surge", types.BOOLEAN),
		tbl.AddFieldColumn("phase", types.STRING),
		tbl.AddFieldColumn("weather", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return nil, err
	}
	if err := tbl.AddRow(row.SimID, row.Balance, int64(row.Buildings), int64(row.Vehicles),
		int64(row.ActiveMissions), int64(row.MissionsCompleted), int64(row.MissionsFailed),
		row.Surge, row.Phase, row.Weather, row.Timestamp); err != nil {
		return nil, err
	}
	return tbl, nil
}

// WriteUnit inserts a single unit row.
func (w *GreptimeDBWriter) WriteUnit(row event.UnitRow) error {
	return w.WriteUnits([]event.UnitRow{row})
}

// WriteUnits inserts multiple unit rows in one request.
func (w *GreptimeDBWriter) WriteUnits(rows []event.UnitRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := unitTable(rows)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] unit write failed: %v", err)
		return err
	}
	return nil
}

// WriteEvent inserts a single dispatch event row.
func (w *GreptimeDBWriter) WriteEvent(row event.Row) error {
	tbl, err := eventTable(row)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] event write failed: %v", err)
		return err
	}
	return nil
}

// WriteState inserts a single simulation state row.
func (w *GreptimeDBWriter) WriteState(row event.StateRow) error {
	tbl, err := stateTable(row)
	if err != nil {
		return err
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] state write failed: %v", err)
		return err
	}
	return nil
}
