package sim

import (
	"context"
	"log"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// greptimeClient abstracts the ingester client for testing.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter records finished runs in GreptimeDB via the ingester
// client, so long sweeps can be watched and compared across campaigns.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeDBWriter creates a run record writer for the given endpoint
// and database.
func NewGreptimeDBWriter(host, database, tableName string) (*GreptimeDBWriter, error) {
	if tableName == "" {
		tableName = "sweep_runs"
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client, table: tableName}, nil
}

// WriteRun inserts one finished-run row.
func (w *GreptimeDBWriter) WriteRun(row RunRow) error {
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("sweep_id", types.STRING)
	tbl.AddTagColumn("run", types.STRING)
	tbl.AddFieldColumn("return_code", types.INT64)
	tbl.AddFieldColumn("cpu_seconds", types.FLOAT64)
	tbl.AddFieldColumn("wall_seconds", types.FLOAT64)
	tbl.AddFieldColumn("read_error", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(row.SweepID, row.RunName, int64(row.ReturnCode),
		row.CPUSeconds, row.WallSeconds, row.ReadError, row.Timestamp); err != nil {
		return err
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		log.Printf("[GreptimeDBWriter] write failed: %v", err)
		return err
	}
	return nil
}
