package sim

import (
	"context"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
)

type mockGreptimeClient struct {
	table *table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterRunRow(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "sweep_runs"}

	row := RunRow{
		SweepID:     "s1",
		RunName:     "amp_bias_0p5",
		ReturnCode:  3,
		CPUSeconds:  1.5,
		WallSeconds: 2.0,
		ReadError:   true,
		Timestamp:   time.Unix(0, 0).UTC(),
	}
	if err := w.WriteRun(row); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	schema := m.table.GetRows().Schema
	if len(schema) != 7 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	wantCols := []string{"sweep_id", "run", "return_code", "cpu_seconds", "wall_seconds", "read_error", "ts"}
	for i, name := range wantCols {
		if schema[i].ColumnName != name {
			t.Errorf("schema[%d] = %s, want %s", i, schema[i].ColumnName, name)
		}
	}

	values := m.table.GetRows().Rows[0].Values
	if got := values[0].GetStringValue(); got != "s1" {
		t.Errorf("sweep_id = %s, want s1", got)
	}
	if got := values[1].GetStringValue(); got != "amp_bias_0p5" {
		t.Errorf("run = %s, want amp_bias_0p5", got)
	}
	if got := values[2].GetI64Value(); got != 3 {
		t.Errorf("return_code = %d, want 3", got)
	}
	if got := values[3].GetF64Value(); got != 1.5 {
		t.Errorf("cpu_seconds = %v, want 1.5", got)
	}
	if got := values[5].GetBoolValue(); !got {
		t.Error("read_error = false, want true")
	}
}
