package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	yaml := `
sim_name: gain_sweep
workspace: /tmp/amp_wrk
workers: 3
timeout: 30m
axes:
  - name: bias
    values: [0.0, 0.5, 1.0]
static_vars:
  temp: 25
output:
  type: csv
`
	path := writeConfig(t, yaml)
	cfg, err := Load(path, "../../schemas/sweep.cue")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.SimName != "gain_sweep" || cfg.Workers != 3 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.Netlist != "netlist.log" || cfg.Simulator != "adssim" {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	if cfg.TimeoutDur.Minutes() != 30 {
		t.Errorf("Timeout not parsed: %v", cfg.TimeoutDur)
	}
	if cfg.StaticVars["temp"] != 25 {
		t.Errorf("Static vars not loaded: %v", cfg.StaticVars)
	}
}

func TestLoadConfig_RejectsBadOutputType(t *testing.T) {
	yaml := `
sim_name: s
workspace: /tmp/w
output:
  type: hdf5
`
	path := writeConfig(t, yaml)
	if _, err := Load(path, "../../schemas/sweep.cue"); err == nil {
		t.Error("Expected schema validation to reject output type hdf5")
	}
}

func TestBuildIndex_FromAxes(t *testing.T) {
	cfg := &Sweep{Axes: []Axis{
		{Name: "Vgs", Values: []float64{0.4, 0.6}},
		{Name: "Vds", Values: []float64{1, 2}},
	}}
	idx, err := cfg.BuildIndex()
	if err != nil {
		t.Fatalf("BuildIndex() returned error: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("Expected 4 tuples, got %d", idx.Len())
	}
}

func TestBuildIndex_FromTuples(t *testing.T) {
	cfg := &Sweep{
		TupleNames: []string{"Vgs", "Vds"},
		Tuples:     [][]float64{{0.4, 1}, {0.6, 2}},
	}
	idx, err := cfg.BuildIndex()
	if err != nil {
		t.Fatalf("BuildIndex() returned error: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Expected 2 tuples, got %d", idx.Len())
	}
}

func TestBuildIndex_Errors(t *testing.T) {
	if _, err := (&Sweep{}).BuildIndex(); err == nil {
		t.Error("Expected error for empty sweep definition")
	}
	both := &Sweep{
		Axes:       []Axis{{Name: "a", Values: []float64{1}}},
		TupleNames: []string{"b"},
		Tuples:     [][]float64{{2}},
	}
	if _, err := both.BuildIndex(); err == nil {
		t.Error("Expected error when axes and tuples are both set")
	}
}
