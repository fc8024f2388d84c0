package merge

import (
	"math"
	"reflect"
	"testing"

	"multisweep/internal/dataset"
	"multisweep/internal/sweep"
)

func runGroup(freqs []float64, gain []float64) *dataset.Group {
	tbl := &dataset.Table{
		IndexNames: []string{"freq"},
		Columns:    []string{"gain"},
	}
	for i, f := range freqs {
		tbl.Index = append(tbl.Index, []float64{f})
		tbl.Values = append(tbl.Values, []float64{gain[i]})
	}
	return &dataset.Group{
		Name: "run",
		Blocks: []*dataset.Block{
			{Name: "HB.data", Metadata: map[string]string{"analysis": "HB"}, Table: tbl},
			{Name: "DC.op", Scalars: map[string]float64{"Id": 0.01}},
		},
	}
}

func biasIndex(t *testing.T) *sweep.Index {
	t.Helper()
	idx, err := sweep.FromValues("bias", []float64{0.0, 0.5, 1.0})
	if err != nil {
		t.Fatalf("FromValues() returned error: %v", err)
	}
	return idx
}

func TestMerge_FullSweep(t *testing.T) {
	idx := biasIndex(t)
	runs := []Run{
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{20, 19})},
		{Name: "r1", Tuple: []float64{0.5}, Group: runGroup([]float64{1e9, 2e9}, []float64{18, 17})},
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{16, 15})},
	}
	e := &Engine{}
	g, stats, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if stats.MergedRuns != 3 || stats.Mismatches != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(g.Blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(g.Blocks))
	}
	tbl := g.Blocks[0].Table
	if !reflect.DeepEqual(tbl.IndexNames, []string{"bias", "freq"}) {
		t.Errorf("Sweep axis not prepended: %v", tbl.IndexNames)
	}
	if tbl.NumRows() != 6 {
		t.Fatalf("Expected 6 rows, got %d", tbl.NumRows())
	}
	// bias=0.5, freq=2e9 sits at row 3.
	if tbl.Index[3][0] != 0.5 || tbl.Index[3][1] != 2e9 {
		t.Errorf("Unexpected row 3 index: %v", tbl.Index[3])
	}
	if tbl.Values[3][0] != 17 {
		t.Errorf("Unexpected row 3 value: %v", tbl.Values[3])
	}
	// Scalar block passes through from the template run only.
	if g.Blocks[1].Scalars["Id"] != 0.01 {
		t.Errorf("Scalar block not preserved: %+v", g.Blocks[1])
	}
}

func TestMerge_MissingRowsBecomeNaN(t *testing.T) {
	idx := biasIndex(t)
	// Run 1 only produced half the native index rows.
	runs := []Run{
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{20, 19})},
		{Name: "r1", Tuple: []float64{0.5}, Group: runGroup([]float64{1e9}, []float64{18})},
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{16, 15})},
	}
	e := &Engine{}
	g, _, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	tbl := g.Blocks[0].Table
	if tbl.NumRows() != 6 {
		t.Fatalf("Merged table must stay rectangular, got %d rows", tbl.NumRows())
	}
	found := false
	for i, tup := range tbl.Index {
		if tup[0] == 0.5 && tup[1] == 2e9 {
			found = true
			if !math.IsNaN(tbl.Values[i][0]) {
				t.Errorf("Missing combination must be NaN, got %v", tbl.Values[i][0])
			}
		}
	}
	if !found {
		t.Error("Row for bias=0.5 freq=2e9 absent from merged index")
	}
}

func TestMerge_FailedRunLeavesNaNRows(t *testing.T) {
	idx := biasIndex(t)
	runs := []Run{
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{20, 19})},
		{Name: "r1", Tuple: []float64{0.5}, Group: nil}, // no readable output
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{16, 15})},
	}
	e := &Engine{}
	g, stats, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if stats.MergedRuns != 2 {
		t.Errorf("MergedRuns = %d, want 2", stats.MergedRuns)
	}
	tbl := g.Blocks[0].Table
	if tbl.NumRows() != 6 {
		t.Fatalf("Expected 6 rows, got %d", tbl.NumRows())
	}
	nan := 0
	for i := range tbl.Index {
		if math.IsNaN(tbl.Values[i][0]) {
			nan++
		}
	}
	if nan != 2 {
		t.Errorf("Expected 2 NaN rows for the failed run, got %d", nan)
	}
}

func TestMerge_CompletionOrderPicksTemplate(t *testing.T) {
	idx := biasIndex(t)
	runs := []Run{
		{Name: "r1", Tuple: []float64{0.5}, Group: nil},
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9}, []float64{16})},
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9}, []float64{20})},
	}
	e := &Engine{}
	g, _, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if g.Blocks[0].Metadata["analysis"] != "HB" {
		t.Errorf("Template metadata lost: %+v", g.Blocks[0].Metadata)
	}
}

func TestMerge_MismatchLenientVsStrict(t *testing.T) {
	idx := biasIndex(t)
	odd := runGroup([]float64{1e9}, []float64{1})
	odd.Blocks[0].Table.IndexNames = []string{"power"} // structurally different
	runs := []Run{
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9}, []float64{20})},
		{Name: "r1", Tuple: []float64{0.5}, Group: odd},
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9}, []float64{16})},
	}
	lenient := &Engine{}
	_, stats, err := lenient.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Lenient merge returned error: %v", err)
	}
	if stats.Mismatches != 1 {
		t.Errorf("Mismatches = %d, want 1", stats.Mismatches)
	}

	strict := &Engine{Strict: true}
	if _, _, err := strict.Merge("swp", idx, runs); err == nil {
		t.Error("Strict merge must fail on a shape mismatch")
	}
}

func TestMerge_AxisCollisionFatal(t *testing.T) {
	idx, err := sweep.FromValues("freq", []float64{1, 2})
	if err != nil {
		t.Fatalf("FromValues() returned error: %v", err)
	}
	runs := []Run{{Name: "r0", Tuple: []float64{1}, Group: runGroup([]float64{1e9}, []float64{20})}}
	e := &Engine{}
	if _, _, err := e.Merge("swp", idx, runs); err == nil {
		t.Error("Sweep axis colliding with a native variable must be fatal")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	idx := biasIndex(t)
	runs := []Run{
		{Name: "r0", Tuple: []float64{0.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{20, 19})},
		{Name: "r1", Tuple: []float64{0.5}, Group: runGroup([]float64{1e9}, []float64{18})},
		{Name: "r2", Tuple: []float64{1.0}, Group: runGroup([]float64{1e9, 2e9}, []float64{16, 15})},
	}
	e := &Engine{}
	a, _, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	b, _, err := e.Merge("swp", idx, runs)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	// NaN != NaN, so compare via formatted keys.
	if len(a.Blocks) != len(b.Blocks) {
		t.Fatalf("Block count differs between identical merges")
	}
	ta, tb := a.Blocks[0].Table, b.Blocks[0].Table
	if !reflect.DeepEqual(ta.Index, tb.Index) || !reflect.DeepEqual(ta.IndexNames, tb.IndexNames) {
		t.Error("Merged index differs between identical merges")
	}
	for i := range ta.Values {
		for j := range ta.Values[i] {
			va, vb := ta.Values[i][j], tb.Values[i][j]
			if va != vb && !(math.IsNaN(va) && math.IsNaN(vb)) {
				t.Errorf("Value [%d][%d] differs: %v vs %v", i, j, va, vb)
			}
		}
	}
}
