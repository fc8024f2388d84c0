// Result reconciliation: merging per-run result blocks into one dense
// sweep-indexed dataset.
package merge

import (
	"fmt"
	"strconv"
	"strings"

	"multisweep/internal/dataset"
	"multisweep/internal/sweep"
)

// Run is one run's readable output together with the sweep tuple that
// produced it, in canonical axis order. Runs arrive in completion order.
type Run struct {
	Name  string
	Tuple []float64
	Group *dataset.Group
}

// Stats summarizes what the merge did and what it had to drop.
type Stats struct {
	MergedRuns int
	// Mismatches counts run blocks excluded because their shape disagreed
	// with the template block at the same position.
	Mismatches int
}

// Engine merges run outputs. The first run with blocks becomes the
// structural template: block names, independent-variable names and metadata
// are taken from it, and every later run is concatenated onto it. In strict
// mode a shape mismatch aborts the merge; in lenient mode the offending
// block is skipped and counted.
type Engine struct {
	Strict bool
}

// Merge reconciles the runs into one group. Every indexed block is
// reindexed onto the cross product of the full sweep index and the union of
// observed native independent-variable values, so combinations no run
// filled show up as NaN rows instead of missing ones.
func (e *Engine) Merge(name string, idx *sweep.Index, runs []Run) (*dataset.Group, Stats, error) {
	var stats Stats
	out := &dataset.Group{Name: name}

	tmplAt := -1
	for i, r := range runs {
		if r.Group != nil {
			tmplAt = i
			break
		}
	}
	if tmplAt < 0 {
		return out, stats, nil
	}
	tmpl := runs[tmplAt].Group

	sweepNames := idx.Names()
	for _, b := range tmpl.Blocks {
		for _, ivar := range b.IVarNames() {
			for _, ax := range sweepNames {
				if ivar == ax {
					return nil, stats, fmt.Errorf("merge: sweep axis %q collides with independent variable of block %q", ax, b.Name)
				}
			}
		}
	}

	for pos, tb := range tmpl.Blocks {
		if !tb.Indexed() {
			// Scalar and unindexed blocks pass through from the template only.
			out.Blocks = append(out.Blocks, &dataset.Block{
				Name:     tb.Name,
				Metadata: copyMeta(tb.Metadata),
				Scalars:  tb.Scalars,
				Table:    tb.Table,
			})
			continue
		}
		merged, n, err := e.mergeIndexed(pos, tb, idx, runs)
		if err != nil {
			return nil, stats, err
		}
		stats.Mismatches += n
		out.Blocks = append(out.Blocks, merged)
	}
	for _, r := range runs {
		if r.Group != nil {
			stats.MergedRuns++
		}
	}
	return out, stats, nil
}

// mergeIndexed concatenates the same-position block of every run onto the
// template block and reindexes the result.
func (e *Engine) mergeIndexed(pos int, tb *dataset.Block, idx *sweep.Index, runs []Run) (*dataset.Block, int, error) {
	sweepNames := idx.Names()
	native := tb.Table.IndexNames
	cols := tb.Table.Columns
	mismatches := 0

	// Concatenated rows keyed by the combined sweep+native index tuple.
	rows := make(map[string][]float64)
	var nativeSeen []map[float64]struct{}
	var nativeOrder [][]float64
	for range native {
		nativeSeen = append(nativeSeen, make(map[float64]struct{}))
		nativeOrder = append(nativeOrder, nil)
	}

	for _, r := range runs {
		if r.Group == nil {
			continue
		}
		if pos >= len(r.Group.Blocks) {
			if e.Strict {
				return nil, 0, fmt.Errorf("merge: run %q is missing block position %d (%s)", r.Name, pos, tb.Name)
			}
			mismatches++
			continue
		}
		rb := r.Group.Blocks[pos]
		if !sameShape(tb, rb) {
			if e.Strict {
				return nil, 0, fmt.Errorf("merge: run %q block %q does not match template block %q", r.Name, rb.Name, tb.Name)
			}
			mismatches++
			continue
		}
		for i, tup := range rb.Table.Index {
			for lvl, v := range tup {
				if _, ok := nativeSeen[lvl][v]; !ok {
					nativeSeen[lvl][v] = struct{}{}
					nativeOrder[lvl] = append(nativeOrder[lvl], v)
				}
			}
			full := append(append([]float64{}, r.Tuple...), tup...)
			rows[tupleKey(full)] = rb.Table.Values[i]
		}
	}

	// Full cross product: every sweep tuple times every observed native
	// combination, NaN where no run contributed a row.
	nativeAxes := make([]sweep.Axis, len(native))
	for i, name := range native {
		nativeAxes[i] = sweep.Axis{Name: name, Values: nativeOrder[i]}
	}
	nativeTuples := sweep.Product(nativeAxes)

	merged := &dataset.Table{
		IndexNames: append(append([]string{}, sweepNames...), native...),
		Columns:    cols,
	}
	for _, st := range idx.Tuples() {
		for _, nt := range nativeTuples {
			full := append(append([]float64{}, st...), nt...)
			merged.Index = append(merged.Index, full)
			if vals, ok := rows[tupleKey(full)]; ok {
				merged.Values = append(merged.Values, vals)
			} else {
				merged.Values = append(merged.Values, merged.EmptyRow())
			}
		}
	}

	meta := copyMeta(tb.Metadata)
	meta["__ivarnames__"] = strings.Join(merged.IndexNames, ",")
	return &dataset.Block{Name: tb.Name, Metadata: meta, Table: merged}, mismatches, nil
}

// sameShape reports whether a run block can be concatenated onto the
// template block: indexed, same independent variables, same columns.
func sameShape(tmpl, b *dataset.Block) bool {
	if !b.Indexed() {
		return false
	}
	if !equalStrings(tmpl.Table.IndexNames, b.Table.IndexNames) {
		return false
	}
	return equalStrings(tmpl.Table.Columns, b.Table.Columns)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// tupleKey renders an index tuple into an exact map key. Values are carried
// through unmodified from the inputs, so bit-exact formatting is the right
// equality.
func tupleKey(tup []float64) string {
	var sb strings.Builder
	for i, v := range tup {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(strconv.FormatFloat(v, 'b', -1, 64))
	}
	return sb.String()
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
