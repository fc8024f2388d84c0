// Sweep specification normalizer producing a canonical multi-axis index.
package sweep

import (
	"fmt"
)

// Axis is one named sweep dimension with its value list.
type Axis struct {
	Name   string
	Values []float64
}

// Index is the canonical ordered set of sweep axes plus the enumerated
// variable tuples, one tuple per simulation run. Axis order is reversed
// relative to declaration order: the simulator prepends newly swept
// parameters in front of a dataset's own independent variables, so the
// most recently declared axis must end up outermost. Constructors apply
// that reversal; everything downstream sees the canonical order.
type Index struct {
	names  []string
	tuples [][]float64
}

// FromValues builds a single-axis index from a flat value list.
func FromValues(name string, values []float64) (*Index, error) {
	if name == "" {
		return nil, fmt.Errorf("sweep: axis name must not be empty")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("sweep: axis %q has no values", name)
	}
	tuples := make([][]float64, len(values))
	for i, v := range values {
		tuples[i] = []float64{v}
	}
	return &Index{names: []string{name}, tuples: tuples}, nil
}

// FromTuples builds an index from an explicit tuple enumeration, one axis
// name per tuple position.
func FromTuples(names []string, tuples [][]float64) (*Index, error) {
	if err := checkNames(names); err != nil {
		return nil, err
	}
	if len(tuples) == 0 {
		return nil, fmt.Errorf("sweep: tuple list is empty")
	}
	rev := make([][]float64, len(tuples))
	for i, tup := range tuples {
		if len(tup) != len(names) {
			return nil, fmt.Errorf("sweep: tuple %d has %d values, want %d", i, len(tup), len(names))
		}
		rev[i] = reversed(tup)
	}
	return &Index{names: reversed(names), tuples: rev}, nil
}

// FromProduct builds the full cross product of the given axes.
func FromProduct(axes []Axis) (*Index, error) {
	names := make([]string, len(axes))
	for i, ax := range axes {
		if len(ax.Values) == 0 {
			return nil, fmt.Errorf("sweep: axis %q has no values", ax.Name)
		}
		names[i] = ax.Name
	}
	if err := checkNames(names); err != nil {
		return nil, err
	}
	canon := make([]Axis, len(axes))
	for i, ax := range axes {
		canon[len(axes)-1-i] = ax
	}
	idx := &Index{names: reversed(names)}
	idx.tuples = Product(canon)
	return idx, nil
}

// Product enumerates the cross product of the axes in order, first axis
// outermost.
func Product(axes []Axis) [][]float64 {
	total := 1
	for _, ax := range axes {
		total *= len(ax.Values)
	}
	tuples := make([][]float64, 0, total)
	tup := make([]float64, len(axes))
	var walk func(level int)
	walk = func(level int) {
		if level == len(axes) {
			tuples = append(tuples, append([]float64(nil), tup...))
			return
		}
		for _, v := range axes[level].Values {
			tup[level] = v
			walk(level + 1)
		}
	}
	walk(0)
	return tuples
}

// Names returns the canonical axis names, outermost first.
func (x *Index) Names() []string {
	return append([]string(nil), x.names...)
}

// Len returns the number of runs the index enumerates.
func (x *Index) Len() int {
	return len(x.tuples)
}

// Tuple returns the i-th variable tuple in canonical axis order.
func (x *Index) Tuple(i int) []float64 {
	return append([]float64(nil), x.tuples[i]...)
}

// Tuples returns all variable tuples in canonical axis order.
func (x *Index) Tuples() [][]float64 {
	out := make([][]float64, len(x.tuples))
	for i := range x.tuples {
		out[i] = x.Tuple(i)
	}
	return out
}

// Assignment converts the i-th tuple into a name -> value map.
func (x *Index) Assignment(i int) map[string]float64 {
	vars := make(map[string]float64, len(x.names))
	for j, name := range x.names {
		vars[name] = x.tuples[i][j]
	}
	return vars
}

func checkNames(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("sweep: no axis names given")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("sweep: axis name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("sweep: duplicate axis name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
