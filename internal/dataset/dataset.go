// Dataset model: named groups of result blocks as produced by one simulator
// run. An indexed block carries a table keyed by its independent variables;
// a block without independent variables holds plain scalar values.
package dataset

import (
	"math"
)

// Table is a dense table of dependent columns keyed by independent-variable
// tuples. Values uses NaN for combinations no run has filled.
type Table struct {
	IndexNames []string
	Index      [][]float64
	Columns    []string
	Values     [][]float64
}

// NumRows returns the number of index tuples in the table.
func (t *Table) NumRows() int {
	return len(t.Index)
}

// EmptyRow returns a value row of the table's width filled with NaN.
func (t *Table) EmptyRow() []float64 {
	row := make([]float64, len(t.Columns))
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}

// Block is one logical simulator output. Table is nil for scalar blocks,
// which keep their values in Scalars and are never merged across runs.
type Block struct {
	Name     string
	Metadata map[string]string
	Table    *Table
	Scalars  map[string]float64
}

// IVarNames returns the block's native independent-variable names, or nil
// for a scalar block.
func (b *Block) IVarNames() []string {
	if b.Table == nil {
		return nil
	}
	return b.Table.IndexNames
}

// Indexed reports whether the block carries an indexed table.
func (b *Block) Indexed() bool {
	return b.Table != nil && len(b.Table.IndexNames) > 0
}

// HasVar reports whether the block exposes a column or scalar of that name.
func (b *Block) HasVar(name string) bool {
	if b.Table != nil {
		for _, c := range b.Table.Columns {
			if c == name {
				return true
			}
		}
	}
	_, ok := b.Scalars[name]
	return ok
}

// Group is a named ordered collection of blocks, the unit the simulator
// writes and the reconciliation engine emits.
type Group struct {
	Name   string
	Blocks []*Block
}

// FindBlocksWithVar returns every block exposing a variable of that name,
// in block order.
func (g *Group) FindBlocksWithVar(name string) []*Block {
	var found []*Block
	for _, b := range g.Blocks {
		if b.HasVar(name) {
			found = append(found, b)
		}
	}
	return found
}
