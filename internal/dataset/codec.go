package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedType marks a request for an output format outside the
// allow-list. It is a configuration error and fatal before any run starts.
var ErrUnsupportedType = errors.New("dataset: unsupported output type")

// WriteableTypes lists the serialization formats WriteFile accepts.
var WriteableTypes = []string{"json", "jsonl", "csv"}

// TypeExt maps an output type to its default file extension.
var TypeExt = map[string]string{
	"json":  ".json",
	"jsonl": ".jsonl",
	"csv":   ".csv",
}

// CheckWriteableType validates typ against the allow-list.
func CheckWriteableType(typ string) error {
	for _, t := range WriteableTypes {
		if t == typ {
			return nil
		}
	}
	return fmt.Errorf("%w %q, allowed types are %s", ErrUnsupportedType, typ,
		strings.Join(WriteableTypes[:len(WriteableTypes)-1], ", ")+" and "+WriteableTypes[len(WriteableTypes)-1])
}

// WriteFile serializes the group to path in the requested format.
func WriteFile(g *Group, path, typ string) error {
	if err := CheckWriteableType(typ); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	switch typ {
	case "json":
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(groupToWire(g))
	case "jsonl":
		return writeJSONL(f, g)
	case "csv":
		return writeCSV(f, g)
	}
	return nil
}

// ReadFile parses a group from the native JSON dataset format. Any parse
// failure is the recoverable read-error class handled per run.
func ReadFile(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	var wg wireGroup
	if err := json.Unmarshal(data, &wg); err != nil {
		return nil, fmt.Errorf("dataset: parsing %s: %w", path, err)
	}
	return wireToGroup(&wg)
}

// Wire form of the native JSON format. NaN is not representable in JSON, so
// empty values travel as null.
type wireGroup struct {
	Name   string      `json:"name"`
	Blocks []wireBlock `json:"blocks"`
}

type wireBlock struct {
	Name      string             `json:"name"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
	IVarNames []string           `json:"ivarnames,omitempty"`
	Index     [][]float64        `json:"index,omitempty"`
	Columns   []string           `json:"columns,omitempty"`
	Values    [][]*float64       `json:"values,omitempty"`
	Scalars   map[string]float64 `json:"scalars,omitempty"`
}

func groupToWire(g *Group) *wireGroup {
	wg := &wireGroup{Name: g.Name}
	for _, b := range g.Blocks {
		wb := wireBlock{Name: b.Name, Metadata: b.Metadata, Scalars: b.Scalars}
		if b.Table != nil {
			wb.IVarNames = b.Table.IndexNames
			wb.Index = b.Table.Index
			wb.Columns = b.Table.Columns
			wb.Values = make([][]*float64, len(b.Table.Values))
			for i, row := range b.Table.Values {
				wb.Values[i] = make([]*float64, len(row))
				for j := range row {
					if !math.IsNaN(row[j]) {
						v := row[j]
						wb.Values[i][j] = &v
					}
				}
			}
		}
		wg.Blocks = append(wg.Blocks, wb)
	}
	return wg
}

func wireToGroup(wg *wireGroup) (*Group, error) {
	g := &Group{Name: wg.Name}
	for _, wb := range wg.Blocks {
		b := &Block{Name: wb.Name, Metadata: wb.Metadata, Scalars: wb.Scalars}
		if len(wb.Columns) > 0 || len(wb.IVarNames) > 0 {
			if len(wb.Values) != len(wb.Index) {
				return nil, fmt.Errorf("dataset: block %q has %d value rows for %d index tuples", wb.Name, len(wb.Values), len(wb.Index))
			}
			tbl := &Table{IndexNames: wb.IVarNames, Index: wb.Index, Columns: wb.Columns}
			for i, row := range wb.Values {
				if len(row) != len(wb.Columns) {
					return nil, fmt.Errorf("dataset: block %q row %d has %d values for %d columns", wb.Name, i, len(row), len(wb.Columns))
				}
				vals := make([]float64, len(row))
				for j, p := range row {
					if p == nil {
						vals[j] = math.NaN()
					} else {
						vals[j] = *p
					}
				}
				tbl.Values = append(tbl.Values, vals)
			}
			for i, tup := range wb.Index {
				if len(tup) != len(wb.IVarNames) {
					return nil, fmt.Errorf("dataset: block %q index tuple %d has %d levels for %d index names", wb.Name, i, len(tup), len(wb.IVarNames))
				}
			}
			b.Table = tbl
		}
		g.Blocks = append(g.Blocks, b)
	}
	return g, nil
}

// writeJSONL emits one JSON object per table row, tagged with the block
// name, plus one object per scalar block.
func writeJSONL(f *os.File, g *Group) error {
	enc := json.NewEncoder(f)
	for _, b := range g.Blocks {
		if b.Table == nil {
			if err := enc.Encode(map[string]any{"block": b.Name, "scalars": b.Scalars}); err != nil {
				return err
			}
			continue
		}
		for i, tup := range b.Table.Index {
			row := map[string]any{"block": b.Name}
			for j, name := range b.Table.IndexNames {
				row[name] = tup[j]
			}
			for j, col := range b.Table.Columns {
				if math.IsNaN(b.Table.Values[i][j]) {
					row[col] = nil
				} else {
					row[col] = b.Table.Values[i][j]
				}
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeCSV emits each block as a titled section: a "block,<name>" record,
// a header record, then the data rows. Empty values become empty fields.
func writeCSV(f *os.File, g *Group) error {
	w := csv.NewWriter(f)
	defer w.Flush()
	for _, b := range g.Blocks {
		if err := w.Write([]string{"block", b.Name}); err != nil {
			return err
		}
		if b.Table == nil {
			names := make([]string, 0, len(b.Scalars))
			for name := range b.Scalars {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := w.Write([]string{name, formatCSV(b.Scalars[name])}); err != nil {
					return err
				}
			}
			continue
		}
		header := append(append([]string{}, b.Table.IndexNames...), b.Table.Columns...)
		if err := w.Write(header); err != nil {
			return err
		}
		for i, tup := range b.Table.Index {
			rec := make([]string, 0, len(header))
			for _, v := range tup {
				rec = append(rec, formatCSV(v))
			}
			for _, v := range b.Table.Values[i] {
				if math.IsNaN(v) {
					rec = append(rec, "")
				} else {
					rec = append(rec, formatCSV(v))
				}
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func formatCSV(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
