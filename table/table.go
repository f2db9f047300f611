package table

import (
	"errors"
	"fmt"
	"sort"
)

// Common errors for table operations.
var (
	ErrLengthMismatch = errors.New("column length mismatch")
	ErrTypeMismatch   = errors.New("column type mismatch")
)

// Column is one named sequence of per-event values. Scalar columns hold one
// value per event; ragged columns hold one variable-length slice per event.
type Column interface {
	// Len returns the number of events in the column.
	Len() int

	// Mask returns a new column containing only the events where keep is
	// true. len(keep) must equal Len; Table.MaskEvents validates this.
	Mask(keep []bool) Column

	// Concat appends other to this column, returning the combined column.
	Concat(other Column) (Column, error)
}

// Float64s is a scalar float64 column.
type Float64s []float64

func (c Float64s) Len() int { return len(c) }

func (c Float64s) Mask(keep []bool) Column {
	out := make(Float64s, 0, len(c))
	for i, v := range c {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Float64s) Concat(other Column) (Column, error) {
	o, ok := other.(Float64s)
	if !ok {
		return nil, fmt.Errorf("%w: float64 vs %T", ErrTypeMismatch, other)
	}
	return append(append(make(Float64s, 0, len(c)+len(o)), c...), o...), nil
}

// Int64s is a scalar int64 column.
type Int64s []int64

func (c Int64s) Len() int { return len(c) }

func (c Int64s) Mask(keep []bool) Column {
	out := make(Int64s, 0, len(c))
	for i, v := range c {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Int64s) Concat(other Column) (Column, error) {
	o, ok := other.(Int64s)
	if !ok {
		return nil, fmt.Errorf("%w: int64 vs %T", ErrTypeMismatch, other)
	}
	return append(append(make(Int64s, 0, len(c)+len(o)), c...), o...), nil
}

// Strings is a scalar string column.
type Strings []string

func (c Strings) Len() int { return len(c) }

func (c Strings) Mask(keep []bool) Column {
	out := make(Strings, 0, len(c))
	for i, v := range c {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Strings) Concat(other Column) (Column, error) {
	o, ok := other.(Strings)
	if !ok {
		return nil, fmt.Errorf("%w: string vs %T", ErrTypeMismatch, other)
	}
	return append(append(make(Strings, 0, len(c)+len(o)), c...), o...), nil
}

// Bools is a scalar boolean column.
type Bools []bool

func (c Bools) Len() int { return len(c) }

func (c Bools) Mask(keep []bool) Column {
	out := make(Bools, 0, len(c))
	for i, v := range c {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Bools) Concat(other Column) (Column, error) {
	o, ok := other.(Bools)
	if !ok {
		return nil, fmt.Errorf("%w: bool vs %T", ErrTypeMismatch, other)
	}
	return append(append(make(Bools, 0, len(c)+len(o)), c...), o...), nil
}

// Ragged is a variable-length float64 column: one slice per event, lengths
// varying freely including zero.
type Ragged [][]float64

func (c Ragged) Len() int { return len(c) }

func (c Ragged) Mask(keep []bool) Column {
	out := make(Ragged, 0, len(c))
	for i, v := range c {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c Ragged) Concat(other Column) (Column, error) {
	o, ok := other.(Ragged)
	if !ok {
		return nil, fmt.Errorf("%w: ragged vs %T", ErrTypeMismatch, other)
	}
	return append(append(make(Ragged, 0, len(c)+len(o)), c...), o...), nil
}

// Take sub-selects entries within each event according to per-event index
// lists. Applying the same indices to every co-indexed ragged column keeps
// the k-th surviving entry referring to the same physical object everywhere.
func (c Ragged) Take(indices [][]int) (Ragged, error) {
	if len(indices) != len(c) {
		return nil, fmt.Errorf("%w: %d index lists for %d events",
			ErrLengthMismatch, len(indices), len(c))
	}
	out := make(Ragged, len(c))
	for i, idx := range indices {
		row := make([]float64, len(idx))
		for k, j := range idx {
			if j < 0 || j >= len(c[i]) {
				return nil, fmt.Errorf("index %d out of range for event %d (len %d)",
					j, i, len(c[i]))
			}
			row[k] = c[i][j]
		}
		out[i] = row
	}
	return out, nil
}

// Table maps column names to columns. Event-level columns in one table are
// kept at equal length; file-level bookkeeping singletons may sit alongside
// them and are only reconciled at the persistence boundary.
type Table map[string]Column

// Names returns the column names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumEvents returns the common length of all columns, or an error if the
// columns disagree. An empty table has zero events.
func (t Table) NumEvents() (int, error) {
	n := -1
	for _, name := range t.Names() {
		if n < 0 {
			n = t[name].Len()
			continue
		}
		if t[name].Len() != n {
			return 0, fmt.Errorf("%w: column %q has %d events, want %d",
				ErrLengthMismatch, name, t[name].Len(), n)
		}
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// MaskEvents applies keep to every column in a single step, producing a new
// table whose columns all have length equal to the number of surviving
// events. Zero survivors yield valid empty columns.
func (t Table) MaskEvents(keep []bool) (Table, error) {
	for _, name := range t.Names() {
		if t[name].Len() != len(keep) {
			return nil, fmt.Errorf("%w: mask has %d events, column %q has %d",
				ErrLengthMismatch, len(keep), name, t[name].Len())
		}
	}
	out := make(Table, len(t))
	for name, col := range t {
		out[name] = col.Mask(keep)
	}
	return out, nil
}

// Subset returns a new table holding only the named columns. Missing names
// are an error.
func (t Table) Subset(names ...string) (Table, error) {
	out := make(Table, len(names))
	for _, name := range names {
		col, ok := t[name]
		if !ok {
			return nil, fmt.Errorf("no column %q in table", name)
		}
		out[name] = col
	}
	return out, nil
}

// Merge copies all columns of src into t. Duplicate names are an error so a
// derived column can never silently clobber a reader column.
func (t Table) Merge(src Table) error {
	for name, col := range src {
		if _, ok := t[name]; ok {
			return fmt.Errorf("duplicate column %q", name)
		}
		t[name] = col
	}
	return nil
}
