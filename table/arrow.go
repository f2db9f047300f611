package table

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// fieldOf maps a column to its Arrow field. Ragged columns become
// list<float64> so per-event object collections survive persistence.
func fieldOf(name string, col Column) (arrow.Field, error) {
	var typ arrow.DataType
	switch col.(type) {
	case Float64s:
		typ = arrow.PrimitiveTypes.Float64
	case Int64s:
		typ = arrow.PrimitiveTypes.Int64
	case Strings:
		typ = arrow.BinaryTypes.String
	case Bools:
		typ = arrow.FixedWidthTypes.Boolean
	case Ragged:
		typ = arrow.ListOf(arrow.PrimitiveTypes.Float64)
	default:
		return arrow.Field{}, fmt.Errorf("column %q: unsupported type %T", name, col)
	}
	return arrow.Field{Name: name, Type: typ, Nullable: false}, nil
}

// Schema returns the Arrow schema for the table, fields sorted by name so
// records built from the same table are deterministic.
func (t Table) Schema() (*arrow.Schema, error) {
	names := t.Names()
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		f, err := fieldOf(name, t[name])
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord builds an Arrow record holding all columns of the table. Every
// column must have the same length; the caller releases the record.
func (t Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if _, err := t.NumEvents(); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema, err := t.Schema()
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for i, name := range t.Names() {
		if err := appendColumn(builder.Field(i), t[name]); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	}
	return builder.NewRecord(), nil
}

func appendColumn(b array.Builder, col Column) error {
	switch c := col.(type) {
	case Float64s:
		b.(*array.Float64Builder).AppendValues(c, nil)
	case Int64s:
		b.(*array.Int64Builder).AppendValues(c, nil)
	case Strings:
		b.(*array.StringBuilder).AppendValues(c, nil)
	case Bools:
		b.(*array.BooleanBuilder).AppendValues(c, nil)
	case Ragged:
		lb := b.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		for _, row := range c {
			lb.Append(true)
			vb.AppendValues(row, nil)
		}
	default:
		return fmt.Errorf("unsupported column type %T", col)
	}
	return nil
}

// FromRecord converts an Arrow record back into a table, reading at most
// limit rows (limit <= 0 means all rows). Only the column shapes produced by
// ToRecord are accepted.
func FromRecord(rec arrow.Record, limit int) (Table, error) {
	rows := int(rec.NumRows())
	if limit > 0 && limit < rows {
		rows = limit
	}

	out := make(Table, int(rec.NumCols()))
	for i := 0; i < int(rec.NumCols()); i++ {
		name := rec.ColumnName(i)
		col, err := fromArray(rec.Column(i), rows)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		out[name] = col
	}
	return out, nil
}

func fromArray(arr arrow.Array, rows int) (Column, error) {
	switch a := arr.(type) {
	case *array.Float64:
		out := make(Float64s, rows)
		copy(out, a.Float64Values()[:rows])
		return out, nil
	case *array.Int64:
		out := make(Int64s, rows)
		copy(out, a.Int64Values()[:rows])
		return out, nil
	case *array.String:
		out := make(Strings, rows)
		for i := range out {
			out[i] = a.Value(i)
		}
		return out, nil
	case *array.Boolean:
		out := make(Bools, rows)
		for i := range out {
			out[i] = a.Value(i)
		}
		return out, nil
	case *array.List:
		values, ok := a.ListValues().(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("unsupported list value type %T", a.ListValues())
		}
		out := make(Ragged, rows)
		for i := range out {
			start, end := a.ValueOffsets(i)
			row := make([]float64, end-start)
			for j := range row {
				row[j] = values.Value(int(start) + j)
			}
			out[i] = row
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported array type %T", arr)
	}
}
