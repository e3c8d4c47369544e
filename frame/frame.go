package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/db"
)

// Query runs a statement and collects the full result set into an
// Arrow record. Column types are inferred from the first non-NULL
// value per column; all-NULL columns default to utf8. The caller
// releases the record.
func Query(conn *db.Connection, query string, params ...any) (arrow.Record, error) {
	cur := conn.Cursor()
	defer cur.Close()

	if err := cur.Execute(query, params...); err != nil {
		return nil, err
	}

	columns := cur.Columns()
	if columns == nil {
		return nil, fmt.Errorf("statement produced no result set")
	}

	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}

	schema := inferSchema(columns, rows)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	for _, row := range rows {
		for i, v := range row {
			if err := appendValue(bldr.Field(i), v); err != nil {
				return nil, fmt.Errorf("column %s: %w", columns[i], err)
			}
		}
	}

	return bldr.NewRecord(), nil
}

func inferSchema(columns []string, rows []core.Row) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}

		for _, row := range rows {
			if row[i].IsNull() {
				continue
			}
			fields[i].Type = arrowType(row[i].Type)
			break
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t core.Type) arrow.DataType {
	switch t {
	case core.IntegerType:
		return arrow.PrimitiveTypes.Int64
	case core.FloatType:
		return arrow.PrimitiveTypes.Float64
	case core.BlobType:
		return arrow.BinaryTypes.Binary
	case core.BoolType:
		return arrow.FixedWidthTypes.Boolean
	case core.TimestampType:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, v core.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}

	switch fb := b.(type) {
	case *array.Int64Builder:
		switch v.Type {
		case core.IntegerType:
			fb.Append(v.Int)
		case core.BoolType:
			if v.Bool {
				fb.Append(1)
			} else {
				fb.Append(0)
			}
		default:
			return fmt.Errorf("cannot store %s value in an integer column", v.Type)
		}

	case *array.Float64Builder:
		switch v.Type {
		case core.FloatType:
			fb.Append(v.Float)
		case core.IntegerType:
			fb.Append(float64(v.Int))
		default:
			return fmt.Errorf("cannot store %s value in a float column", v.Type)
		}

	case *array.StringBuilder:
		fb.Append(v.String())

	case *array.BinaryBuilder:
		switch v.Type {
		case core.BlobType:
			fb.Append(v.Blob)
		case core.TextType:
			fb.Append([]byte(v.Text))
		default:
			return fmt.Errorf("cannot store %s value in a binary column", v.Type)
		}

	case *array.BooleanBuilder:
		switch v.Type {
		case core.BoolType:
			fb.Append(v.Bool)
		case core.IntegerType:
			fb.Append(v.Int != 0)
		default:
			return fmt.Errorf("cannot store %s value in a boolean column", v.Type)
		}

	case *array.TimestampBuilder:
		if v.Type != core.TimestampType {
			return fmt.Errorf("cannot store %s value in a timestamp column", v.Type)
		}
		ts, err := arrow.TimestampFromTime(v.Time, arrow.Microsecond)
		if err != nil {
			return err
		}
		fb.Append(ts)

	default:
		return fmt.Errorf("unsupported column builder %T", b)
	}

	return nil
}

// recordValue extracts one cell as a driver-bindable value.
func recordValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch c := col.(type) {
	case *array.Int64:
		return c.Value(i), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.String:
		return c.Value(i), nil
	case *array.Binary:
		return c.Value(i), nil
	case *array.Boolean:
		return c.Value(i), nil
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.DataType())
	}
}
