package flightsql

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// resultSchema describes a statement result. A column whose database type
// has a storage counterpart is served with that storage type's Arrow type
// and carries the storage type name in its metadata; any other column is
// served as text.
func resultSchema(result *QueryResult) *arrow.Schema {
	fields := make([]arrow.Field, len(result.Columns))
	for i, column := range result.Columns {
		name := strings.TrimSpace(column)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
		if i >= len(result.Types) || result.Types[i] == "" {
			continue
		}
		st, err := StorageTypeForSQL(result.Types[i])
		if err != nil {
			continue
		}
		dt, err := ArrowType(st)
		if err != nil {
			continue
		}
		fields[i].Type = dt
		fields[i].Metadata = arrow.NewMetadata([]string{arrowflightsql.TypeNameKey}, []string{st.String()})
	}
	return arrow.NewSchema(fields, nil)
}

// recordFromResult builds a single record holding every row of result.
func recordFromResult(schema *arrow.Schema, result *QueryResult) (arrow.Record, error) {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for r, row := range result.Rows {
		for i := range result.Columns {
			if err := appendValue(b.Field(i), rowValue(row, i)); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, schema.Field(i).Name, err)
			}
		}
	}
	return b.NewRecord(), nil
}

// appendValue appends v to a builder of the column's Arrow type.
func appendValue(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.Int8Builder:
		n, err := asInt64(v, 8)
		if err != nil {
			return err
		}
		b.Append(int8(n))
	case *array.Int16Builder:
		n, err := asInt64(v, 16)
		if err != nil {
			return err
		}
		b.Append(int16(n))
	case *array.Int32Builder:
		n, err := asInt64(v, 32)
		if err != nil {
			return err
		}
		b.Append(int32(n))
	case *array.Int64Builder:
		n, err := asInt64(v, 64)
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.BooleanBuilder:
		switch x := v.(type) {
		case bool:
			b.Append(x)
		case string:
			p, err := strconv.ParseBool(x)
			if err != nil {
				return err
			}
			b.Append(p)
		default:
			return unexpectedValue(v, "BOOLEAN")
		}
	case *array.Float32Builder:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		b.Append(float32(f))
	case *array.Float64Builder:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.StringBuilder:
		switch x := v.(type) {
		case string:
			b.Append(x)
		case []byte:
			b.Append(string(x))
		default:
			b.Append(fmt.Sprintf("%v", x))
		}
	case *array.BinaryBuilder:
		switch x := v.(type) {
		case []byte:
			b.Append(x)
		case string:
			b.AppendString(x)
		default:
			return unexpectedValue(v, "BINARY")
		}
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return unexpectedValue(v, "UNIXTIME_MICROS")
		}
		b.Append(arrow.Timestamp(t.UnixMicro()))
	case *array.Date32Builder:
		t, ok := v.(time.Time)
		if !ok {
			return unexpectedValue(v, "DATE")
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.Decimal128Builder:
		n, err := asDecimal128(v, b.Type().(*arrow.Decimal128Type))
		if err != nil {
			return err
		}
		b.Append(n)
	default:
		return fmt.Errorf("no value conversion for arrow type %s", b.Type())
	}
	return nil
}

func asInt64(v interface{}, bits int) (int64, error) {
	switch x := v.(type) {
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, bits)
	}
	return 0, unexpectedValue(v, fmt.Sprintf("INT%d", bits))
}

func asFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, unexpectedValue(v, "DOUBLE")
}

// asDecimal128 accepts an unscaled value already at the column's scale, or
// the decimal's text form.
func asDecimal128(v interface{}, dt *arrow.Decimal128Type) (decimal128.Num, error) {
	switch x := v.(type) {
	case decimal128.Num:
		return x, nil
	case *big.Int:
		return decimal128.FromBigInt(x), nil
	case string:
		return decimal128.FromString(x, dt.Precision, dt.Scale)
	}
	return decimal128.Num{}, unexpectedValue(v, dt.String())
}

func unexpectedValue(v interface{}, want string) error {
	return fmt.Errorf("cannot serve %T value as %s", v, want)
}
