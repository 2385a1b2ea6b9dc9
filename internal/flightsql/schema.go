package flightsql

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"

	"colbridge/internal/domain"
	"colbridge/internal/typemap"
)

// ArrowType returns the Arrow type that carries values of a storage type.
// VARCHAR shares the String type; its length travels in field metadata.
func ArrowType(t domain.StorageColumnType) (arrow.DataType, error) {
	switch t.Type {
	case domain.StorageInt8:
		return arrow.PrimitiveTypes.Int8, nil
	case domain.StorageInt16:
		return arrow.PrimitiveTypes.Int16, nil
	case domain.StorageInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case domain.StorageInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case domain.StorageBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case domain.StorageFloat:
		return arrow.PrimitiveTypes.Float32, nil
	case domain.StorageDouble:
		return arrow.PrimitiveTypes.Float64, nil
	case domain.StorageString, domain.StorageVarchar:
		return arrow.BinaryTypes.String, nil
	case domain.StorageBinary:
		return arrow.BinaryTypes.Binary, nil
	case domain.StorageUnixtimeMicros:
		return &arrow.TimestampType{Unit: arrow.Microsecond}, nil
	case domain.StorageDecimal:
		return &arrow.Decimal128Type{Precision: int32(t.Precision), Scale: int32(t.Scale)}, nil
	case domain.StorageDate:
		return arrow.FixedWidthTypes.Date32, nil
	}
	return nil, &domain.UnsupportedTypeError{Storage: t.String()}
}

// StorageTypeFromArrow is the inverse of ArrowType. Without a length hint a
// string field is an unbounded STRING.
func StorageTypeFromArrow(dt arrow.DataType) (domain.StorageColumnType, error) {
	switch dt.ID() {
	case arrow.INT8:
		return domain.StorageColumnType{Type: domain.StorageInt8}, nil
	case arrow.INT16:
		return domain.StorageColumnType{Type: domain.StorageInt16}, nil
	case arrow.INT32:
		return domain.StorageColumnType{Type: domain.StorageInt32}, nil
	case arrow.INT64:
		return domain.StorageColumnType{Type: domain.StorageInt64}, nil
	case arrow.BOOL:
		return domain.StorageColumnType{Type: domain.StorageBool}, nil
	case arrow.FLOAT32:
		return domain.StorageColumnType{Type: domain.StorageFloat}, nil
	case arrow.FLOAT64:
		return domain.StorageColumnType{Type: domain.StorageDouble}, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return domain.StorageColumnType{Type: domain.StorageString}, nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return domain.StorageColumnType{Type: domain.StorageBinary}, nil
	case arrow.TIMESTAMP:
		if ts, ok := dt.(*arrow.TimestampType); ok && ts.Unit == arrow.Microsecond {
			return domain.StorageColumnType{Type: domain.StorageUnixtimeMicros}, nil
		}
	case arrow.DECIMAL128:
		if dec, ok := dt.(*arrow.Decimal128Type); ok {
			return domain.StorageColumnType{Type: domain.StorageDecimal, Precision: int(dec.Precision), Scale: int(dec.Scale)}, nil
		}
	case arrow.DATE32:
		return domain.StorageColumnType{Type: domain.StorageDate}, nil
	}
	return domain.StorageColumnType{}, &domain.UnsupportedTypeError{Storage: "arrow " + dt.String()}
}

// ToArrowSchema encodes a storage schema as an Arrow schema. Each field
// carries the Flight SQL column metadata keys; TypeNameKey holds the exact
// storage type so VARCHAR lengths survive the trip.
func ToArrowSchema(schema domain.StorageSchema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(schema.Columns))
	for i, col := range schema.Columns {
		dt, err := ArrowType(col.Type)
		if err != nil {
			return nil, withColumn(err, col.Name)
		}
		precision, scale := col.Type.Precision, col.Type.Scale
		if col.Type.Type == domain.StorageVarchar {
			// JDBC column size semantics: precision is the character length.
			precision = col.Type.Length
		}
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     dt,
			Nullable: col.Nullable,
			Metadata: arrow.NewMetadata(
				[]string{
					arrowflightsql.TableNameKey,
					arrowflightsql.TypeNameKey,
					arrowflightsql.PrecisionKey,
					arrowflightsql.ScaleKey,
					arrowflightsql.IsCaseSensitiveKey,
					arrowflightsql.IsReadOnlyKey,
				},
				[]string{
					schema.Table,
					col.Type.String(),
					strconv.Itoa(precision),
					strconv.Itoa(scale),
					boolAsFlag(isCaseSensitiveType(col.Type.Type)),
					"1",
				},
			),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromArrowSchema decodes an Arrow schema produced by the storage service.
// When a field carries a storage type name it wins over the Arrow type.
func FromArrowSchema(table string, schema *arrow.Schema) (domain.StorageSchema, error) {
	out := domain.StorageSchema{Table: table, Columns: make([]domain.StorageColumn, 0, schema.NumFields())}
	for _, f := range schema.Fields() {
		t, err := fieldStorageType(f)
		if err != nil {
			return domain.StorageSchema{}, withColumn(err, f.Name)
		}
		out.Columns = append(out.Columns, domain.StorageColumn{Name: f.Name, Type: t, Nullable: f.Nullable})
	}
	return out, nil
}

func fieldStorageType(f arrow.Field) (domain.StorageColumnType, error) {
	if name, ok := metadataValue(f.Metadata, arrowflightsql.TypeNameKey); ok && name != "" {
		if t, err := typemap.ParseStorageType(name); err == nil {
			return t, nil
		}
	}
	t, err := StorageTypeFromArrow(f.Type)
	if err != nil {
		return t, err
	}
	if t.Type == domain.StorageString {
		if p, ok := metadataValue(f.Metadata, arrowflightsql.PrecisionKey); ok {
			if n, err := strconv.Atoi(p); err == nil && n > 0 && n <= domain.MaxVarcharLength {
				t = domain.StorageColumnType{Type: domain.StorageVarchar, Length: n}
			}
		}
	}
	return t, nil
}

func metadataValue(md arrow.Metadata, key string) (string, bool) {
	i := md.FindKey(key)
	if i < 0 {
		return "", false
	}
	return md.Values()[i], true
}

func withColumn(err error, column string) error {
	if ute, ok := err.(*domain.UnsupportedTypeError); ok {
		cp := *ute
		cp.Column = column
		return &cp
	}
	return err
}

func isCaseSensitiveType(t domain.StorageType) bool {
	return t == domain.StorageString || t == domain.StorageVarchar
}

func boolAsFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
