// Package typemap converts column type descriptors between the query
// engine's type system and the storage engine's type enum.
package typemap

import (
	"errors"

	"colbridge/internal/domain"
)

// engineToStorage holds the tags that map without carrying metadata.
var engineToStorage = map[domain.TypeTag]domain.StorageType{
	domain.TypeBoolean:   domain.StorageBool,
	domain.TypeTinyInt:   domain.StorageInt8,
	domain.TypeSmallInt:  domain.StorageInt16,
	domain.TypeInt:       domain.StorageInt32,
	domain.TypeBigInt:    domain.StorageInt64,
	domain.TypeFloat:     domain.StorageFloat,
	domain.TypeDouble:    domain.StorageDouble,
	domain.TypeString:    domain.StorageString,
	domain.TypeTimestamp: domain.StorageUnixtimeMicros,
	domain.TypeBinary:    domain.StorageBinary,
}

var storageToEngine = map[domain.StorageType]domain.TypeTag{
	domain.StorageBool:           domain.TypeBoolean,
	domain.StorageInt8:           domain.TypeTinyInt,
	domain.StorageInt16:          domain.TypeSmallInt,
	domain.StorageInt32:          domain.TypeInt,
	domain.StorageInt64:          domain.TypeBigInt,
	domain.StorageFloat:          domain.TypeFloat,
	domain.StorageDouble:         domain.TypeDouble,
	domain.StorageString:         domain.TypeString,
	domain.StorageUnixtimeMicros: domain.TypeTimestamp,
	domain.StorageBinary:         domain.TypeBinary,
}

// EngineToStorage converts an engine column type to its storage type.
// CHAR(n) becomes VARCHAR(n): storage does not enforce fixed length, so
// padding stays an engine concern.
func EngineToStorage(t domain.ColumnType) (domain.StorageColumnType, error) {
	if st, ok := engineToStorage[t.Tag]; ok {
		return domain.StorageColumnType{Type: st}, nil
	}
	switch t.Tag {
	case domain.TypeDecimal:
		return domain.StorageColumnType{Type: domain.StorageDecimal, Precision: t.Precision, Scale: t.Scale}, nil
	case domain.TypeChar, domain.TypeVarchar:
		return domain.StorageColumnType{Type: domain.StorageVarchar, Length: t.Length}, nil
	}
	return domain.StorageColumnType{}, &domain.UnsupportedTypeError{Engine: t.String()}
}

// StorageToEngine converts a storage column type to the engine type that
// represents it.
func StorageToEngine(t domain.StorageColumnType) (domain.ColumnType, error) {
	if tag, ok := storageToEngine[t.Type]; ok {
		return domain.ColumnType{Tag: tag}, nil
	}
	switch t.Type {
	case domain.StorageDecimal:
		return domain.ColumnType{Tag: domain.TypeDecimal, Precision: t.Precision, Scale: t.Scale}, nil
	case domain.StorageVarchar:
		return domain.ColumnType{Tag: domain.TypeVarchar, Length: t.Length}, nil
	}
	return domain.ColumnType{}, &domain.UnsupportedTypeError{Storage: t.String()}
}

// EngineColumns translates a whole storage schema into engine columns,
// preserving order. The first unsupported column fails the call.
func EngineColumns(schema domain.StorageSchema) ([]domain.EngineColumn, error) {
	cols := make([]domain.EngineColumn, len(schema.Columns))
	for i, c := range schema.Columns {
		t, err := StorageToEngine(c.Type)
		if err != nil {
			return nil, withColumn(err, c.Name)
		}
		cols[i] = domain.EngineColumn{Name: c.Name, Type: t}
	}
	return cols, nil
}

// StorageColumns translates engine columns into storage columns, e.g. when
// declaring a new table. Columns are nullable unless the caller says
// otherwise.
func StorageColumns(cols []domain.EngineColumn) ([]domain.StorageColumn, error) {
	out := make([]domain.StorageColumn, len(cols))
	for i, c := range cols {
		t, err := EngineToStorage(c.Type)
		if err != nil {
			return nil, withColumn(err, c.Name)
		}
		out[i] = domain.StorageColumn{Name: c.Name, Type: t, Nullable: true}
	}
	return out, nil
}

func withColumn(err error, column string) error {
	var ute *domain.UnsupportedTypeError
	if errors.As(err, &ute) {
		cp := *ute
		cp.Column = column
		return &cp
	}
	return err
}
