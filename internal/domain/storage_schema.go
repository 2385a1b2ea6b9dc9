package domain

import "fmt"

// StorageType is the storage engine's column type enum. Values match the
// storage service's wire numbering.
type StorageType int

const (
	StorageInt8 StorageType = iota
	StorageInt16
	StorageInt32
	StorageInt64
	StorageString
	StorageBool
	StorageFloat
	StorageDouble
	StorageBinary
	StorageUnixtimeMicros
	StorageDecimal
	StorageVarchar
	StorageDate
)

var storageTypeNames = map[StorageType]string{
	StorageInt8:           "INT8",
	StorageInt16:          "INT16",
	StorageInt32:          "INT32",
	StorageInt64:          "INT64",
	StorageString:         "STRING",
	StorageBool:           "BOOL",
	StorageFloat:          "FLOAT",
	StorageDouble:         "DOUBLE",
	StorageBinary:         "BINARY",
	StorageUnixtimeMicros: "UNIXTIME_MICROS",
	StorageDecimal:        "DECIMAL",
	StorageVarchar:        "VARCHAR",
	StorageDate:           "DATE",
}

func (t StorageType) String() string {
	if name, ok := storageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("StorageType(%d)", int(t))
}

// StorageColumnType is a storage type plus its type attributes.
type StorageColumnType struct {
	Type      StorageType
	Precision int
	Scale     int
	Length    int
}

func (c StorageColumnType) String() string {
	switch c.Type {
	case StorageDecimal:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.Precision, c.Scale)
	case StorageVarchar:
		return fmt.Sprintf("%s(%d)", c.Type, c.Length)
	default:
		return c.Type.String()
	}
}

// StorageColumn is one entry of a storage schema.
type StorageColumn struct {
	Name     string
	Type     StorageColumnType
	Nullable bool
}

// StorageSchema is the ordered column list reported by the storage engine.
// Column order is the storage engine's physical order.
type StorageSchema struct {
	Table   string
	Columns []StorageColumn
}

// Len returns the number of columns.
func (s StorageSchema) Len() int { return len(s.Columns) }

// Names returns the column names in physical order.
func (s StorageSchema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
