package domain

import "fmt"

// TypeTag is the query engine's semantic type tag.
type TypeTag int

// Engine type tags. TypeArray, TypeMap and TypeStruct exist on the engine
// side only and never cross into storage.
const (
	TypeInvalid TypeTag = iota
	TypeNull
	TypeBoolean
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeChar
	TypeVarchar
	TypeString
	TypeTimestamp
	TypeBinary
	TypeArray
	TypeMap
	TypeStruct
)

var typeTagNames = map[TypeTag]string{
	TypeInvalid:   "INVALID",
	TypeNull:      "NULL",
	TypeBoolean:   "BOOLEAN",
	TypeTinyInt:   "TINYINT",
	TypeSmallInt:  "SMALLINT",
	TypeInt:       "INT",
	TypeBigInt:    "BIGINT",
	TypeFloat:     "FLOAT",
	TypeDouble:    "DOUBLE",
	TypeDecimal:   "DECIMAL",
	TypeChar:      "CHAR",
	TypeVarchar:   "VARCHAR",
	TypeString:    "STRING",
	TypeTimestamp: "TIMESTAMP",
	TypeBinary:    "BINARY",
	TypeArray:     "ARRAY",
	TypeMap:       "MAP",
	TypeStruct:    "STRUCT",
}

func (t TypeTag) String() string {
	if name, ok := typeTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

// Limits on type metadata.
const (
	MaxDecimalPrecision = 38
	MaxCharLength       = 255
	MaxVarcharLength    = 65535
)

// ColumnType is the engine-side column type descriptor. Precision and Scale
// are set only for TypeDecimal, Length only for TypeChar and TypeVarchar.
type ColumnType struct {
	Tag       TypeTag
	Precision int
	Scale     int
	Length    int
}

// Scalar returns the descriptor for a tag that carries no metadata.
func Scalar(tag TypeTag) ColumnType {
	return ColumnType{Tag: tag}
}

// NewDecimal returns a DECIMAL(precision, scale) descriptor.
func NewDecimal(precision, scale int) (ColumnType, error) {
	if precision < 1 || precision > MaxDecimalPrecision {
		return ColumnType{}, ErrValidation("decimal precision %d out of range [1, %d]", precision, MaxDecimalPrecision)
	}
	if scale < 0 || scale > precision {
		return ColumnType{}, ErrValidation("decimal scale %d out of range [0, %d]", scale, precision)
	}
	return ColumnType{Tag: TypeDecimal, Precision: precision, Scale: scale}, nil
}

// NewChar returns a CHAR(length) descriptor.
func NewChar(length int) (ColumnType, error) {
	if length < 1 || length > MaxCharLength {
		return ColumnType{}, ErrValidation("char length %d out of range [1, %d]", length, MaxCharLength)
	}
	return ColumnType{Tag: TypeChar, Length: length}, nil
}

// NewVarchar returns a VARCHAR(length) descriptor.
func NewVarchar(length int) (ColumnType, error) {
	if length < 1 || length > MaxVarcharLength {
		return ColumnType{}, ErrValidation("varchar length %d out of range [1, %d]", length, MaxVarcharLength)
	}
	return ColumnType{Tag: TypeVarchar, Length: length}, nil
}

// String renders the type the way the engine prints it: DECIMAL(p,s),
// CHAR(n), VARCHAR(n), or the bare tag name.
func (c ColumnType) String() string {
	switch c.Tag {
	case TypeDecimal:
		return fmt.Sprintf("%s(%d,%d)", c.Tag, c.Precision, c.Scale)
	case TypeChar, TypeVarchar:
		return fmt.Sprintf("%s(%d)", c.Tag, c.Length)
	default:
		return c.Tag.String()
	}
}

// IsComplex reports whether the type is a nested type.
func (c ColumnType) IsComplex() bool {
	return c.Tag == TypeArray || c.Tag == TypeMap || c.Tag == TypeStruct
}

// EngineColumn is a named engine-side column.
type EngineColumn struct {
	Name string
	Type ColumnType
}
