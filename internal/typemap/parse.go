package typemap

import (
	"regexp"
	"strconv"
	"strings"

	"colbridge/internal/domain"
)

// typeNamePattern splits "NAME" or "NAME(args)" with optional whitespace.
var typeNamePattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_ ]*?)\s*(?:\(\s*([^()]*?)\s*\))?$`)

// DuckDB decimal default when no precision is given.
const (
	defaultDecimalPrecision = 18
	defaultDecimalScale     = 3
)

var engineAliases = map[string]domain.TypeTag{
	"NULL":         domain.TypeNull,
	"BOOLEAN":      domain.TypeBoolean,
	"BOOL":         domain.TypeBoolean,
	"LOGICAL":      domain.TypeBoolean,
	"TINYINT":      domain.TypeTinyInt,
	"INT1":         domain.TypeTinyInt,
	"SMALLINT":     domain.TypeSmallInt,
	"INT2":         domain.TypeSmallInt,
	"SHORT":        domain.TypeSmallInt,
	"INTEGER":      domain.TypeInt,
	"INT":          domain.TypeInt,
	"INT4":         domain.TypeInt,
	"SIGNED":       domain.TypeInt,
	"BIGINT":       domain.TypeBigInt,
	"INT8":         domain.TypeBigInt,
	"LONG":         domain.TypeBigInt,
	"FLOAT":        domain.TypeFloat,
	"FLOAT4":       domain.TypeFloat,
	"REAL":         domain.TypeFloat,
	"DOUBLE":       domain.TypeDouble,
	"FLOAT8":       domain.TypeDouble,
	"DECIMAL":      domain.TypeDecimal,
	"NUMERIC":      domain.TypeDecimal,
	"CHAR":         domain.TypeChar,
	"BPCHAR":       domain.TypeChar,
	"VARCHAR":      domain.TypeVarchar,
	"TEXT":         domain.TypeString,
	"STRING":       domain.TypeString,
	"TIMESTAMP":    domain.TypeTimestamp,
	"DATETIME":     domain.TypeTimestamp,
	"TIMESTAMP_US": domain.TypeTimestamp,
	"BLOB":         domain.TypeBinary,
	"BYTEA":        domain.TypeBinary,
	"BINARY":       domain.TypeBinary,
	"VARBINARY":    domain.TypeBinary,
	"LIST":         domain.TypeArray,
	"ARRAY":        domain.TypeArray,
	"MAP":          domain.TypeMap,
	"STRUCT":       domain.TypeStruct,
}

// ParseEngineType parses a DuckDB type spelling such as "INTEGER",
// "DECIMAL(10,2)", "VARCHAR(20)" or "INTEGER[]". DuckDB types that the
// engine type system cannot represent fail with *domain.UnsupportedTypeError.
func ParseEngineType(s string) (domain.ColumnType, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return domain.ColumnType{}, domain.ErrValidation("empty type name")
	}
	if strings.HasSuffix(raw, "]") {
		return domain.Scalar(domain.TypeArray), nil
	}
	upper := strings.ToUpper(raw)
	for _, prefix := range []string{"STRUCT", "MAP", "UNION"} {
		if strings.HasPrefix(upper, prefix+"(") || strings.HasPrefix(upper, prefix+" (") {
			if prefix == "UNION" {
				return domain.ColumnType{}, &domain.UnsupportedTypeError{Engine: raw}
			}
			return domain.Scalar(engineAliases[prefix]), nil
		}
	}

	name, args, err := splitTypeName(raw)
	if err != nil {
		return domain.ColumnType{}, err
	}
	tag, ok := engineAliases[name]
	if !ok {
		return domain.ColumnType{}, &domain.UnsupportedTypeError{Engine: raw}
	}

	switch tag {
	case domain.TypeDecimal:
		if len(args) == 0 {
			return domain.NewDecimal(defaultDecimalPrecision, defaultDecimalScale)
		}
		if len(args) == 1 {
			return domain.NewDecimal(args[0], 0)
		}
		if len(args) != 2 {
			return domain.ColumnType{}, domain.ErrValidation("invalid decimal type %q", raw)
		}
		return domain.NewDecimal(args[0], args[1])
	case domain.TypeChar:
		if len(args) == 0 {
			return domain.NewChar(1)
		}
		if len(args) != 1 {
			return domain.ColumnType{}, domain.ErrValidation("invalid char type %q", raw)
		}
		return domain.NewChar(args[0])
	case domain.TypeVarchar:
		// DuckDB reports unbounded VARCHAR without a length.
		if len(args) == 0 {
			return domain.Scalar(domain.TypeString), nil
		}
		if len(args) != 1 {
			return domain.ColumnType{}, domain.ErrValidation("invalid varchar type %q", raw)
		}
		return domain.NewVarchar(args[0])
	}
	if len(args) != 0 {
		return domain.ColumnType{}, domain.ErrValidation("type %s takes no arguments: %q", name, raw)
	}
	return domain.Scalar(tag), nil
}

var storageNames = func() map[string]domain.StorageType {
	m := make(map[string]domain.StorageType, len(storageTypeOrder))
	for _, t := range storageTypeOrder {
		m[t.String()] = t
	}
	return m
}()

var storageTypeOrder = []domain.StorageType{
	domain.StorageInt8, domain.StorageInt16, domain.StorageInt32, domain.StorageInt64,
	domain.StorageString, domain.StorageBool, domain.StorageFloat, domain.StorageDouble,
	domain.StorageBinary, domain.StorageUnixtimeMicros, domain.StorageDecimal,
	domain.StorageVarchar, domain.StorageDate,
}

// ParseStorageType parses a storage type spelling such as "INT32",
// "DECIMAL(10,2)" or "VARCHAR(20)".
func ParseStorageType(s string) (domain.StorageColumnType, error) {
	raw := strings.TrimSpace(s)
	name, args, err := splitTypeName(raw)
	if err != nil {
		return domain.StorageColumnType{}, err
	}
	st, ok := storageNames[name]
	if !ok {
		return domain.StorageColumnType{}, domain.ErrValidation("unknown storage type %q", raw)
	}
	switch st {
	case domain.StorageDecimal:
		if len(args) != 2 {
			return domain.StorageColumnType{}, domain.ErrValidation("storage type %q needs precision and scale", raw)
		}
		if _, err := domain.NewDecimal(args[0], args[1]); err != nil {
			return domain.StorageColumnType{}, err
		}
		return domain.StorageColumnType{Type: st, Precision: args[0], Scale: args[1]}, nil
	case domain.StorageVarchar:
		if len(args) != 1 {
			return domain.StorageColumnType{}, domain.ErrValidation("storage type %q needs a length", raw)
		}
		if _, err := domain.NewVarchar(args[0]); err != nil {
			return domain.StorageColumnType{}, err
		}
		return domain.StorageColumnType{Type: st, Length: args[0]}, nil
	}
	if len(args) != 0 {
		return domain.StorageColumnType{}, domain.ErrValidation("storage type %s takes no arguments: %q", name, raw)
	}
	return domain.StorageColumnType{Type: st}, nil
}

// splitTypeName returns the upper-cased base name and integer arguments.
func splitTypeName(raw string) (string, []int, error) {
	m := typeNamePattern.FindStringSubmatch(raw)
	if m == nil {
		return "", nil, domain.ErrValidation("malformed type %q", raw)
	}
	name := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
	if m[2] == "" {
		return name, nil, nil
	}
	parts := strings.Split(m[2], ",")
	args := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", nil, domain.ErrValidation("malformed type argument %q in %q", p, raw)
		}
		args[i] = n
	}
	return name, args, nil
}
