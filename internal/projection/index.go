// Package projection maps a query's required columns onto a storage schema
// through a case-insensitive name index.
package projection

import (
	"strings"

	"colbridge/internal/domain"
)

// CanonicalName is the single case-folding rule used at index build and at
// lookup. Locale-sensitive folding is deliberately not attempted.
func CanonicalName(name string) string {
	return strings.ToLower(name)
}

// Index maps lower-cased column names to their position in a storage schema.
// It is never mutated after BuildIndex returns.
type Index struct {
	positions map[string]int
}

// BuildIndex indexes schema by lower-cased column name. Two columns that
// collide once lower-cased fail with *domain.DuplicateColumnError and no
// index is returned.
func BuildIndex(schema domain.StorageSchema) (*Index, error) {
	positions := make(map[string]int, len(schema.Columns))
	for i, col := range schema.Columns {
		key := CanonicalName(col.Name)
		if prev, ok := positions[key]; ok {
			return nil, &domain.DuplicateColumnError{
				Key:            key,
				FirstName:      schema.Columns[prev].Name,
				FirstPosition:  prev,
				SecondName:     col.Name,
				SecondPosition: i,
			}
		}
		positions[key] = i
	}
	return &Index{positions: positions}, nil
}

// Lookup returns the schema position for name, compared case-insensitively.
// A nil index holds no columns.
func (x *Index) Lookup(name string) (int, bool) {
	if x == nil {
		return 0, false
	}
	pos, ok := x.positions[CanonicalName(name)]
	return pos, ok
}

// Len returns the number of indexed columns.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.positions)
}
