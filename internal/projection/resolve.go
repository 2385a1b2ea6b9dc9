package projection

import (
	"colbridge/internal/domain"
)

// Resolve maps each required column, in the order given, to the storage
// schema's own spelling of that column. The output order is the scan's
// output order, so columns are never reordered or deduplicated. A column
// missing from the index fails the whole call with *domain.UnknownColumnError.
// A nil index is a *domain.ValidationError.
func Resolve(required []domain.RequiredColumn, idx *Index, schema domain.StorageSchema) (domain.ProjectionList, error) {
	if idx == nil {
		return nil, errNoIndex(schema)
	}
	out := make(domain.ProjectionList, 0, len(required))
	for _, rc := range required {
		pos, ok := idx.Lookup(rc.Name)
		if !ok || pos >= len(schema.Columns) {
			return nil, &domain.UnknownColumnError{Column: rc.Name, Table: schema.Table}
		}
		out = append(out, schema.Columns[pos].Name)
	}
	return out, nil
}

// Positions is like Resolve but returns schema positions instead of names.
func Positions(required []domain.RequiredColumn, idx *Index, schema domain.StorageSchema) ([]int, error) {
	if idx == nil {
		return nil, errNoIndex(schema)
	}
	out := make([]int, 0, len(required))
	for _, rc := range required {
		pos, ok := idx.Lookup(rc.Name)
		if !ok || pos >= len(schema.Columns) {
			return nil, &domain.UnknownColumnError{Column: rc.Name, Table: schema.Table}
		}
		out = append(out, pos)
	}
	return out, nil
}

func errNoIndex(schema domain.StorageSchema) error {
	return domain.ErrValidation("no column index built for table %q", schema.Table)
}
