package engine

import (
	"context"

	"colbridge/internal/domain"
	"colbridge/internal/projection"
	"colbridge/internal/storage"
	"colbridge/internal/typemap"
)

// WriteColumn pairs a source query column with the storage column it fills.
type WriteColumn struct {
	Source domain.EngineColumn
	Target domain.StorageColumn
}

// ValidateWrite checks that the rows of sourceQuery can be written to
// target. Source columns bind to target columns by name, compared
// case-insensitively. It returns the bindings in source order.
func (e *Engine) ValidateWrite(ctx context.Context, sourceQuery string, target *storage.Table) ([]WriteColumn, error) {
	src, err := e.DescribeQuery(ctx, sourceQuery)
	if err != nil {
		return nil, err
	}
	return BindWrite(src, target)
}

// BindWrite binds already-described source columns to target.
func BindWrite(src []domain.EngineColumn, target *storage.Table) ([]WriteColumn, error) {
	seen := make(map[string]string, len(src))
	out := make([]WriteColumn, 0, len(src))
	for _, col := range src {
		key := projection.CanonicalName(col.Name)
		if prev, ok := seen[key]; ok {
			return nil, domain.ErrValidation("source columns %q and %q both write %q", prev, col.Name, key)
		}
		seen[key] = col.Name

		dst, ok := target.Column(col.Name)
		if !ok {
			return nil, &domain.UnknownColumnError{Column: col.Name, Table: target.Name()}
		}
		st, err := typemap.EngineToStorage(col.Type)
		if err != nil {
			return nil, columnError(err, col.Name)
		}
		if err := compatible(col.Name, st, dst.Type); err != nil {
			return nil, err
		}
		out = append(out, WriteColumn{Source: col, Target: dst})
	}

	for _, c := range target.Schema().Columns {
		if _, ok := seen[projection.CanonicalName(c.Name)]; !ok && !c.Nullable {
			return nil, domain.ErrValidation("column %q of %q is not nullable and is not written", c.Name, target.Name())
		}
	}
	return out, nil
}

// compatible reports whether a value of storage type src can be stored in a
// dst column without loss. Types must match, except that a bounded VARCHAR
// may be written into an unbounded STRING. An unbounded STRING is never
// written into a VARCHAR, since its values may exceed the length.
func compatible(column string, src, dst domain.StorageColumnType) error {
	if src.Type == domain.StorageVarchar && dst.Type == domain.StorageString {
		return nil
	}
	if src.Type != dst.Type {
		return domain.ErrValidation("column %q: cannot write %s into %s", column, src, dst)
	}
	switch dst.Type {
	case domain.StorageDecimal:
		if src.Precision != dst.Precision || src.Scale != dst.Scale {
			return domain.ErrValidation("column %q: cannot write %s into %s", column, src, dst)
		}
	case domain.StorageVarchar:
		if src.Length > dst.Length {
			return domain.ErrValidation("column %q: %s is longer than %s", column, src, dst)
		}
	}
	return nil
}
