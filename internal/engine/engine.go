// Package engine is the query-engine side of the bridge. It asks DuckDB for
// the engine types of tables and queries and checks that a query's output
// can be written to a storage table.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"colbridge/internal/domain"
	"colbridge/internal/typemap"
)

// Engine wraps a DuckDB connection.
type Engine struct {
	db *sql.DB
}

// New creates an Engine over db.
func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// DescribeQuery returns the output columns of sqlQuery without running it.
// A column whose DuckDB type the engine type system cannot represent fails
// the call with *domain.UnsupportedTypeError naming the column.
func (e *Engine) DescribeQuery(ctx context.Context, sqlQuery string) ([]domain.EngineColumn, error) {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlQuery), ";"))
	if q == "" {
		return nil, domain.ErrValidation("empty query")
	}
	return e.describe(ctx, "DESCRIBE "+q)
}

// DescribeTable returns the columns of a DuckDB table or view.
func (e *Engine) DescribeTable(ctx context.Context, table string) ([]domain.EngineColumn, error) {
	if strings.TrimSpace(table) == "" {
		return nil, domain.ErrValidation("table name is required")
	}
	return e.describe(ctx, "DESCRIBE "+quoteQualified(table))
}

func (e *Engine) describe(ctx context.Context, stmt string) ([]domain.EngineColumn, error) {
	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}

	var cols []domain.EngineColumn
	for rows.Next() {
		vals := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		// column_name, column_type, null, key, default, extra
		name := fmt.Sprintf("%v", vals[0])
		typeName := fmt.Sprintf("%v", vals[1])
		ct, err := typemap.ParseEngineType(typeName)
		if err != nil {
			return nil, columnError(err, name)
		}
		cols = append(cols, domain.EngineColumn{Name: name, Type: ct})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return cols, nil
}

func columnError(err error, column string) error {
	if ute, ok := err.(*domain.UnsupportedTypeError); ok {
		cp := *ute
		cp.Column = column
		return &cp
	}
	return fmt.Errorf("column %q: %w", column, err)
}

// quoteQualified quotes each dot-separated part of a table reference.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
