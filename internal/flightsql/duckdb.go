package flightsql

import (
	"context"
	"database/sql"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/duckdb/duckdb-go/v2"
)

// NewDuckDBExecutor returns a QueryExecutor that runs statements on db.
func NewDuckDBExecutor(db *sql.DB) QueryExecutor {
	return func(ctx context.Context, sqlQuery string) (*QueryResult, error) {
		rows, err := db.QueryContext(ctx, sqlQuery)
		if err != nil {
			return nil, err
		}
		defer rows.Close() //nolint:errcheck
		return scanRows(rows)
	}
}

func scanRows(rows *sql.Rows) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	types := make([]string, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			// DECIMAL values are unscaled at the column's own scale.
			if d, ok := v.(duckdb.Decimal); ok && d.Value != nil {
				vals[i] = decimal128.FromBigInt(d.Value)
			}
		}
		resultRows = append(resultRows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &QueryResult{Columns: cols, Types: types, Rows: resultRows}, nil
}
