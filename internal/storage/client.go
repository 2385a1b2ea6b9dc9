// Package storage opens tables in the columnar storage service and turns a
// query's required columns into scan requests.
package storage

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/array"

	"colbridge/internal/domain"
)

// Client is the connection to the storage service.
type Client interface {
	// TableSchema returns the table's columns in physical order.
	TableSchema(ctx context.Context, table string) (domain.StorageSchema, error)
	// Scan streams the requested columns in request order.
	Scan(ctx context.Context, req ScanRequest) (array.RecordReader, error)
	Close() error
}

// ScanRequest asks the storage service for a projection of one table.
type ScanRequest struct {
	Table   string
	Columns domain.ProjectionList
}
