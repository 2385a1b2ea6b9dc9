// Package testutil provides shared mock implementations of bridge interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/array"

	"colbridge/internal/domain"
	"colbridge/internal/storage"
)

// === Storage Client Mock ===

// MockStorageClient implements storage.Client for testing.
type MockStorageClient struct {
	TableSchemaFn func(ctx context.Context, table string) (domain.StorageSchema, error)
	ScanFn        func(ctx context.Context, req storage.ScanRequest) (array.RecordReader, error)
	CloseFn       func() error

	mu    sync.Mutex
	Scans []storage.ScanRequest // collected scan requests for assertions
}

// TableSchema implements the interface method for testing.
func (m *MockStorageClient) TableSchema(ctx context.Context, table string) (domain.StorageSchema, error) {
	if m.TableSchemaFn != nil {
		return m.TableSchemaFn(ctx, table)
	}
	panic("unexpected call to MockStorageClient.TableSchema")
}

// Scan implements the interface method for testing.
func (m *MockStorageClient) Scan(ctx context.Context, req storage.ScanRequest) (array.RecordReader, error) {
	m.mu.Lock()
	m.Scans = append(m.Scans, req)
	m.mu.Unlock()
	if m.ScanFn != nil {
		return m.ScanFn(ctx, req)
	}
	return nil, nil
}

// Close implements the interface method for testing.
func (m *MockStorageClient) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// LastScan returns the last collected scan request, or nil if none.
func (m *MockStorageClient) LastScan() *storage.ScanRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Scans) == 0 {
		return nil
	}
	s := m.Scans[len(m.Scans)-1]
	return &s
}

// StaticSchemas returns a TableSchemaFn serving the given schemas by table
// name, and a *domain.NotFoundError for anything else.
func StaticSchemas(schemas ...domain.StorageSchema) func(context.Context, string) (domain.StorageSchema, error) {
	byName := make(map[string]domain.StorageSchema, len(schemas))
	for _, s := range schemas {
		byName[s.Table] = s
	}
	return func(_ context.Context, table string) (domain.StorageSchema, error) {
		s, ok := byName[table]
		if !ok {
			return domain.StorageSchema{}, domain.ErrNotFound("table %q not found", table)
		}
		return s, nil
	}
}

// Schema builds a storage schema for table from the given columns.
func Schema(table string, cols ...domain.StorageColumn) domain.StorageSchema {
	return domain.StorageSchema{Table: table, Columns: cols}
}

// Col is a short constructor for a nullable storage column.
func Col(name string, t domain.StorageType) domain.StorageColumn {
	return domain.StorageColumn{Name: name, Type: domain.StorageColumnType{Type: t}, Nullable: true}
}
