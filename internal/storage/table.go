package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/sync/errgroup"

	"colbridge/internal/domain"
	"colbridge/internal/projection"
	"colbridge/internal/typemap"
)

// Table is an open table handle. Its schema and name index are read-only
// for the life of the handle; a schema change on the storage side requires
// opening a new handle.
type Table struct {
	client Client
	schema domain.StorageSchema
	index  *projection.Index
}

// OpenTable fetches the table schema and indexes it. A schema whose column
// names collide case-insensitively cannot be opened.
func OpenTable(ctx context.Context, client Client, name string) (*Table, error) {
	schema, err := client.TableSchema(ctx, name)
	if err := domain.WrapStorageError(err, fmt.Sprintf("open table %q", name)); err != nil {
		return nil, err
	}
	if schema.Table == "" {
		schema.Table = name
	}
	idx, err := projection.BuildIndex(schema)
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", name, err)
	}
	return &Table{client: client, schema: schema, index: idx}, nil
}

// OpenTables opens several tables concurrently. The first failure cancels
// the remaining opens and is returned.
func OpenTables(ctx context.Context, client Client, names []string) (map[string]*Table, error) {
	var mu sync.Mutex
	tables := make(map[string]*Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8) // bounded parallelism
	for _, name := range names {
		g.Go(func() error {
			t, err := OpenTable(gctx, client, name)
			if err != nil {
				return err
			}
			mu.Lock()
			tables[name] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.schema.Table }

// Schema returns a copy of the storage schema the handle was opened with.
func (t *Table) Schema() domain.StorageSchema {
	return domain.StorageSchema{Table: t.schema.Table, Columns: slices.Clone(t.schema.Columns)}
}

// Index returns the case-insensitive name index over Schema.
func (t *Table) Index() *projection.Index { return t.index }

// EngineColumns translates the table's schema into engine column types.
func (t *Table) EngineColumns() ([]domain.EngineColumn, error) {
	return typemap.EngineColumns(t.schema)
}

// Column returns the storage column a name refers to, compared
// case-insensitively.
func (t *Table) Column(name string) (domain.StorageColumn, bool) {
	pos, ok := t.index.Lookup(name)
	if !ok {
		return domain.StorageColumn{}, false
	}
	return t.schema.Columns[pos], true
}

// Project resolves the query's required columns to storage column names.
func (t *Table) Project(required []domain.RequiredColumn) (domain.ProjectionList, error) {
	return projection.Resolve(required, t.index, t.schema)
}

// Scan resolves the required columns and starts a scan over them. Columns
// come back in the order they were required.
func (t *Table) Scan(ctx context.Context, required []domain.RequiredColumn) (array.RecordReader, error) {
	cols, err := t.Project(required)
	if err != nil {
		return nil, err
	}
	rdr, err := t.client.Scan(ctx, ScanRequest{Table: t.schema.Table, Columns: cols})
	if err := domain.WrapStorageError(err, fmt.Sprintf("scan table %q", t.schema.Table)); err != nil {
		return nil, err
	}
	return rdr, nil
}
