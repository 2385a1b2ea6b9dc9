package flightsql

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowflight "github.com/apache/arrow-go/v18/arrow/flight"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"colbridge/internal/domain"
	"colbridge/internal/storage"
)

// Client talks to the storage service over Flight SQL. It implements
// storage.Client.
type Client struct {
	fsql    *arrowflightsql.Client
	timeout time.Duration
	logSink storage.LogSink
	alloc   memory.Allocator
}

var _ storage.Client = (*Client)(nil)

// ClientOption configures Dial.
type ClientOption func(*clientOptions)

type clientOptions struct {
	insecure bool
	timeout  time.Duration
	logSink  storage.LogSink
	dialOpts []grpc.DialOption
}

// WithInsecure selects plaintext gRPC instead of TLS.
func WithInsecure(v bool) ClientOption {
	return func(o *clientOptions) { o.insecure = v }
}

// WithTimeout bounds each schema discovery call. Scans are bounded by the
// caller's context only.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogSink routes client diagnostics to sink.
func WithLogSink(sink storage.LogSink) ClientOption {
	return func(o *clientOptions) { o.logSink = sink }
}

// WithDialOptions appends raw gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *clientOptions) { o.dialOpts = append(o.dialOpts, opts...) }
}

// Dial connects to the storage service at addr.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if o.insecure {
		creds = insecure.NewCredentials()
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, o.dialOpts...)

	fsql, err := arrowflightsql.NewClient(addr, nil, nil, dialOpts...)
	if err := domain.WrapStorageError(err, "dial storage service "+addr); err != nil {
		return nil, err
	}
	sink := o.logSink
	if sink == nil {
		sink = func(storage.Severity, string, int, time.Time, string) {}
	}
	return &Client{fsql: fsql, timeout: o.timeout, logSink: sink, alloc: memory.DefaultAllocator}, nil
}

// TableSchema implements storage.Client.
func (c *Client) TableSchema(ctx context.Context, table string) (domain.StorageSchema, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	info, err := c.fsql.GetTables(ctx, &arrowflightsql.GetTablesOpts{
		TableNameFilterPattern: &table,
		IncludeSchema:          true,
	})
	if err != nil {
		return domain.StorageSchema{}, fmt.Errorf("get tables: %w", err)
	}

	for _, ep := range info.Endpoint {
		raw, found, err := c.findTableSchema(ctx, ep.Ticket, table)
		if err != nil {
			return domain.StorageSchema{}, err
		}
		if !found {
			continue
		}
		schema, err := arrowflight.DeserializeSchema(raw, c.alloc)
		if err != nil {
			return domain.StorageSchema{}, fmt.Errorf("decode schema of %q: %w", table, err)
		}
		return FromArrowSchema(table, schema)
	}
	return domain.StorageSchema{}, domain.ErrNotFound("table %q not found in storage service", table)
}

// findTableSchema reads one GetTables endpoint looking for an exact name
// match. The server filters with LIKE, so '_' and '%' may match more than
// the requested table.
func (c *Client) findTableSchema(ctx context.Context, ticket *arrowflight.Ticket, table string) ([]byte, bool, error) {
	rdr, err := c.fsql.DoGet(ctx, ticket)
	if err != nil {
		return nil, false, fmt.Errorf("fetch tables: %w", err)
	}
	defer rdr.Release()

	for rdr.Next() {
		raw, found, err := c.tableSchemaFromRecord(rdr.Record(), table)
		if err != nil || found {
			return raw, found, err
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, false, fmt.Errorf("read tables: %w", err)
	}
	return nil, false, nil
}

// tableSchemaFromRecord looks for table in one GetTables record and returns
// a copy of its serialized schema.
func (c *Client) tableSchemaFromRecord(rec arrow.Record, table string) ([]byte, bool, error) {
	if rec.NumCols() < 5 {
		return nil, false, fmt.Errorf("unexpected GetTables result shape: %s", rec.Schema())
	}
	names, ok := rec.Column(2).(*array.String)
	if !ok {
		return nil, false, fmt.Errorf("unexpected GetTables table_name type: %s", rec.Column(2).DataType())
	}
	schemas, ok := rec.Column(4).(*array.Binary)
	if !ok {
		return nil, false, fmt.Errorf("unexpected GetTables table_schema type: %s", rec.Column(4).DataType())
	}
	for i := 0; i < int(rec.NumRows()); i++ {
		if names.Value(i) == table {
			return append([]byte(nil), schemas.Value(i)...), true, nil
		}
		if strings.EqualFold(names.Value(i), table) {
			c.logSink(storage.SeverityWarning, "", 0, time.Now(),
				fmt.Sprintf("table %q differs only in case from requested %q; not used", names.Value(i), table))
		}
	}
	return nil, false, nil
}

// Scan implements storage.Client.
func (c *Client) Scan(ctx context.Context, req storage.ScanRequest) (array.RecordReader, error) {
	query, err := BuildScanQuery(req)
	if err != nil {
		return nil, err
	}
	info, err := c.fsql.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute scan: %w", err)
	}
	if len(info.Endpoint) != 1 {
		return nil, fmt.Errorf("scan returned %d endpoints; exactly one is supported", len(info.Endpoint))
	}
	rdr, err := c.fsql.DoGet(ctx, info.Endpoint[0].Ticket)
	if err != nil {
		return nil, fmt.Errorf("fetch scan: %w", err)
	}
	return rdr, nil
}

// Close implements storage.Client.
func (c *Client) Close() error {
	return c.fsql.Close()
}

// BuildScanQuery renders a scan request as a SELECT over the projected
// columns, in request order.
func BuildScanQuery(req storage.ScanRequest) (string, error) {
	if req.Table == "" {
		return "", domain.ErrValidation("scan request has no table")
	}
	if len(req.Columns) == 0 {
		return "", domain.ErrValidation("scan request for %q projects no columns", req.Table)
	}
	cols := make([]string, len(req.Columns))
	for i, c := range req.Columns {
		cols[i] = quoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(req.Table)), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
