package flightsql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpcHealthV1 "google.golang.org/grpc/health/grpc_health_v1"

	"colbridge/internal/domain"
	"colbridge/internal/storage"
)

func startServer(t *testing.T, query QueryExecutor) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", nil, query)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func openDuckDB(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func dialServer(t *testing.T, srv *Server) *Client {
	t.Helper()
	client, err := Dial(srv.Addr(), WithInsecure(true), WithTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, nil)
	require.NoError(t, srv.Start())
	require.Error(t, srv.Start())

	addr := srv.Addr()
	require.NotEmpty(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := grpcHealthV1.NewHealthClient(conn).Check(ctx, &grpcHealthV1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpcHealthV1.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, srv.Shutdown(ctx))
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Shutdown(ctx))
}

func TestServer_ExecuteStatementQuery(t *testing.T) {
	srv := startServer(t, func(_ context.Context, sqlQuery string) (*QueryResult, error) {
		require.Equal(t, "SELECT 1", sqlQuery)
		return &QueryResult{Columns: []string{"value"}, Rows: [][]interface{}{{"1"}}}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := arrowflightsql.NewClient(srv.Addr(), nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.Execute(ctx, "SELECT 1")
	require.NoError(t, err)
	require.Len(t, info.Endpoint, 1)

	rdr, err := client.DoGet(ctx, info.Endpoint[0].Ticket)
	require.NoError(t, err)
	t.Cleanup(rdr.Release)

	require.True(t, rdr.Next())
	rec := rdr.Record()
	require.Equal(t, int64(1), rec.NumRows())
	col, ok := rec.Column(0).(*array.String)
	require.True(t, ok)
	require.Equal(t, "1", col.Value(0))
	require.False(t, rdr.Next())
}

func TestServer_TicketIsSingleUse(t *testing.T) {
	srv := startServer(t, func(_ context.Context, _ string) (*QueryResult, error) {
		return &QueryResult{Columns: []string{"value"}, Rows: [][]interface{}{{nil}}}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := arrowflightsql.NewClient(srv.Addr(), nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.Execute(ctx, "SELECT NULL")
	require.NoError(t, err)

	rdr, err := client.DoGet(ctx, info.Endpoint[0].Ticket)
	require.NoError(t, err)
	require.True(t, rdr.Next())
	assert.True(t, rdr.Record().Column(0).IsNull(0))
	rdr.Release()

	rdr, err = client.DoGet(ctx, info.Endpoint[0].Ticket)
	if err == nil {
		for rdr.Next() {
		}
		err = rdr.Err()
		rdr.Release()
	}
	require.Error(t, err)
}

func TestClient_TableSchemaFromDuckDB(t *testing.T) {
	db := openDuckDB(t, `CREATE TABLE events (
		EventId BIGINT NOT NULL,
		Payload VARCHAR,
		Amount DECIMAL(10,2),
		Ratio REAL,
		Seen BOOLEAN,
		Day DATE,
		Tags VARCHAR[],
		OccurredAt TIMESTAMP
	)`)
	srv := startServer(t, NewDuckDBExecutor(db))
	client := dialServer(t, srv)

	schema, err := client.TableSchema(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, "events", schema.Table)

	// Tags has no storage counterpart and is not published.
	assert.Equal(t, []string{"EventId", "Payload", "Amount", "Ratio", "Seen", "Day", "OccurredAt"}, schema.Names())

	byName := map[string]domain.StorageColumn{}
	for _, c := range schema.Columns {
		byName[c.Name] = c
	}
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageInt64}, byName["EventId"].Type)
	assert.False(t, byName["EventId"].Nullable)
	assert.True(t, byName["Payload"].Nullable)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageString}, byName["Payload"].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageDecimal, Precision: 10, Scale: 2}, byName["Amount"].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageFloat}, byName["Ratio"].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageBool}, byName["Seen"].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageDate}, byName["Day"].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageUnixtimeMicros}, byName["OccurredAt"].Type)
}

func TestClient_TableSchemaNotFound(t *testing.T) {
	db := openDuckDB(t, `CREATE TABLE events (id INTEGER)`)
	srv := startServer(t, NewDuckDBExecutor(db))
	client := dialServer(t, srv)

	_, err := client.TableSchema(context.Background(), "missing")
	var nf *domain.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
}

func TestClient_OpenTableAndScan(t *testing.T) {
	db := openDuckDB(t,
		`CREATE TABLE events (EventId BIGINT, UserName VARCHAR, Score DOUBLE, Amount DECIMAL(10,2), Payload BLOB, OccurredAt TIMESTAMP)`,
		`INSERT INTO events VALUES
			(1, 'ada', 0.5, 2.50, '\xAA\x00'::BLOB, TIMESTAMP '2024-03-01 12:00:00'),
			(2, 'bob', 1.5, NULL, NULL, NULL)`,
	)
	srv := startServer(t, NewDuckDBExecutor(db))
	client := dialServer(t, srv)
	ctx := context.Background()

	tbl, err := storage.OpenTable(ctx, client, "events")
	require.NoError(t, err)

	cols, err := tbl.EngineColumns()
	require.NoError(t, err)
	require.Len(t, cols, 6)
	assert.Equal(t, domain.TypeBigInt, cols[0].Type.Tag)
	assert.Equal(t, domain.TypeString, cols[1].Type.Tag)
	assert.Equal(t, domain.TypeDouble, cols[2].Type.Tag)

	required := []string{"username", "EVENTID", "amount", "payload", "occurredat"}
	rdr, err := tbl.Scan(ctx, domain.RequiredColumnsFromNames(required...))
	require.NoError(t, err)
	defer rdr.Release()

	// Scanned columns carry the Arrow type of the published storage type.
	for i, name := range required {
		pos, ok := tbl.Index().Lookup(name)
		require.True(t, ok)
		want, err := ArrowType(tbl.Schema().Columns[pos].Type)
		require.NoError(t, err)
		assert.True(t, arrow.TypeEqual(want, rdr.Schema().Field(i).Type),
			"column %s: want %s, got %s", name, want, rdr.Schema().Field(i).Type)
	}

	type scanned struct {
		user     string
		amount   *decimal128.Num
		payload  []byte
		occurred *arrow.Timestamp
	}
	byID := map[int64]scanned{}
	for rdr.Next() {
		rec := rdr.Record()
		require.Equal(t, "UserName", rec.ColumnName(0))
		require.Equal(t, "EventId", rec.ColumnName(1))
		users := rec.Column(0).(*array.String)
		ids := rec.Column(1).(*array.Int64)
		amounts := rec.Column(2).(*array.Decimal128)
		payloads := rec.Column(3).(*array.Binary)
		times := rec.Column(4).(*array.Timestamp)
		for i := 0; i < int(rec.NumRows()); i++ {
			row := scanned{user: users.Value(i)}
			if amounts.IsValid(i) {
				v := amounts.Value(i)
				row.amount = &v
			}
			if payloads.IsValid(i) {
				row.payload = append([]byte(nil), payloads.Value(i)...)
			}
			if times.IsValid(i) {
				v := times.Value(i)
				row.occurred = &v
			}
			byID[ids.Value(i)] = row
		}
	}
	require.NoError(t, rdr.Err())
	require.Len(t, byID, 2)

	ada := byID[1]
	assert.Equal(t, "ada", ada.user)
	require.NotNil(t, ada.amount)
	assert.Equal(t, decimal128.FromI64(250), *ada.amount)
	assert.Equal(t, []byte{0xAA, 0x00}, ada.payload)
	require.NotNil(t, ada.occurred)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMicro(), int64(*ada.occurred))

	bob := byID[2]
	assert.Equal(t, "bob", bob.user)
	assert.Nil(t, bob.amount)
	assert.Nil(t, bob.payload)
	assert.Nil(t, bob.occurred)

	_, err = tbl.Scan(ctx, domain.RequiredColumnsFromNames("country"))
	var unk *domain.UnknownColumnError
	require.True(t, errors.As(err, &unk))
}

func TestRecordFromResult_TypedColumns(t *testing.T) {
	result := &QueryResult{
		Columns: []string{"id", "amount", "payload", "label", "note"},
		Types:   []string{"INTEGER", "DECIMAL(10,2)", "BLOB", "VARCHAR", ""},
		Rows: [][]interface{}{
			{int32(7), decimal128.FromI64(250), []byte{0xff, 0x00}, "x", 12},
			{nil, "1.05", nil, nil, nil},
		},
	}
	schema := resultSchema(result)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int32, schema.Field(0).Type))
	assert.True(t, arrow.TypeEqual(&arrow.Decimal128Type{Precision: 10, Scale: 2}, schema.Field(1).Type))
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.Binary, schema.Field(2).Type))
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, schema.Field(4).Type))

	decoded, err := FromArrowSchema("t", schema)
	require.NoError(t, err)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageDecimal, Precision: 10, Scale: 2}, decoded.Columns[1].Type)

	rec, err := recordFromResult(schema, result)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int32(7), rec.Column(0).(*array.Int32).Value(0))
	assert.True(t, rec.Column(0).IsNull(1))
	assert.Equal(t, decimal128.FromI64(250), rec.Column(1).(*array.Decimal128).Value(0))
	assert.Equal(t, decimal128.FromI64(105), rec.Column(1).(*array.Decimal128).Value(1))
	assert.Equal(t, []byte{0xff, 0x00}, rec.Column(2).(*array.Binary).Value(0))
	assert.Equal(t, "12", rec.Column(4).(*array.String).Value(0))

	_, err = recordFromResult(schema, &QueryResult{
		Columns: result.Columns,
		Types:   result.Types,
		Rows:    [][]interface{}{{"seven", nil, nil, nil, nil}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "id"`)
}

func TestClient_TableSchemaFromRecord(t *testing.T) {
	var warnings []string
	c := &Client{logSink: func(sev storage.Severity, _ string, _ int, _ time.Time, msg string) {
		if sev == storage.SeverityWarning {
			warnings = append(warnings, msg)
		}
	}}

	t.Run("short record is an error", func(t *testing.T) {
		b := array.NewRecordBuilder(memory.DefaultAllocator, arrow.NewSchema([]arrow.Field{
			{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: true},
		}, nil))
		defer b.Release()
		b.Field(0).(*array.StringBuilder).AppendNull()
		b.Field(1).(*array.StringBuilder).AppendNull()
		rec := b.NewRecord()
		defer rec.Release()

		var err error
		require.NotPanics(t, func() { _, _, err = c.tableSchemaFromRecord(rec, "events") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected GetTables result shape")
	})

	t.Run("exact match wins over case match", func(t *testing.T) {
		b := array.NewRecordBuilder(memory.DefaultAllocator, arrow.NewSchema([]arrow.Field{
			{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "table_name", Type: arrow.BinaryTypes.String},
			{Name: "table_type", Type: arrow.BinaryTypes.String},
			{Name: "table_schema", Type: arrow.BinaryTypes.Binary},
		}, nil))
		defer b.Release()
		for _, row := range []struct{ name, schema string }{{"EVENTS", "upper"}, {"events", "lower"}} {
			b.Field(0).(*array.StringBuilder).AppendNull()
			b.Field(1).(*array.StringBuilder).AppendNull()
			b.Field(2).(*array.StringBuilder).Append(row.name)
			b.Field(3).(*array.StringBuilder).Append("BASE TABLE")
			b.Field(4).(*array.BinaryBuilder).AppendString(row.schema)
		}
		rec := b.NewRecord()
		defer rec.Release()

		raw, found, err := c.tableSchemaFromRecord(rec, "events")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("lower"), raw)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `"EVENTS"`)
	})
}

func TestSchemaRoundTrip(t *testing.T) {
	in := domain.StorageSchema{Table: "t", Columns: []domain.StorageColumn{
		{Name: "a", Type: domain.StorageColumnType{Type: domain.StorageInt8}},
		{Name: "b", Type: domain.StorageColumnType{Type: domain.StorageVarchar, Length: 20}, Nullable: true},
		{Name: "c", Type: domain.StorageColumnType{Type: domain.StorageDecimal, Precision: 38, Scale: 10}},
		{Name: "d", Type: domain.StorageColumnType{Type: domain.StorageBinary}},
		{Name: "e", Type: domain.StorageColumnType{Type: domain.StorageUnixtimeMicros}},
		{Name: "f", Type: domain.StorageColumnType{Type: domain.StorageDate}},
	}}

	as, err := ToArrowSchema(in)
	require.NoError(t, err)
	v, ok := as.Field(1).Metadata.GetValue(arrowflightsql.PrecisionKey)
	require.True(t, ok)
	assert.Equal(t, "20", v)

	out, err := FromArrowSchema("t", as)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFromArrowSchema_LengthFromPrecision(t *testing.T) {
	// A server that only fills the JDBC keys still yields a bounded VARCHAR.
	schema := arrow.NewSchema([]arrow.Field{
		{
			Name: "v",
			Type: arrow.BinaryTypes.String,
			Metadata: arrow.NewMetadata(
				[]string{arrowflightsql.TypeNameKey, arrowflightsql.PrecisionKey},
				[]string{"varchar", "7"},
			),
		},
		{Name: "s", Type: arrow.BinaryTypes.String},
	}, nil)

	got, err := FromArrowSchema("t", schema)
	require.NoError(t, err)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageVarchar, Length: 7}, got.Columns[0].Type)
	assert.Equal(t, domain.StorageColumnType{Type: domain.StorageString}, got.Columns[1].Type)
}

func TestToArrowSchema_Unsupported(t *testing.T) {
	_, err := ToArrowSchema(domain.StorageSchema{Table: "t", Columns: []domain.StorageColumn{
		{Name: "x", Type: domain.StorageColumnType{Type: domain.StorageType(99)}},
	}})
	var ute *domain.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "x", ute.Column)
}

func TestStorageTypeForSQL(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.StorageColumnType
		wantErr bool
	}{
		{in: "INTEGER", want: domain.StorageColumnType{Type: domain.StorageInt32}},
		{in: "date", want: domain.StorageColumnType{Type: domain.StorageDate}},
		{in: "DECIMAL(5,1)", want: domain.StorageColumnType{Type: domain.StorageDecimal, Precision: 5, Scale: 1}},
		{in: "BLOB", want: domain.StorageColumnType{Type: domain.StorageBinary}},
		{in: "INTEGER[]", wantErr: true},
		{in: "HUGEINT", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := StorageTypeForSQL(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildScanQuery(t *testing.T) {
	q, err := BuildScanQuery(storage.ScanRequest{Table: "events", Columns: domain.ProjectionList{"b", `we"ird`, "b"}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "b", "we""ird", "b" FROM "events"`, q)

	_, err = BuildScanQuery(storage.ScanRequest{Table: "events"})
	require.Error(t, err)
	_, err = BuildScanQuery(storage.ScanRequest{Columns: domain.ProjectionList{"a"}})
	require.Error(t, err)
}

type tablesRequest struct {
	catalog, schemaPattern, tablePattern *string
	tableTypes                           []string
}

func (r tablesRequest) GetCatalog() *string                { return r.catalog }
func (r tablesRequest) GetDBSchemaFilterPattern() *string  { return r.schemaPattern }
func (r tablesRequest) GetTableNameFilterPattern() *string { return r.tablePattern }
func (r tablesRequest) GetTableTypes() []string            { return r.tableTypes }
func (r tablesRequest) GetIncludeSchema() bool             { return true }

func TestBuildTablesQuery(t *testing.T) {
	name := "o'brien"
	q := buildTablesQuery(tablesRequest{tablePattern: &name, tableTypes: []string{"table"}})
	assert.Contains(t, q, "table_name LIKE 'o''brien'")
	assert.Contains(t, q, "UPPER(table_type) IN ('TABLE','BASE TABLE')")
}
