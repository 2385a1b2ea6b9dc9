package flightsql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowflight "github.com/apache/arrow-go/v18/arrow/flight"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"colbridge/internal/domain"
	"colbridge/internal/typemap"
)

// QueryResult is a fully materialized query result. Types holds each
// column's database type name when the executor knows it; columns without
// one are served as text.
type QueryResult struct {
	Columns []string
	Types   []string
	Rows    [][]interface{}
}

// QueryExecutor runs SQL against the backing store.
type QueryExecutor func(ctx context.Context, sqlQuery string) (*QueryResult, error)

type queryServer struct {
	arrowflightsql.BaseServer

	logger *slog.Logger
	query  QueryExecutor

	mu      sync.Mutex
	tickets map[string]*QueryResult
}

func newQueryServer(logger *slog.Logger, query QueryExecutor) *queryServer {
	srv := &queryServer{logger: logger, query: query, tickets: make(map[string]*QueryResult)}
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerName, "colbridge-storage")
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerVersion, "dev")
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerArrowVersion, "18")
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerSql, true)
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerReadOnly, true)
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerCancel, false)
	return srv
}

func (s *queryServer) GetFlightInfoStatement(ctx context.Context, stmt arrowflightsql.StatementQuery, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	result, err := s.query(ctx, stmt.GetQuery())
	if err != nil {
		return nil, err
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.tickets[handle] = result
	s.mu.Unlock()

	ticket, err := arrowflightsql.CreateStatementQueryTicket([]byte(handle))
	if err != nil {
		return nil, fmt.Errorf("create statement query ticket: %w", err)
	}

	schema := resultSchema(result)
	return &arrowflight.FlightInfo{
		Schema:           arrowflight.SerializeSchema(schema, memory.DefaultAllocator),
		FlightDescriptor: desc,
		Endpoint: []*arrowflight.FlightEndpoint{{
			Ticket: &arrowflight.Ticket{Ticket: ticket},
			Location: []*arrowflight.Location{{
				Uri: arrowflight.LocationReuseConnection,
			}},
		}},
		TotalRecords: int64(len(result.Rows)),
		TotalBytes:   -1,
		Ordered:      true,
	}, nil
}

func (s *queryServer) GetSchemaStatement(ctx context.Context, stmt arrowflightsql.StatementQuery, _ *arrowflight.FlightDescriptor) (*arrowflight.SchemaResult, error) {
	result, err := s.query(ctx, stmt.GetQuery())
	if err != nil {
		return nil, err
	}
	return &arrowflight.SchemaResult{Schema: arrowflight.SerializeSchema(resultSchema(result), memory.DefaultAllocator)}, nil
}

func (s *queryServer) DoGetStatement(ctx context.Context, queryTicket arrowflightsql.StatementQueryTicket) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	handle := string(queryTicket.GetStatementHandle())

	s.mu.Lock()
	result, ok := s.tickets[handle]
	if ok {
		delete(s.tickets, handle)
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown statement handle")
	}

	schema := resultSchema(result)
	record, err := recordFromResult(schema, result)
	if err != nil {
		return nil, nil, err
	}
	return streamSingleRecord(ctx, schema, record)
}

func (s *queryServer) GetFlightInfoTables(_ context.Context, req arrowflightsql.GetTables, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	schema := tablesSchema(req.GetIncludeSchema())
	return &arrowflight.FlightInfo{
		Schema:           arrowflight.SerializeSchema(schema, memory.DefaultAllocator),
		FlightDescriptor: desc,
		Endpoint: []*arrowflight.FlightEndpoint{{
			Ticket: &arrowflight.Ticket{Ticket: desc.Cmd},
			Location: []*arrowflight.Location{{
				Uri: arrowflight.LocationReuseConnection,
			}},
		}},
		TotalRecords: -1,
		TotalBytes:   -1,
		Ordered:      true,
	}, nil
}

func (s *queryServer) GetSchemaTables(_ context.Context, req arrowflightsql.GetTables, _ *arrowflight.FlightDescriptor) (*arrowflight.SchemaResult, error) {
	return &arrowflight.SchemaResult{Schema: arrowflight.SerializeSchema(tablesSchema(req.GetIncludeSchema()), memory.DefaultAllocator)}, nil
}

func (s *queryServer) DoGetTables(ctx context.Context, req arrowflightsql.GetTables) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	result, err := s.query(ctx, buildTablesQuery(req))
	if err != nil {
		return nil, nil, err
	}

	schema := tablesSchema(req.GetIncludeSchema())
	var tableSchemas map[string][]byte
	if req.GetIncludeSchema() {
		tableSchemas, err = s.loadTableSchemas(ctx, result)
		if err != nil {
			return nil, nil, err
		}
	}
	return streamSingleRecord(ctx, schema, recordFromTablesResult(schema, result, req.GetIncludeSchema(), tableSchemas))
}

func streamSingleRecord(ctx context.Context, schema *arrow.Schema, record arrow.Record) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	rdr, err := array.NewRecordReader(schema, []arrow.Record{record})
	record.Release()
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan arrowflight.StreamChunk)
	go arrowflight.StreamChunksFromReader(ctx, rdr, ch)
	return schema, ch, nil
}

func tablesSchema(includeSchema bool) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "table_name", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "table_type", Type: arrow.BinaryTypes.String, Nullable: false},
	}
	if includeSchema {
		fields = append(fields, arrow.Field{Name: "table_schema", Type: arrow.BinaryTypes.Binary, Nullable: false})
	}
	return arrow.NewSchema(fields, nil)
}

func recordFromTablesResult(schema *arrow.Schema, result *QueryResult, includeSchema bool, tableSchemas map[string][]byte) arrow.Record {
	catalogBuilder := array.NewStringBuilder(memory.DefaultAllocator)
	schemaBuilder := array.NewStringBuilder(memory.DefaultAllocator)
	tableBuilder := array.NewStringBuilder(memory.DefaultAllocator)
	typeBuilder := array.NewStringBuilder(memory.DefaultAllocator)
	var tableSchemaBuilder *array.BinaryBuilder
	if includeSchema {
		tableSchemaBuilder = array.NewBinaryBuilder(memory.DefaultAllocator, arrow.BinaryTypes.Binary)
	}

	for _, row := range result.Rows {
		catalog := rowValue(row, 0)
		dbSchema := rowValue(row, 1)
		tableName := rowValue(row, 2)

		appendNullableString(catalogBuilder, catalog)
		appendNullableString(schemaBuilder, dbSchema)
		appendRequiredString(tableBuilder, tableName)
		appendRequiredString(typeBuilder, rowValue(row, 3))
		if includeSchema {
			tableSchemaBuilder.Append(tableSchemas[tableKey(catalog, dbSchema, tableName)])
		}
	}

	columns := []arrow.Array{
		catalogBuilder.NewArray(),
		schemaBuilder.NewArray(),
		tableBuilder.NewArray(),
		typeBuilder.NewArray(),
	}
	catalogBuilder.Release()
	schemaBuilder.Release()
	tableBuilder.Release()
	typeBuilder.Release()
	if includeSchema {
		columns = append(columns, tableSchemaBuilder.NewArray())
		tableSchemaBuilder.Release()
	}

	record := array.NewRecord(schema, columns, int64(len(result.Rows)))
	for _, column := range columns {
		column.Release()
	}
	return record
}

func rowValue(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func appendNullableString(builder *array.StringBuilder, value interface{}) {
	if value == nil {
		builder.AppendNull()
		return
	}
	builder.Append(fmt.Sprintf("%v", value))
}

func appendRequiredString(builder *array.StringBuilder, value interface{}) {
	if value == nil {
		builder.Append("")
		return
	}
	builder.Append(fmt.Sprintf("%v", value))
}

func buildTablesQuery(req arrowflightsql.GetTables) string {
	query := "SELECT table_catalog, table_schema, table_name, table_type FROM information_schema.tables"
	filters := make([]string, 0, 4)

	if catalog := req.GetCatalog(); catalog != nil {
		filters = append(filters, fmt.Sprintf("table_catalog = %s", quoteSQLLiteral(*catalog)))
	}
	if pattern := req.GetDBSchemaFilterPattern(); pattern != nil {
		filters = append(filters, fmt.Sprintf("table_schema LIKE %s", quoteSQLLiteral(*pattern)))
	}
	if pattern := req.GetTableNameFilterPattern(); pattern != nil {
		filters = append(filters, fmt.Sprintf("table_name LIKE %s", quoteSQLLiteral(*pattern)))
	}

	if tableTypes := req.GetTableTypes(); len(tableTypes) > 0 {
		typeLiterals := make([]string, 0, len(tableTypes)*2)
		for _, tableType := range tableTypes {
			normalized := strings.ToUpper(strings.TrimSpace(tableType))
			if normalized == "" {
				continue
			}
			typeLiterals = append(typeLiterals, quoteSQLLiteral(normalized))
			if normalized == "TABLE" {
				typeLiterals = append(typeLiterals, quoteSQLLiteral("BASE TABLE"))
			}
		}
		if len(typeLiterals) > 0 {
			filters = append(filters, fmt.Sprintf("UPPER(table_type) IN (%s)", strings.Join(typeLiterals, ",")))
		}
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY table_catalog, table_schema, table_name, table_type"
	return query
}

func (s *queryServer) loadTableSchemas(ctx context.Context, tables *QueryResult) (map[string][]byte, error) {
	out := make(map[string][]byte, len(tables.Rows))
	for _, row := range tables.Rows {
		catalog := fmt.Sprintf("%v", rowValue(row, 0))
		dbSchema := fmt.Sprintf("%v", rowValue(row, 1))
		tableName := fmt.Sprintf("%v", rowValue(row, 2))
		if tableName == "" || tableName == "<nil>" {
			continue
		}

		columns, err := s.query(ctx, buildTableColumnsQuery(catalog, dbSchema, tableName))
		if err != nil {
			return nil, err
		}

		storageSchema := s.storageSchemaFromColumns(tableName, columns)
		arrowSchema, err := ToArrowSchema(storageSchema)
		if err != nil {
			return nil, fmt.Errorf("encode schema of %q: %w", tableName, err)
		}
		out[tableKey(rowValue(row, 0), rowValue(row, 1), rowValue(row, 2))] = arrowflight.SerializeSchema(arrowSchema, memory.DefaultAllocator)
	}
	return out, nil
}

func buildTableColumnsQuery(catalog, dbSchema, tableName string) string {
	parts := []string{"table_name = " + quoteSQLLiteral(tableName)}
	if catalog != "" && catalog != "<nil>" {
		parts = append(parts, "table_catalog = "+quoteSQLLiteral(catalog))
	}
	if dbSchema != "" && dbSchema != "<nil>" {
		parts = append(parts, "table_schema = "+quoteSQLLiteral(dbSchema))
	}
	return "SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE " + strings.Join(parts, " AND ") + " ORDER BY ordinal_position"
}

// storageSchemaFromColumns maps information_schema rows to a storage schema.
// Columns whose type has no storage counterpart are left out of the
// published schema.
func (s *queryServer) storageSchemaFromColumns(tableName string, columns *QueryResult) domain.StorageSchema {
	schema := domain.StorageSchema{Table: tableName}
	for _, row := range columns.Rows {
		columnName := strings.TrimSpace(fmt.Sprintf("%v", rowValue(row, 0)))
		if columnName == "" || columnName == "<nil>" {
			continue
		}
		dataType := strings.TrimSpace(fmt.Sprintf("%v", rowValue(row, 1)))
		t, err := StorageTypeForSQL(dataType)
		if err != nil {
			s.logger.Warn("column not published", "table", tableName, "column", columnName, "type", dataType, "error", err)
			continue
		}
		schema.Columns = append(schema.Columns, domain.StorageColumn{
			Name:     columnName,
			Type:     t,
			Nullable: strings.EqualFold(strings.TrimSpace(fmt.Sprintf("%v", rowValue(row, 2))), "YES"),
		})
	}
	return schema
}

// StorageTypeForSQL maps a DuckDB column type to the storage type the
// service publishes for it. DATE is a storage type the engine does not have.
func StorageTypeForSQL(dataType string) (domain.StorageColumnType, error) {
	if strings.EqualFold(strings.TrimSpace(dataType), "DATE") {
		return domain.StorageColumnType{Type: domain.StorageDate}, nil
	}
	ct, err := typemap.ParseEngineType(dataType)
	if err != nil {
		return domain.StorageColumnType{}, err
	}
	return typemap.EngineToStorage(ct)
}

func tableKey(catalog, dbSchema, tableName interface{}) string {
	return fmt.Sprintf("%v|%v|%v", catalog, dbSchema, tableName)
}

func quoteSQLLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
