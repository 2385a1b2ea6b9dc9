package cli

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // register the duckdb driver

	"colbridge/internal/flightsql"
	"colbridge/internal/storage"
)

// Storage client diagnostics at INFO are capped so a flapping service
// cannot flood the CLI's stderr.
const (
	clientInfoLogsPerSecond = 5
	clientInfoLogBurst      = 20
)

// dialStorage connects to the configured storage service after checking
// that the integration is available on this host.
func (o *globalOptions) dialStorage() (*flightsql.Client, error) {
	if err := storage.CheckAvailability(o.cfg.Storage); err != nil {
		return nil, err
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	return flightsql.Dial(o.cfg.Storage.Addr,
		flightsql.WithInsecure(o.cfg.Storage.Insecure),
		flightsql.WithTimeout(o.cfg.Storage.Timeout),
		flightsql.WithLogSink(storage.NewRateLimitedLogSink(o.logger, clientInfoLogsPerSecond, clientInfoLogBurst)),
	)
}

// openDuckDB opens the configured DuckDB database.
func (o *globalOptions) openDuckDB() (*sql.DB, error) {
	db, err := sql.Open("duckdb", o.cfg.DuckDBPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open duckdb %q: %w", o.cfg.DuckDBPath, err)
	}
	return db, nil
}
