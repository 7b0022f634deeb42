package drivers

import (
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/oarkflow/squealx"
)

// OpenSQLServer opens and pings a SQL Server connection via
// go-mssqldb, the ecosystem's standard database/sql driver for SQL
// Server.
func OpenSQLServer(dsn string) (*squealx.DB, error) {
	db, err := squealx.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlserver connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlserver: %w", err)
	}
	return db, nil
}
