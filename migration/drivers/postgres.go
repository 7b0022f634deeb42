// Package drivers wraps github.com/oarkflow/squealx's per-engine
// connection openers behind one signature per supported RDBMS, so
// migration.SquealxRegistry can treat every engine identically.
package drivers

import (
	"fmt"

	"github.com/oarkflow/squealx"
	"github.com/oarkflow/squealx/drivers/postgres"
)

// OpenPostgres opens and pings a Postgres connection.
func OpenPostgres(dsn string) (*squealx.DB, error) {
	db, err := postgres.Open(dsn, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}
