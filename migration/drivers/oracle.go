package drivers

import (
	"fmt"

	_ "github.com/godror/godror"
	"github.com/oarkflow/squealx"
)

// OpenOracle opens and pings an Oracle connection via godror, the
// ecosystem's standard database/sql driver for Oracle. No squealx
// subpackage ships one, so this dials through squealx.Open against the
// driver godror registers under its own name.
func OpenOracle(dsn string) (*squealx.DB, error) {
	db, err := squealx.Open("godror", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open oracle connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping oracle: %w", err)
	}
	return db, nil
}
