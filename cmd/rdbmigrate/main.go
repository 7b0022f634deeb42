// Command rdbmigrate reflects a source RDBMS schema, translates it onto a
// target RDBMS, and bulk-copies the data across.
package main

import (
	"github.com/oarkflow/rdbmigrate/migration"
)

func main() {
	manager := migration.NewManager()
	manager.Run()
}
