package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/oarkflow/squealx"
)

// Copy runs the Bulk Copy Engine (spec.md §4.E) over every table the
// Schema Migration Pipeline already created in the target schema. Rows
// move through registry.BulkCopy rather than sourceDB/targetDB
// directly, keeping the registry the sole seam onto live connections.
// Each table is copied independently; a failure on one table does not
// stop the others, matching the Python original's per-table status
// bookkeeping in migrate_plain_data.
func Copy(ctx context.Context, sourceDB, targetDB *squealx.DB, cfg *Configuration, tables []MigratedTable, registry DriverRegistry) []MigrationError {
	var errs []MigrationError

	sourceDialect, ok := getDialect(cfg.FromRDBMS)
	if !ok {
		errs = append(errs, newError(KindEngineUnknown, CodeInvalidValue, string(cfg.FromRDBMS),
			"unknown or unconfigured RDBMS engine", "from-rdbms"))
		return errs
	}
	targetDialect, ok := getDialect(cfg.ToRDBMS)
	if !ok {
		errs = append(errs, newError(KindEngineUnknown, CodeInvalidValue, string(cfg.ToRDBMS),
			"unknown or unconfigured RDBMS engine", "to-rdbms"))
		return errs
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for i := range tables {
		t := &tables[i]
		cols := columnsForCopy(t.Columns, cfg.MigrateLOBData)
		if len(cols) == 0 {
			t.Status = StatusNone
			continue
		}

		selStmt := buildSelectStmt(sourceDialect, cfg.FromSchema, t.Table, cols)
		insStmt := targetDialect.BulkInsertStmt(cfg.ToSchema, t.Table, cols)

		count, copyErr := registry.BulkCopy(ctx, sourceDB, targetDB, selStmt, insStmt, batchSize)
		t.Count = count

		switch {
		case copyErr != nil && count > 0:
			t.Status = StatusPartial
			errs = append(errs, newError(KindCopyFailed, CodeUnexpected, t.Table,
				Sanitize(copyErr.Error()), "migrate-plaindata"))
		case copyErr != nil:
			t.Status = StatusNone
			errs = append(errs, newError(KindCopyFailed, CodeUnexpected, t.Table,
				Sanitize(copyErr.Error()), "migrate-plaindata"))
		default:
			t.Status = StatusFull
		}
	}

	return errs
}

// columnsForCopy excludes BLOB/CLOB/RAW and other large-binary columns
// from the copy unless includeLOB is set, matching migrate_plain_data's
// is_large_binary filter.
func columnsForCopy(cols []MigratedColumn, includeLOB bool) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if !includeLOB && IsLargeBinary(c.SourceType) {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func buildSelectStmt(d Dialect, schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s", strings.Join(quoted, ", "),
		d.quoteIdentifier(schema), d.quoteIdentifier(table))
}
