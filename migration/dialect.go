package migration

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect synthesizes the pure-SQL strings one RDBMS engine needs for a
// migration run: its connection URI, bulk-insert statement, idempotent
// drop statements, schema creation, and the toggles around
// referential-integrity checking during a bulk load.
type Dialect interface {
	Engine() EngineID

	// ConnectionURI builds the driver connection string/DSN for p.
	ConnectionURI(p ConnParams) string

	// Placeholder returns the positional bind placeholder for the n'th
	// (1-based) parameter in a parameterized statement.
	Placeholder(n int) string

	// BulkInsertStmt builds a parameterized INSERT into schema.table over
	// the given column names.
	BulkInsertStmt(schema, table string, columns []string) string

	// DropTableStmt builds an idempotent DROP TABLE statement.
	DropTableStmt(schema, table string) string

	// DropViewStmt builds an idempotent DROP VIEW statement.
	DropViewStmt(schema, view string) string

	// CreateSchemaStmt builds an idempotent CREATE SCHEMA statement.
	// Oracle ignores owner and creates a user named schema instead; the
	// other engines assign owner as the new schema's AUTHORIZATION.
	CreateSchemaStmt(schema, owner string) string

	// CreateTableStmt builds a CREATE TABLE statement from cols, already
	// translated to this dialect's target types.
	CreateTableStmt(schema, table string, cols []Column) string

	// DisableSessionRestrictions returns the statement(s) that suspend
	// referential-integrity checking for the session, or nil if this
	// engine has no such facility.
	DisableSessionRestrictions(schema string) []string

	// RestoreSessionRestrictions undoes DisableSessionRestrictions.
	RestoreSessionRestrictions(schema string) []string

	quoteIdentifier(name string) string
}

var dialectRegistry = map[EngineID]Dialect{
	EngineOracle:    OracleDialect{},
	EnginePostgres:  PostgresDialect{},
	EngineSQLServer: SQLServerDialect{},
	EngineMySQL:     MySQLDialect{},
}

// getDialect looks up the Dialect for an engine. ok is false for any
// engine outside the closed set this package supports.
func getDialect(engine EngineID) (Dialect, bool) {
	d, ok := dialectRegistry[engine]
	return d, ok
}

func quoteIdentDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteIdentBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func buildColumnDDL(d Dialect, c Column) string {
	var sb strings.Builder
	sb.WriteString(d.quoteIdentifier(c.Name))
	sb.WriteByte(' ')
	sb.WriteString(c.TargetType)
	if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if c.ServerDefault != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.ServerDefault)
	}
	return sb.String()
}

func primaryKeyColumns(cols []Column) []string {
	var pk []string
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

func tableDefs(d Dialect, schema string, cols []Column) []string {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, buildColumnDDL(d, c))
	}
	if pk := primaryKeyColumns(cols); len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, n := range pk {
			quoted[i] = d.quoteIdentifier(n)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	for _, c := range cols {
		if c.ForeignKey != nil {
			defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s.%s (%s)",
				d.quoteIdentifier(c.Name), d.quoteIdentifier(schema),
				d.quoteIdentifier(c.ForeignKey.Table), d.quoteIdentifier(c.ForeignKey.Column)))
		}
	}
	return defs
}

// --- Postgres ---------------------------------------------------------------

type PostgresDialect struct{}

func (PostgresDialect) Engine() EngineID { return EnginePostgres }

func (PostgresDialect) ConnectionURI(p ConnParams) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Pwd, p.Host, p.Port, p.Name)
}

func (PostgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (PostgresDialect) quoteIdentifier(name string) string { return quoteIdentDouble(name) }

func (d PostgresDialect) BulkInsertStmt(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func (d PostgresDialect) DropTableStmt(schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s CASCADE",
		d.quoteIdentifier(schema), d.quoteIdentifier(table))
}

func (d PostgresDialect) DropViewStmt(schema, view string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s.%s CASCADE",
		d.quoteIdentifier(schema), d.quoteIdentifier(view))
}

func (d PostgresDialect) CreateSchemaStmt(schema, owner string) string {
	if owner == "" {
		return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.quoteIdentifier(schema))
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s",
		d.quoteIdentifier(schema), d.quoteIdentifier(owner))
}

func (d PostgresDialect) CreateTableStmt(schema, table string, cols []Column) string {
	defs := tableDefs(d, schema, cols)
	return fmt.Sprintf("CREATE TABLE %s.%s (\n  %s\n)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table), strings.Join(defs, ",\n  "))
}

// DisableSessionRestrictions suspends FK/trigger enforcement for the
// session, restored by RestoreSessionRestrictions. Postgres is not one of
// the engines the Python original treats as a no-op.
func (PostgresDialect) DisableSessionRestrictions(schema string) []string {
	return []string{"SET SESSION_REPLICATION_ROLE TO REPLICA"}
}

func (PostgresDialect) RestoreSessionRestrictions(schema string) []string {
	return []string{"SET SESSION_REPLICATION_ROLE TO DEFAULT"}
}

// --- Oracle -------------------------------------------------------------

type OracleDialect struct{}

func (OracleDialect) Engine() EngineID { return EngineOracle }

func (OracleDialect) ConnectionURI(p ConnParams) string {
	return fmt.Sprintf(`(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SERVICE_NAME=%s)))`,
		p.Host, p.Port, p.Name)
}

func (OracleDialect) Placeholder(n int) string { return ":" + strconv.Itoa(n) }

func (OracleDialect) quoteIdentifier(name string) string { return quoteIdentDouble(name) }

func (d OracleDialect) BulkInsertStmt(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// DropTableStmt swallows ORA-00942 (table does not exist) via an
// anonymous PL/SQL block, since Oracle's DROP TABLE has no IF EXISTS
// clause. Mirrors the idempotency idiom the original's database step
// module applies uniformly across engines.
func (d OracleDialect) DropTableStmt(schema, table string) string {
	full := d.quoteIdentifier(schema) + "." + d.quoteIdentifier(table)
	return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE 'DROP TABLE %s CASCADE CONSTRAINTS';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -942 THEN
      RAISE;
    END IF;
END;`, full)
}

func (d OracleDialect) DropViewStmt(schema, view string) string {
	full := d.quoteIdentifier(schema) + "." + d.quoteIdentifier(view)
	return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE 'DROP VIEW %s';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -942 THEN
      RAISE;
    END IF;
END;`, full)
}

// CreateSchemaStmt ignores owner: Oracle has no AUTHORIZATION clause, so
// the schema and its owning user are the same identifier, created with
// its own name as the password, matching the Python original's
// pydb_oracle.create_schema.
func (d OracleDialect) CreateSchemaStmt(schema, owner string) string {
	return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE 'CREATE USER %[1]s IDENTIFIED BY %[1]s';
  EXECUTE IMMEDIATE 'GRANT CONNECT, RESOURCE TO %[1]s';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -1920 THEN
      RAISE;
    END IF;
END;`, d.quoteIdentifier(schema))
}

func (d OracleDialect) CreateTableStmt(schema, table string, cols []Column) string {
	defs := tableDefs(d, schema, cols)
	return fmt.Sprintf("CREATE TABLE %s.%s (\n  %s\n)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table), strings.Join(defs, ",\n  "))
}

// DisableSessionRestrictions is a no-op on Oracle: the original's
// pydb_oracle.disable_restrictions never issues a statement. Preserved
// here rather than "fixed" -- spec.md §9 calls this out as a genuine
// engine limitation, not a bug.
func (OracleDialect) DisableSessionRestrictions(schema string) []string { return nil }

func (OracleDialect) RestoreSessionRestrictions(schema string) []string { return nil }

// --- SQL Server -----------------------------------------------------------

type SQLServerDialect struct{}

func (SQLServerDialect) Engine() EngineID { return EngineSQLServer }

// ConnectionURI reads p -- its OWN ConnParams -- unlike the Python
// original's pydb_sqlserver.build_connection_string, which (per spec.md
// §9) mistakenly calls db_get_params("postgres") and so always opens
// against the Postgres connection parameters. That is the bug this
// adapter fixes.
func (SQLServerDialect) ConnectionURI(p ConnParams) string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		p.User, p.Pwd, p.Host, p.Port, p.Name)
}

func (SQLServerDialect) Placeholder(n int) string { return "?" }

func (SQLServerDialect) quoteIdentifier(name string) string { return quoteIdentBracket(name) }

func (d SQLServerDialect) BulkInsertStmt(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func (d SQLServerDialect) DropTableStmt(schema, table string) string {
	full := d.quoteIdentifier(schema) + "." + d.quoteIdentifier(table)
	return fmt.Sprintf("IF OBJECT_ID('%s.%s', 'U') IS NOT NULL DROP TABLE %s", schema, table, full)
}

func (d SQLServerDialect) DropViewStmt(schema, view string) string {
	full := d.quoteIdentifier(schema) + "." + d.quoteIdentifier(view)
	return fmt.Sprintf("IF OBJECT_ID('%s.%s', 'V') IS NOT NULL DROP VIEW %s", schema, view, full)
}

func (d SQLServerDialect) CreateSchemaStmt(schema, owner string) string {
	create := fmt.Sprintf("CREATE SCHEMA %s", d.quoteIdentifier(schema))
	if owner != "" {
		create = fmt.Sprintf("CREATE SCHEMA %s AUTHORIZATION %s", d.quoteIdentifier(schema), d.quoteIdentifier(owner))
	}
	return fmt.Sprintf("IF NOT EXISTS (SELECT * FROM sys.schemas WHERE name = '%s') EXEC('%s')", schema, create)
}

func (d SQLServerDialect) CreateTableStmt(schema, table string, cols []Column) string {
	defs := tableDefs(d, schema, cols)
	return fmt.Sprintf("CREATE TABLE %s.%s (\n  %s\n)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table), strings.Join(defs, ",\n  "))
}

// DisableSessionRestrictions toggles CHECK CONSTRAINT off for every user
// table in the connected database; sp_MSforeachtable is not limited to one
// schema, so schema is unused. Unlike Postgres's single
// SESSION_REPLICATION_ROLE knob, SQL Server has no session-wide switch, so
// this enumerates tables via sp_MSforeachtable -- a small, deliberate expansion beyond a literal
// translation of the Python original (which treats SQL Server as a no-op
// only because its connection-string bug meant it never actually ran
// against SQL Server).
func (SQLServerDialect) DisableSessionRestrictions(schema string) []string {
	return []string{`EXEC sp_MSforeachtable "ALTER TABLE ? NOCHECK CONSTRAINT ALL"`}
}

func (SQLServerDialect) RestoreSessionRestrictions(schema string) []string {
	return []string{`EXEC sp_MSforeachtable "ALTER TABLE ? WITH CHECK CHECK CONSTRAINT ALL"`}
}

// --- MySQL ------------------------------------------------------------------

type MySQLDialect struct{}

func (MySQLDialect) Engine() EngineID { return EngineMySQL }

func (MySQLDialect) ConnectionURI(p ConnParams) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", p.User, p.Pwd, p.Host, p.Port, p.Name)
}

func (MySQLDialect) Placeholder(n int) string { return "?" }

func (MySQLDialect) quoteIdentifier(name string) string { return quoteIdentBacktick(name) }

func (d MySQLDialect) BulkInsertStmt(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quoteIdentifier(c)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		d.quoteIdentifier(schema), d.quoteIdentifier(table),
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

func (d MySQLDialect) DropTableStmt(schema, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", d.quoteIdentifier(schema), d.quoteIdentifier(table))
}

func (d MySQLDialect) DropViewStmt(schema, view string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s.%s", d.quoteIdentifier(schema), d.quoteIdentifier(view))
}

func (d MySQLDialect) CreateSchemaStmt(schema, owner string) string {
	if owner == "" {
		return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.quoteIdentifier(schema))
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s",
		d.quoteIdentifier(schema), d.quoteIdentifier(owner))
}

func (d MySQLDialect) CreateTableStmt(schema, table string, cols []Column) string {
	defs := tableDefs(d, schema, cols)
	return fmt.Sprintf("CREATE TABLE %s.%s (\n  %s\n) ENGINE=InnoDB",
		d.quoteIdentifier(schema), d.quoteIdentifier(table), strings.Join(defs, ",\n  "))
}

// DisableSessionRestrictions is a no-op on MySQL, matching the Python
// original's pydb_migrator.disable_session_restrictions: it special-cases
// only Postgres and leaves every other engine untouched.
func (MySQLDialect) DisableSessionRestrictions(schema string) []string { return nil }

func (MySQLDialect) RestoreSessionRestrictions(schema string) []string { return nil }
