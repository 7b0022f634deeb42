package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oarkflow/squealx"
)

// Reflector recovers a schema's table/column/constraint structure directly
// from an engine's own catalog. The Python original delegates this to
// SQLAlchemy's Inspector/MetaData.reflect, which has no Go analog in the
// retrieved pack, so each engine here queries its catalog views by hand.
type Reflector interface {
	ReflectTables(ctx context.Context, db *squealx.DB, schema string) ([]Table, error)

	// ListSchemas returns the case-preserving names of every schema
	// visible to the connection, so callers can resolve a configured
	// schema name case-insensitively the way the Python original's
	// inspector.get_schema_names() loop does.
	ListSchemas(ctx context.Context, db *squealx.DB) ([]string, error)
}

func getReflector(engine EngineID) (Reflector, bool) {
	r, ok := reflectorRegistry[engine]
	return r, ok
}

var reflectorRegistry = map[EngineID]Reflector{
	EngineOracle:    OracleReflector{},
	EnginePostgres:  PostgresReflector{},
	EngineSQLServer: SQLServerReflector{},
	EngineMySQL:     MySQLReflector{},
}

type columnRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
	Nullable   bool   `db:"nullable"`
	Default    string `db:"column_default"`
}

type pkRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
}

type fkRow struct {
	TableName    string `db:"table_name"`
	ColumnName   string `db:"column_name"`
	RefTable     string `db:"ref_table"`
	RefColumn    string `db:"ref_column"`
}

// assemble turns the three catalog row sets into ranked Table values.
// Rank is computed by a stable topological sort over the FK graph: a
// table with no unresolved parent gets the next rank, repeated until
// every table is placed (cycles, which a well-formed schema shouldn't
// have, are broken by placing the remaining tables in name order).
func assemble(schema string, tableNames []string, cols []columnRow, pks []pkRow, fks []fkRow) []Table {
	pkSet := make(map[string]map[string]bool)
	for _, r := range pks {
		if pkSet[r.TableName] == nil {
			pkSet[r.TableName] = map[string]bool{}
		}
		pkSet[r.TableName][r.ColumnName] = true
	}
	fkByTableCol := make(map[string]map[string]ForeignKeyRef)
	deps := make(map[string]map[string]bool)
	for _, r := range fks {
		if fkByTableCol[r.TableName] == nil {
			fkByTableCol[r.TableName] = map[string]ForeignKeyRef{}
		}
		fkByTableCol[r.TableName][r.ColumnName] = ForeignKeyRef{Table: r.RefTable, Column: r.RefColumn}
		if deps[r.TableName] == nil {
			deps[r.TableName] = map[string]bool{}
		}
		if r.RefTable != r.TableName {
			deps[r.TableName][r.RefTable] = true
		}
	}

	colsByTable := make(map[string][]Column)
	order := make(map[string][]string)
	for _, c := range cols {
		col := Column{
			Name:       c.ColumnName,
			SourceType: c.DataType,
			Nullable:   c.Nullable,
			Default:    c.Default,
			PrimaryKey: pkSet[c.TableName][c.ColumnName],
		}
		if fk, ok := fkByTableCol[c.TableName][c.ColumnName]; ok {
			ref := fk
			col.ForeignKey = &ref
		}
		colsByTable[c.TableName] = append(colsByTable[c.TableName], col)
		order[c.TableName] = append(order[c.TableName], c.ColumnName)
	}

	rank := topoRank(tableNames, deps)

	tables := make([]Table, 0, len(tableNames))
	for _, name := range tableNames {
		tables = append(tables, Table{
			Schema:  schema,
			Name:    name,
			Columns: colsByTable[name],
			Rank:    rank[name],
		})
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Rank != tables[j].Rank {
			return tables[i].Rank < tables[j].Rank
		}
		return tables[i].Name < tables[j].Name
	})
	return tables
}

func topoRank(tableNames []string, deps map[string]map[string]bool) map[string]int {
	rank := make(map[string]int, len(tableNames))
	placed := make(map[string]bool, len(tableNames))
	remaining := append([]string(nil), tableNames...)
	sort.Strings(remaining)

	for level := 0; len(remaining) > 0; level++ {
		var ready, rest []string
		for _, t := range remaining {
			ok := true
			for dep := range deps[t] {
				if !placed[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, t)
			} else {
				rest = append(rest, t)
			}
		}
		if len(ready) == 0 {
			// Dependency cycle: place everything left in name order and stop.
			ready, rest = rest, nil
		}
		for _, t := range ready {
			rank[t] = level
			placed[t] = true
		}
		remaining = rest
	}
	return rank
}

// --- Postgres -----------------------------------------------------------

type PostgresReflector struct{}

func (PostgresReflector) ListSchemas(ctx context.Context, db *squealx.DB) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SELECT schema_name FROM information_schema.schemata`)
	return names, err
}

func (PostgresReflector) ReflectTables(ctx context.Context, db *squealx.DB, schema string) ([]Table, error) {
	var tableNames []string
	if err := db.SelectContext(ctx, &tableNames, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'`, schema); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var cols []columnRow
	if err := db.SelectContext(ctx, &cols, `
		SELECT table_name, column_name, data_type, (is_nullable = 'YES') AS nullable,
		       COALESCE(column_default, '') AS column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, schema); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	var pks []pkRow
	if err := db.SelectContext(ctx, &pks, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'`, schema); err != nil {
		return nil, fmt.Errorf("list primary keys: %w", err)
	}

	var fks []fkRow
	if err := db.SelectContext(ctx, &fks, `
		SELECT tc.table_name, kcu.column_name,
		       ccu.table_name AS ref_table, ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'`, schema); err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	return assemble(schema, tableNames, cols, pks, fks), nil
}

// --- MySQL ----------------------------------------------------------------

type MySQLReflector struct{}

func (MySQLReflector) ListSchemas(ctx context.Context, db *squealx.DB) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SELECT schema_name FROM information_schema.schemata`)
	return names, err
}

func (MySQLReflector) ReflectTables(ctx context.Context, db *squealx.DB, schema string) ([]Table, error) {
	var tableNames []string
	if err := db.SelectContext(ctx, &tableNames, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'`, schema); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var cols []columnRow
	if err := db.SelectContext(ctx, &cols, `
		SELECT table_name, column_name, data_type, (is_nullable = 'YES') AS nullable,
		       COALESCE(column_default, '') AS column_default
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`, schema); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	var pks []pkRow
	if err := db.SelectContext(ctx, &pks, `
		SELECT table_name, column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND constraint_name = 'PRIMARY'`, schema); err != nil {
		return nil, fmt.Errorf("list primary keys: %w", err)
	}

	var fks []fkRow
	if err := db.SelectContext(ctx, &fks, `
		SELECT table_name, column_name,
		       referenced_table_name AS ref_table, referenced_column_name AS ref_column
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND referenced_table_name IS NOT NULL`, schema); err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	return assemble(schema, tableNames, cols, pks, fks), nil
}

// --- SQL Server -------------------------------------------------------------

type SQLServerReflector struct{}

func (SQLServerReflector) ListSchemas(ctx context.Context, db *squealx.DB) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SELECT schema_name FROM information_schema.schemata`)
	return names, err
}

func (SQLServerReflector) ReflectTables(ctx context.Context, db *squealx.DB, schema string) ([]Table, error) {
	var tableNames []string
	if err := db.SelectContext(ctx, &tableNames, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'`, schema); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var cols []columnRow
	if err := db.SelectContext(ctx, &cols, `
		SELECT table_name, column_name, data_type,
		       CAST(CASE WHEN is_nullable = 'YES' THEN 1 ELSE 0 END AS BIT) AS nullable,
		       COALESCE(column_default, '') AS column_default
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`, schema); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	var pks []pkRow
	if err := db.SelectContext(ctx, &pks, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = ? AND tc.constraint_type = 'PRIMARY KEY'`, schema); err != nil {
		return nil, fmt.Errorf("list primary keys: %w", err)
	}

	var fks []fkRow
	if err := db.SelectContext(ctx, &fks, `
		SELECT fk_tc.table_name, kcu1.column_name,
		       kcu2.table_name AS ref_table, kcu2.column_name AS ref_column
		FROM information_schema.referential_constraints rc
		JOIN information_schema.table_constraints fk_tc ON rc.constraint_name = fk_tc.constraint_name
		JOIN information_schema.key_column_usage kcu1 ON fk_tc.constraint_name = kcu1.constraint_name
		JOIN information_schema.key_column_usage kcu2
		  ON rc.unique_constraint_name = kcu2.constraint_name AND kcu1.ordinal_position = kcu2.ordinal_position
		WHERE fk_tc.table_schema = ?`, schema); err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	return assemble(schema, tableNames, cols, pks, fks), nil
}

// --- Oracle -----------------------------------------------------------------

type OracleReflector struct{}

func (OracleReflector) ListSchemas(ctx context.Context, db *squealx.DB) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SELECT username FROM all_users`)
	return names, err
}

func (OracleReflector) ReflectTables(ctx context.Context, db *squealx.DB, schema string) ([]Table, error) {
	owner := strings.ToUpper(schema)

	var tableNames []string
	if err := db.SelectContext(ctx, &tableNames, `
		SELECT table_name FROM all_tables WHERE owner = :1`, owner); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var cols []columnRow
	if err := db.SelectContext(ctx, &cols, `
		SELECT table_name, column_name,
		       data_type || NVL2(data_precision, '(' || data_precision || NVL2(data_scale, ',' || data_scale, '') || ')', '') AS data_type,
		       (nullable = 'Y') AS nullable,
		       NVL(data_default, '') AS column_default
		FROM all_tab_columns
		WHERE owner = :1
		ORDER BY table_name, column_id`, owner); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}

	var pks []pkRow
	if err := db.SelectContext(ctx, &pks, `
		SELECT acc.table_name, acc.column_name
		FROM all_constraints ac
		JOIN all_cons_columns acc ON ac.constraint_name = acc.constraint_name AND ac.owner = acc.owner
		WHERE ac.owner = :1 AND ac.constraint_type = 'P'`, owner); err != nil {
		return nil, fmt.Errorf("list primary keys: %w", err)
	}

	var fks []fkRow
	if err := db.SelectContext(ctx, &fks, `
		SELECT acc.table_name, acc.column_name,
		       r_acc.table_name AS ref_table, r_acc.column_name AS ref_column
		FROM all_constraints ac
		JOIN all_cons_columns acc ON ac.constraint_name = acc.constraint_name AND ac.owner = acc.owner
		JOIN all_cons_columns r_acc ON ac.r_constraint_name = r_acc.constraint_name AND ac.owner = r_acc.owner
		WHERE ac.owner = :1 AND ac.constraint_type = 'R'`, owner); err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	return assemble(schema, tableNames, cols, pks, fks), nil
}
