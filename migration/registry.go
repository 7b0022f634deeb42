package migration

import (
	"context"
	"fmt"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/rdbmigrate/migration/drivers"
)

// DriverRegistry resolves each configured engine to its connection
// parameters and hands out live connections. The Orchestrator owns
// everything it opens through a registry and closes it on every exit
// path. It is also the seam through which the Schema Migration Pipeline
// and Bulk Copy Engine issue their DDL and row copies; catalog reads during
// reflection go through a Reflector, which queries the connection directly.
type DriverRegistry interface {
	// Engines lists the engines this registry has parameters for.
	Engines() []EngineID

	// Params returns the connection parameters for engine, if configured.
	Params(engine EngineID) (ConnParams, bool)

	// AssertConnection reports whether engine is reachable with its
	// configured parameters, without keeping the connection open.
	AssertConnection(ctx context.Context, engine EngineID) error

	// Connect opens a live connection to engine. The caller closes it.
	Connect(ctx context.Context, engine EngineID) (*squealx.DB, error)

	// Execute runs a single DDL/DML statement with no result set against
	// an already-open connection.
	Execute(ctx context.Context, conn *squealx.DB, stmt string) error

	// BulkCopy streams the rows selected by selStmt on sourceConn and
	// batches them into insStmt on targetConn, committing every
	// batchSize rows. It returns the number of rows successfully
	// committed even when a later batch fails, so the caller can tell a
	// partial copy from no copy at all.
	BulkCopy(ctx context.Context, sourceConn, targetConn *squealx.DB, selStmt, insStmt string, batchSize int) (int, error)
}

// SquealxRegistry is the default DriverRegistry, backed by
// github.com/oarkflow/squealx and this repo's per-engine driver
// wrappers in migration/drivers.
type SquealxRegistry struct {
	params map[EngineID]ConnParams
}

// NewSquealxRegistry builds a registry from a fixed set of per-engine
// connection parameters.
func NewSquealxRegistry(params map[EngineID]ConnParams) *SquealxRegistry {
	cp := make(map[EngineID]ConnParams, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return &SquealxRegistry{params: cp}
}

func (r *SquealxRegistry) Engines() []EngineID {
	engines := make([]EngineID, 0, len(r.params))
	for e := range r.params {
		engines = append(engines, e)
	}
	return engines
}

func (r *SquealxRegistry) Params(engine EngineID) (ConnParams, bool) {
	p, ok := r.params[engine]
	return p, ok
}

func (r *SquealxRegistry) Connect(ctx context.Context, engine EngineID) (*squealx.DB, error) {
	p, ok := r.params[engine]
	if !ok {
		return nil, fmt.Errorf("no connection parameters configured for engine %q", engine)
	}
	dialect, ok := getDialect(engine)
	if !ok {
		return nil, fmt.Errorf("unsupported engine %q", engine)
	}
	dsn := dialect.ConnectionURI(p)

	switch engine {
	case EnginePostgres:
		return drivers.OpenPostgres(dsn)
	case EngineMySQL:
		return drivers.OpenMySQL(dsn)
	case EngineOracle:
		return drivers.OpenOracle(dsn)
	case EngineSQLServer:
		return drivers.OpenSQLServer(dsn)
	default:
		return nil, fmt.Errorf("unsupported engine %q", engine)
	}
}

func (r *SquealxRegistry) AssertConnection(ctx context.Context, engine EngineID) error {
	db, err := r.Connect(ctx, engine)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func (r *SquealxRegistry) Execute(ctx context.Context, conn *squealx.DB, stmt string) error {
	_, err := conn.ExecContext(ctx, stmt)
	return err
}

func (r *SquealxRegistry) BulkCopy(ctx context.Context, sourceConn, targetConn *squealx.DB, selStmt, insStmt string, batchSize int) (int, error) {
	rows, err := sourceConn.QueryxContext(ctx, selStmt)
	if err != nil {
		return 0, fmt.Errorf("select from source: %w", err)
	}
	defer rows.Close()

	total := 0
	tx, err := targetConn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin target transaction: %w", err)
	}
	inBatch := 0

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			tx.Rollback()
			return total - inBatch, fmt.Errorf("scan source row: %w", err)
		}
		if _, err := tx.Exec(insStmt, values...); err != nil {
			tx.Rollback()
			return total - inBatch, fmt.Errorf("insert into target: %w", err)
		}
		inBatch++
		total++
		if inBatch >= batchSize {
			if err := tx.Commit(); err != nil {
				return total - inBatch, fmt.Errorf("commit batch: %w", err)
			}
			tx, err = targetConn.Begin()
			if err != nil {
				return total, fmt.Errorf("begin next batch: %w", err)
			}
			inBatch = 0
		}
	}
	if err := rows.Err(); err != nil {
		tx.Rollback()
		return total - inBatch, fmt.Errorf("iterate source rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return total - inBatch, fmt.Errorf("commit final batch: %w", err)
	}
	return total, nil
}
