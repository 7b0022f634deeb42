package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oarkflow/squealx"
)

// connectFailRegistry fails Connect for every engine except those listed
// in ok, letting Migrate's connection-handling paths be exercised without
// a live database.
type connectFailRegistry struct {
	ok map[EngineID]bool
}

func (r *connectFailRegistry) Engines() []EngineID { return nil }

func (r *connectFailRegistry) Params(engine EngineID) (ConnParams, bool) { return ConnParams{}, false }

func (r *connectFailRegistry) AssertConnection(ctx context.Context, engine EngineID) error {
	if r.ok[engine] {
		return nil
	}
	return errors.New("unreachable")
}

func (r *connectFailRegistry) Connect(ctx context.Context, engine EngineID) (*squealx.DB, error) {
	if r.ok[engine] {
		return nil, errors.New("fake registry has no real connections to hand out")
	}
	return nil, fmt.Errorf("cannot connect to %s", engine)
}

func (r *connectFailRegistry) Execute(ctx context.Context, conn *squealx.DB, stmt string) error {
	return errors.New("fake registry cannot execute against a connection it never opened")
}

func (r *connectFailRegistry) BulkCopy(ctx context.Context, sourceConn, targetConn *squealx.DB, selStmt, insStmt string, batchSize int) (int, error) {
	return 0, errors.New("fake registry cannot bulk-copy without real connections")
}

// TestMigrateStillReportsWhenSourceUnreachable is the regression test for
// spec.md §4.F step 3 / §7: a connection failure must abort data copy
// but never suppress the report -- Migrate always hands back a Report,
// with whatever metadata outcomes (none, here) it could compute.
func TestMigrateStillReportsWhenSourceUnreachable(t *testing.T) {
	cfg := validConfig()
	registry := &connectFailRegistry{}
	report, err := Migrate(context.Background(), cfg, registry)
	if err == nil {
		t.Fatal("expected an error when the source connection cannot be opened")
	}
	if report == nil {
		t.Fatal("expected a non-nil report even when the source connection fails outright")
	}
	if len(report.MigratedTables) != 0 {
		t.Errorf("expected no migrated tables when the connection never opened, got %v", report.MigratedTables)
	}
}

func TestMigrationErrorsFormatsEveryRecord(t *testing.T) {
	errs := MigrationErrors{
		newError(KindEngineUnknown, CodeInvalidValue, "db2", "unknown or unconfigured RDBMS engine", "from-rdbms"),
		newError(KindStepIncoherent, CodeGeneric, nil, "at least one migration step must be indicated", ""),
	}
	msg := errs.Error()
	if !containsAll(msg, "unknown or unconfigured RDBMS engine", "at least one migration step must be indicated") {
		t.Errorf("expected both error messages in Error(), got %q", msg)
	}
	if len(errs.Errors()) != 2 {
		t.Errorf("expected Errors() to return both records, got %d", len(errs.Errors()))
	}
}
