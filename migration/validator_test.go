package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/oarkflow/squealx"
)

// fakeRegistry is a DriverRegistry double driven entirely by the
// unreachable set, so Validate's connection-reachability rule can be
// exercised without a live database.
type fakeRegistry struct {
	unreachable map[EngineID]bool
}

func (f *fakeRegistry) Engines() []EngineID { return nil }

func (f *fakeRegistry) Params(engine EngineID) (ConnParams, bool) { return ConnParams{}, false }

func (f *fakeRegistry) AssertConnection(ctx context.Context, engine EngineID) error {
	if f.unreachable[engine] {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeRegistry) Connect(ctx context.Context, engine EngineID) (*squealx.DB, error) {
	return nil, errors.New("fakeRegistry does not open real connections")
}

func (f *fakeRegistry) Execute(ctx context.Context, conn *squealx.DB, stmt string) error {
	return errors.New("fakeRegistry does not execute statements")
}

func (f *fakeRegistry) BulkCopy(ctx context.Context, sourceConn, targetConn *squealx.DB, selStmt, insStmt string, batchSize int) (int, error) {
	return 0, errors.New("fakeRegistry does not bulk-copy rows")
}

func validConfig() *Configuration {
	return &Configuration{
		FromRDBMS:       EngineOracle,
		ToRDBMS:         EnginePostgres,
		FromSchema:      "APP",
		ToSchema:        "app",
		MigrateMetadata: true,
	}
}

func TestValidateAcceptsACleanConfig(t *testing.T) {
	cfg := validConfig()
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateRejectsUnknownEngine(t *testing.T) {
	cfg := validConfig()
	cfg.FromRDBMS = "db2"
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindEngineUnknown) {
		t.Errorf("expected KindEngineUnknown, got %v", errs)
	}
}

func TestValidateRejectsSameEngineOnBothSides(t *testing.T) {
	cfg := validConfig()
	cfg.ToRDBMS = cfg.FromRDBMS
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindEnginePairInvalid) {
		t.Errorf("expected KindEnginePairInvalid, got %v", errs)
	}
}

func TestValidateRejectsNoMigrationStep(t *testing.T) {
	cfg := validConfig()
	cfg.MigrateMetadata = false
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindStepIncoherent) {
		t.Errorf("expected KindStepIncoherent, got %v", errs)
	}
}

func TestValidateRejectsLOBWithoutPlainData(t *testing.T) {
	cfg := validConfig()
	cfg.MigrateLOBData = true
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindStepIncoherent) {
		t.Errorf("expected KindStepIncoherent for LOB-without-plain-data, got %v", errs)
	}
}

func TestValidateRejectsIncludeAndExcludeTogether(t *testing.T) {
	cfg := validConfig()
	cfg.IncludeTables = []string{"orders"}
	cfg.ExcludeTables = []string{"audit_log"}
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindMutuallyExclusive) {
		t.Errorf("expected KindMutuallyExclusive, got %v", errs)
	}
}

func TestValidateRejectsUnreachableConnections(t *testing.T) {
	cfg := validConfig()
	registry := &fakeRegistry{unreachable: map[EngineID]bool{EnginePostgres: true}}
	errs := Validate(context.Background(), cfg, registry)
	if !hasFatal(errs, KindConnectionUnavailable) {
		t.Errorf("expected KindConnectionUnavailable, got %v", errs)
	}
}

func TestValidateRejectsOutOfRangeBatchSize(t *testing.T) {
	cfg := validConfig()
	cfg.BatchSize = MaxBatchSize + 1
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindOutOfRange) {
		t.Errorf("expected KindOutOfRange, got %v", errs)
	}
}

func TestValidateRejectsUnrecognizedExternalColumnType(t *testing.T) {
	cfg := validConfig()
	cfg.ExternalColumns = []ExternalColumn{{ColumnName: "weird_col", ColumnType: "nonsense garbage;"}}
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindTypeUnknown) {
		t.Errorf("expected KindTypeUnknown, got %v", errs)
	}
}

func TestValidateAcceptsRawSQLExternalColumnType(t *testing.T) {
	cfg := validConfig()
	cfg.ExternalColumns = []ExternalColumn{{ColumnName: "geom", ColumnType: "geometry(Point,4326)"}}
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if hasFatal(errs, KindTypeUnknown) {
		t.Errorf("did not expect KindTypeUnknown for a raw-SQL-looking override, got %v", errs)
	}
}

func TestCertifiedPairsOnlyOracleToPostgres(t *testing.T) {
	pairs := certifiedPairs()
	if !pairs[[2]EngineID{EngineOracle, EnginePostgres}] {
		t.Error("expected oracle -> postgres to be certified")
	}
	engines := []EngineID{EngineOracle, EnginePostgres, EngineSQLServer, EngineMySQL}
	for _, a := range engines {
		for _, b := range engines {
			if a == EngineOracle && b == EnginePostgres {
				continue
			}
			if a == b {
				continue
			}
			if pairs[[2]EngineID{a, b}] {
				t.Errorf("expected %s -> %s to be uncertified", a, b)
			}
		}
	}
}

func TestValidateRejectsUncertifiedPair(t *testing.T) {
	cfg := validConfig()
	cfg.FromRDBMS = EngineOracle
	cfg.ToRDBMS = EngineSQLServer
	errs := Validate(context.Background(), cfg, &fakeRegistry{})
	if !hasFatal(errs, KindPairUncertified) {
		t.Errorf("expected KindPairUncertified for oracle -> sqlserver, got %v", errs)
	}
}
