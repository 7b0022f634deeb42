package migration

import (
	"context"
	"strings"
)

// Validate checks cfg against the rules spec.md §4.C names, in the same
// order as the Python original's pydb_validator.assert_migration: engine
// pair, numeric parameter ranges, migration-step coherence, connection
// reachability for both engines, the include/exclude mutual exclusion, and
// external-column types. Errors accumulate; Validate never stops at the
// first problem.
func Validate(ctx context.Context, cfg *Configuration, registry DriverRegistry) []MigrationError {
	var errs []MigrationError

	source, target := assertRDBMSDual(&errs, cfg)
	assertMigrationParams(&errs, cfg)
	assertMigrationSteps(&errs, cfg)

	if source != "" && registry != nil {
		if err := registry.AssertConnection(ctx, source); err != nil {
			errs = append(errs, newError(KindConnectionUnavailable, CodeUnexpected, string(source),
				Sanitize(err.Error()), "from-rdbms"))
		}
	}
	if target != "" && registry != nil {
		if err := registry.AssertConnection(ctx, target); err != nil {
			errs = append(errs, newError(KindConnectionUnavailable, CodeUnexpected, string(target),
				Sanitize(err.Error()), "to-rdbms"))
		}
	}

	if len(cfg.IncludeTables) > 0 && len(cfg.ExcludeTables) > 0 {
		errs = append(errs, newError(KindMutuallyExclusive, CodeOutOfRange, nil,
			"attributes cannot be assigned values at the same time", "include-tables, exclude-tables"))
	}

	assertColumnTypes(&errs, cfg)

	return errs
}

// certifiedPairs is the closed set of migration paths this package
// certifies, mirroring the Python original's hard-coded single pair:
// oracle -> postgres. The Dialect Adapters and Type Equivalence Engine
// are written generically across all four engines, but that is an
// implementation detail -- only the oracle -> postgres path has actually
// been validated end to end, so every other ordered pair still reports
// KindPairUncertified.
func certifiedPairs() map[[2]EngineID]bool {
	return map[[2]EngineID]bool{
		{EngineOracle, EnginePostgres}: true,
	}
}

func assertRDBMSDual(errs *[]MigrationError, cfg *Configuration) (EngineID, EngineID) {
	source, target := cfg.FromRDBMS, cfg.ToRDBMS

	if _, ok := getDialect(source); !ok {
		*errs = append(*errs, newError(KindEngineUnknown, CodeInvalidValue, string(source),
			"unknown or unconfigured RDBMS engine", "from-rdbms"))
		source = ""
	}
	if _, ok := getDialect(target); !ok {
		*errs = append(*errs, newError(KindEngineUnknown, CodeInvalidValue, string(target),
			"unknown or unconfigured RDBMS engine", "to-rdbms"))
		target = ""
	}

	if source != "" && source == target {
		*errs = append(*errs, newError(KindEnginePairInvalid, CodeConflict, string(source),
			"cannot be assigned for attributes 'from-rdbms' and 'to-rdbms' at the same time", ""))
	}

	if len(*errs) == 0 && source != "" && target != "" && !certifiedPairs()[[2]EngineID{source, target}] {
		*errs = append(*errs, newError(KindPairUncertified, CodeGeneric, nil,
			"this migration path has not been validated yet", ""))
	}

	return source, target
}

func assertMigrationParams(errs *[]MigrationError, cfg *Configuration) {
	if cfg.BatchSize != 0 && (cfg.BatchSize < MinBatchSize || cfg.BatchSize > MaxBatchSize) {
		*errs = append(*errs, newError(KindOutOfRange, CodeOutOfRange, cfg.BatchSize,
			"must be in the configured range", "batch-size"))
	}
	if cfg.ChunkSize != 0 && (cfg.ChunkSize < MinChunkSize || cfg.ChunkSize > MaxChunkSize) {
		*errs = append(*errs, newError(KindOutOfRange, CodeOutOfRange, cfg.ChunkSize,
			"must be in the configured range", "chunk-size"))
	}
	if cfg.MaxProcesses != 0 && (cfg.MaxProcesses < MinMaxProcesses || cfg.MaxProcesses > MaxMaxProcesses) {
		*errs = append(*errs, newError(KindOutOfRange, CodeOutOfRange, cfg.MaxProcesses,
			"must be in the configured range", "max-processes"))
	}
}

func assertMigrationSteps(errs *[]MigrationError, cfg *Configuration) {
	switch {
	case !cfg.MigrateMetadata && !cfg.MigratePlainData && !cfg.MigrateLOBData:
		*errs = append(*errs, newError(KindStepIncoherent, CodeGeneric, nil,
			"at least one migration step must be indicated", ""))
	case cfg.MigrateMetadata && cfg.MigrateLOBData && !cfg.MigratePlainData:
		*errs = append(*errs, newError(KindStepIncoherent, CodeGeneric, nil,
			"migrating the metadata and the LOBs requires migrating the plain data as well", ""))
	}
}

// assertColumnTypes checks each configured external-column override
// against the target engine's keyword table. An override the classifier
// recognizes is accepted; one it does not recognize is accepted only if
// looksLikeRawSQL allows it, and reported as KindTypeUnknown otherwise.
func assertColumnTypes(errs *[]MigrationError, cfg *Configuration) {
	if len(cfg.ExternalColumns) == 0 {
		return
	}
	templates := targetTemplates[cfg.ToRDBMS]
	for _, ec := range cfg.ExternalColumns {
		if templates == nil {
			continue
		}
		spec := classifySourceType(cfg.ToRDBMS, ec.ColumnType)
		if _, ok := templates[spec.family]; !ok && spec.family != famOther {
			continue
		}
		if spec.family == famOther && !looksLikeRawSQL(ec.ColumnType) {
			*errs = append(*errs, newError(KindTypeUnknown, CodeInvalidValue, ec.ColumnType,
				"not a valid column type for the target RDBMS", "external-columns"))
		}
	}
}

// looksLikeRawSQL allows an external-column override to name a type the
// classifier doesn't recognize (e.g. a target-specific extension type)
// as long as it looks like a plausible SQL type token rather than empty
// or garbage input.
func looksLikeRawSQL(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.ContainsAny(s, ";'\"")
}
