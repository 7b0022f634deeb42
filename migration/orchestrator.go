package migration

import (
	"context"
	"strings"
	"time"
)

// MigrationErrors aggregates every MigrationError accumulated during a
// Migrate run into a single error value, so callers that just want a
// pass/fail signal can treat Migrate like any other fallible operation
// while still reaching the individual records via Errors().
type MigrationErrors []MigrationError

func (e MigrationErrors) Error() string {
	parts := make([]string, len(e))
	for i, me := range e {
		parts[i] = FormatError(me)
	}
	return strings.Join(parts, "; ")
}

// Errors returns the individual MigrationError records.
func (e MigrationErrors) Errors() []MigrationError { return e }

// Migrate is the Orchestrator (spec.md §4.F): it owns both connections
// for the run, composes the Schema Migration Pipeline and Bulk Copy
// Engine, and always returns a non-nil Report. The pipeline reads the
// source and writes the target, so if either connection cannot be opened
// neither the pipeline nor the copy runs: Migrate does not return early,
// but hands back a Report with no migrated tables and reports the
// connection failure through the returned error.
//
// Migrate does not call Validate itself -- the CLI's "migrate" command
// validates first and refuses to proceed on validation failure, exactly
// as the Python original's route handler calls assert_migration before
// ever calling migrate().
func Migrate(ctx context.Context, cfg *Configuration, registry DriverRegistry) (*Report, error) {
	started := time.Now()

	var errs []MigrationError
	var migrated []MigratedTable

	sourceDB, srcErr := registry.Connect(ctx, cfg.FromRDBMS)
	if srcErr != nil {
		errs = append(errs, newError(KindConnectionUnavailable, CodeUnexpected, string(cfg.FromRDBMS),
			Sanitize(srcErr.Error()), "from-rdbms"))
	} else {
		defer sourceDB.Close()
	}

	targetDB, tgtErr := registry.Connect(ctx, cfg.ToRDBMS)
	if tgtErr != nil {
		errs = append(errs, newError(KindConnectionUnavailable, CodeUnexpected, string(cfg.ToRDBMS),
			Sanitize(tgtErr.Error()), "to-rdbms"))
	} else {
		defer targetDB.Close()
	}

	connected := srcErr == nil && tgtErr == nil

	if cfg.MigrateMetadata && connected {
		pipeline := NewPipeline(cfg, registry)
		tabs, pErrs := pipeline.Run(ctx, sourceDB, targetDB)
		migrated = tabs
		errs = append(errs, pErrs...)
	}

	if (cfg.MigratePlainData || cfg.MigrateLOBData) && connected && len(migrated) > 0 {
		targetDialect, ok := getDialect(cfg.ToRDBMS)
		if !ok {
			errs = append(errs, newError(KindEngineUnknown, CodeInvalidValue, string(cfg.ToRDBMS),
				"unknown or unconfigured RDBMS engine", "to-rdbms"))
		} else {
			for _, stmt := range targetDialect.DisableSessionRestrictions(cfg.ToSchema) {
				if execErr := registry.Execute(ctx, targetDB, stmt); execErr != nil {
					errs = append(errs, wrapUnexpected(execErr, "to-schema"))
				}
			}

			errs = append(errs, Copy(ctx, sourceDB, targetDB, cfg, migrated, registry)...)

			for _, stmt := range targetDialect.RestoreSessionRestrictions(cfg.ToSchema) {
				if execErr := registry.Execute(ctx, targetDB, stmt); execErr != nil {
					errs = append(errs, wrapUnexpected(execErr, "to-schema"))
				}
			}
		}
	}

	report := &Report{
		Started:        started,
		Finished:       time.Now(),
		Source:         SchemaRef{RDBMS: cfg.FromRDBMS, Schema: cfg.FromSchema},
		Target:         SchemaRef{RDBMS: cfg.ToRDBMS, Schema: cfg.ToSchema},
		MigratedTables: migrated,
	}

	if len(errs) > 0 {
		return report, MigrationErrors(errs)
	}
	return report, nil
}
