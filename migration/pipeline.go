package migration

import (
	"context"
	"sort"
	"strings"

	"github.com/oarkflow/squealx"
)

// Pipeline runs the Schema Migration Pipeline (spec.md §4.D): reflect the
// source schema, filter it down to the configured table list, resolve
// (or create) the target schema, drop any colliding tables in reverse
// dependency order, translate every column's type, and recreate the
// tables in forward dependency order.
type Pipeline struct {
	Source        EngineID
	Target        EngineID
	SourceSchema  string
	TargetSchema  string
	TargetOwner   string
	IncludeTables []string
	ExcludeTables []string
	Overrides     map[string]string
	Registry      DriverRegistry
}

// NewPipeline builds a Pipeline from a validated Configuration. The
// target schema's owner, used by CreateSchemaStmt, is read from the
// target engine's connection parameters; registry is also the seam
// every DDL statement the pipeline issues is executed through.
func NewPipeline(cfg *Configuration, registry DriverRegistry) *Pipeline {
	var owner string
	if registry != nil {
		if p, ok := registry.Params(cfg.ToRDBMS); ok {
			owner = p.User
		}
	}
	return &Pipeline{
		Source:        cfg.FromRDBMS,
		Target:        cfg.ToRDBMS,
		SourceSchema:  cfg.FromSchema,
		TargetSchema:  cfg.ToSchema,
		TargetOwner:   owner,
		IncludeTables: cfg.IncludeTables,
		ExcludeTables: cfg.ExcludeTables,
		Overrides:     cfg.externalColumnOverrides(),
		Registry:      registry,
	}
}

// Run executes the pipeline and returns the migrated table descriptors
// (with TargetType already filled in and the target tables already
// created) alongside any accumulated errors. A non-empty error slice
// that still carries tables means the caller should treat the run as
// failed; Run itself never returns early just because errors occurred,
// mirroring migrate_metadata's accumulate-and-continue shape, except
// where a later step has no sound way to proceed without the result of
// an earlier one (e.g. without a resolved target schema there is nothing
// to create tables in).
func (p *Pipeline) Run(ctx context.Context, sourceDB, targetDB *squealx.DB) ([]MigratedTable, []MigrationError) {
	var errs []MigrationError

	sourceReflector, ok := getReflector(p.Source)
	if !ok {
		errs = append(errs, newError(KindEngineUnknown, CodeInvalidValue, string(p.Source),
			"unknown or unconfigured RDBMS engine", "from-rdbms"))
		return nil, errs
	}
	targetReflector, ok := getReflector(p.Target)
	if !ok {
		errs = append(errs, newError(KindEngineUnknown, CodeInvalidValue, string(p.Target),
			"unknown or unconfigured RDBMS engine", "to-rdbms"))
		return nil, errs
	}
	targetDialect, _ := getDialect(p.Target)

	fromSchema, err := resolveSchemaName(ctx, sourceReflector, sourceDB, p.SourceSchema)
	if err != nil {
		errs = append(errs, newError(KindSchemaNotFound, CodeNotFound, p.SourceSchema,
			"schema not found in source RDBMS", "from-schema"))
		return nil, errs
	}

	sourceTables, err := sourceReflector.ReflectTables(ctx, sourceDB, fromSchema)
	if err != nil {
		errs = append(errs, wrapUnexpected(err, "from-schema"))
		return nil, errs
	}

	sourceTables, unlisted := filterTables(sourceTables, p.IncludeTables, p.ExcludeTables)
	if len(unlisted) > 0 {
		errs = append(errs, newError(KindTableNotFound, CodeNotFound, strings.Join(unlisted, ", "),
			"not found in source schema", "include-tables"))
		return nil, errs
	}

	toSchema, err := resolveSchemaName(ctx, targetReflector, targetDB, p.TargetSchema)
	if err == nil {
		// Target schema already exists: drop colliding tables in reverse
		// dependency order (children before parents).
		dropOrder := append([]Table(nil), sourceTables...)
		sort.SliceStable(dropOrder, func(i, j int) bool { return dropOrder[i].Rank > dropOrder[j].Rank })
		for _, t := range dropOrder {
			if execErr := p.Registry.Execute(ctx, targetDB, targetDialect.DropTableStmt(toSchema, t.Name)); execErr != nil {
				errs = append(errs, newError(KindDDLFailed, CodeUnexpected, t.Name,
					Sanitize(execErr.Error()), "to-schema"))
			}
		}
	} else {
		if execErr := p.Registry.Execute(ctx, targetDB, targetDialect.CreateSchemaStmt(p.TargetSchema, p.TargetOwner)); execErr != nil {
			errs = append(errs, newError(KindSchemaCreateFailed, CodeUnexpected, p.TargetSchema,
				Sanitize(execErr.Error()), "to-schema"))
		}
		// Sanity check: a schema creation can fail silently on some
		// engines, so re-inspect before trusting it exists.
		toSchema, err = resolveSchemaName(ctx, targetReflector, targetDB, p.TargetSchema)
		if err != nil {
			errs = append(errs, newError(KindUnexpected, CodeUnexpected, p.Target,
				"unable to create schema in target RDBMS", "to-schema"))
			return nil, errs
		}
	}

	migrated := make([]MigratedTable, 0, len(sourceTables))
	createOrder := append([]Table(nil), sourceTables...)
	sort.SliceStable(createOrder, func(i, j int) bool { return createOrder[i].Rank < createOrder[j].Rank })

	for i := range createOrder {
		table := &createOrder[i]
		migCols := make([]MigratedColumn, 0, len(table.Columns))
		for j := range table.Columns {
			col := &table.Columns[j]
			col.TargetType = MigrateType(&errs, p.Source, p.Target, col.Name, col.SourceType, p.Overrides)
			// The server default is never carried across engines, as
			// the source engine's default expression syntax rarely
			// translates; a declared default whose text is one of the
			// well-known timestamp sentinels is dropped outright rather
			// than mistranslated, matching the intent of the Python
			// original's (buggy) "sysdate"/"systime" default check --
			// here the comparison is against the default's own text,
			// not the column object.
			col.ServerDefault = ""
			if isSentinelDefault(col.Default) {
				col.Default = ""
			}
			migCols = append(migCols, MigratedColumn{
				Name:       col.Name,
				SourceType: col.SourceType,
				TargetType: col.TargetType,
			})
		}
		table.Schema = toSchema
		migrated = append(migrated, MigratedTable{
			Table:   table.Name,
			Columns: migCols,
			Count:   0,
			Status:  StatusNone,
		})
	}

	for _, table := range createOrder {
		stmt := targetDialect.CreateTableStmt(toSchema, table.Name, table.Columns)
		if execErr := p.Registry.Execute(ctx, targetDB, stmt); execErr != nil {
			errs = append(errs, newError(KindDDLFailed, CodeUnexpected, table.Name,
				Sanitize(execErr.Error()), "to-schema"))
		}
	}

	return migrated, errs
}

func isSentinelDefault(def string) bool {
	d := strings.ToLower(strings.TrimSpace(def))
	return d == "sysdate" || d == "systime" || d == "current_timestamp" || d == "now()"
}

func resolveSchemaName(ctx context.Context, r Reflector, db *squealx.DB, configured string) (string, error) {
	names, err := r.ListSchemas(ctx, db)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if strings.EqualFold(n, configured) {
			return n, nil
		}
	}
	return "", errSchemaNotFound
}

var errSchemaNotFound = &schemaNotFoundError{}

type schemaNotFoundError struct{}

func (*schemaNotFoundError) Error() string { return "schema not found" }

// filterTables applies the include/exclude table lists (mutually
// exclusive, enforced by Validate) to the reflected table set. unlisted
// names every include-tables entry that wasn't actually found.
func filterTables(tables []Table, include, exclude []string) ([]Table, []string) {
	if len(include) == 0 && len(exclude) == 0 {
		return tables, nil
	}

	if len(include) > 0 {
		present := make(map[string]bool, len(tables))
		for _, t := range tables {
			present[strings.ToLower(t.Name)] = true
		}
		var unlisted []string
		for _, name := range include {
			if !present[strings.ToLower(name)] {
				unlisted = append(unlisted, name)
			}
		}
		if len(unlisted) > 0 {
			return nil, unlisted
		}
		wanted := make(map[string]bool, len(include))
		for _, name := range include {
			wanted[strings.ToLower(name)] = true
		}
		filtered := make([]Table, 0, len(include))
		for _, t := range tables {
			if wanted[strings.ToLower(t.Name)] {
				filtered = append(filtered, t)
			}
		}
		return filtered, nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[strings.ToLower(name)] = true
	}
	filtered := make([]Table, 0, len(tables))
	for _, t := range tables {
		if !excluded[strings.ToLower(t.Name)] {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
