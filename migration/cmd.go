package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/oarkflow/cli"
	"github.com/oarkflow/cli/console"
	"github.com/oarkflow/cli/contracts"
)

var (
	Name    = "rdbmigrate"
	Version = "v0.1.0"
)

// Manager wires this package's operations into an github.com/oarkflow/cli
// application, the same Manager/contracts.Command pattern the teacher's
// versioned-migration tool uses, repurposed around this package's own
// commands instead of make:migration/migrate/rollback/reset.
type Manager struct {
	client contracts.Cli
}

// NewManager builds the CLI application and registers its commands.
func NewManager() *Manager {
	cli.SetName(Name)
	cli.SetVersion(Version)
	app := cli.New()
	client := app.Instance.Client()
	m := &Manager{client: client}
	client.Register([]contracts.Command{
		console.NewListCommand(client),
		&ValidateCommand{},
		&MigrateCommand{},
		&ReportCommand{},
	})
	return m
}

func (m *Manager) Run() {
	m.client.Run(os.Args, true)
}

// loadRunConfig reads the --config argument (or the first positional
// argument) as a migration-run configuration file and builds the
// connection registry for it from environment variables.
func loadRunConfig(ctx contracts.Context) (*Configuration, DriverRegistry, error) {
	path := ctx.Option("config")
	if path == "" {
		path = ctx.Argument(0)
	}
	if path == "" {
		return nil, nil, fmt.Errorf("a --config <file> argument is required")
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	registry, err := registryFromEnv(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

// registryFromEnv builds connection parameters for the configured source
// and target engines from RDBMIGRATE_<ENGINE>_* environment variables.
// This keeps credentials out of the BCL run file.
func registryFromEnv(cfg *Configuration) (*SquealxRegistry, error) {
	params := make(map[EngineID]ConnParams)
	for _, engine := range []EngineID{cfg.FromRDBMS, cfg.ToRDBMS} {
		if _, ok := params[engine]; ok {
			continue
		}
		p, err := connParamsFromEnv(engine)
		if err != nil {
			return nil, err
		}
		params[engine] = p
	}
	return NewSquealxRegistry(params), nil
}

func connParamsFromEnv(engine EngineID) (ConnParams, error) {
	prefix := "RDBMIGRATE_" + envKey(engine) + "_"
	port, _ := strconv.Atoi(os.Getenv(prefix + "PORT"))
	p := ConnParams{
		User: os.Getenv(prefix + "USER"),
		Pwd:  os.Getenv(prefix + "PASSWORD"),
		Host: os.Getenv(prefix + "HOST"),
		Port: port,
		Name: os.Getenv(prefix + "DBNAME"),
	}
	if p.Host == "" || p.Name == "" {
		return p, fmt.Errorf("missing %sHOST/%sDBNAME environment variables for engine %q", prefix, prefix, engine)
	}
	return p, nil
}

func envKey(engine EngineID) string {
	switch engine {
	case EngineOracle:
		return "ORACLE"
	case EnginePostgres:
		return "POSTGRES"
	case EngineSQLServer:
		return "SQLSERVER"
	case EngineMySQL:
		return "MYSQL"
	default:
		return "UNKNOWN"
	}
}

// --- migration:validate ------------------------------------------------

type ValidateCommand struct {
	extend contracts.Extend
}

func (c *ValidateCommand) Signature() string        { return "migration:validate" }
func (c *ValidateCommand) Description() string      { return "Validates a migration run configuration." }
func (c *ValidateCommand) Extend() contracts.Extend { return c.extend }

func (c *ValidateCommand) Handle(ctx contracts.Context) error {
	cfg, registry, err := loadRunConfig(ctx)
	if err != nil {
		return err
	}
	errs := Validate(context.Background(), cfg, registry)
	if len(errs) == 0 {
		color.Green.Println("configuration is valid")
		return nil
	}
	for _, e := range errs {
		color.Red.Println(FormatError(e))
	}
	return fmt.Errorf("%d validation error(s)", len(errs))
}

// --- migrate -------------------------------------------------------------

type MigrateCommand struct {
	extend contracts.Extend
}

func (c *MigrateCommand) Signature() string {
	return "migrate"
}

func (c *MigrateCommand) Description() string {
	return "Runs a schema and data migration between two RDBMS engines."
}

func (c *MigrateCommand) Extend() contracts.Extend { return c.extend }

func (c *MigrateCommand) Handle(ctx contracts.Context) error {
	cfg, registry, err := loadRunConfig(ctx)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	color.Cyan.Printf("run %s: validating configuration\n", runID)

	background := context.Background()
	if errs := Validate(background, cfg, registry); len(errs) > 0 {
		for _, e := range errs {
			color.Red.Println(FormatError(e))
		}
		return fmt.Errorf("%d validation error(s), migration aborted", len(errs))
	}

	color.Cyan.Printf("run %s: migrating %s/%s -> %s/%s\n",
		runID, cfg.FromRDBMS, cfg.FromSchema, cfg.ToRDBMS, cfg.ToSchema)

	report, migrateErr := Migrate(background, cfg, registry)
	if report != nil {
		printReport(report)
	}
	if migrateErr != nil {
		return migrateErr
	}
	return nil
}

func printReport(report *Report) {
	elapsed := report.Finished.Sub(report.Started)
	fmt.Printf("migrated %s/%s -> %s/%s in %s\n",
		report.Source.RDBMS, report.Source.Schema, report.Target.RDBMS, report.Target.Schema, elapsed)
	for _, t := range report.MigratedTables {
		statusColor := color.Green
		switch t.Status {
		case StatusPartial:
			statusColor = color.Yellow
		case StatusNone:
			statusColor = color.Red
		}
		statusColor.Printf("  %-32s %-8s rows=%s\n", t.Table, t.Status, humanize.Comma(int64(t.Count)))
	}
}

// --- migration:report ------------------------------------------------------

type ReportCommand struct {
	extend contracts.Extend
}

func (c *ReportCommand) Signature() string        { return "migration:report" }
func (c *ReportCommand) Description() string      { return "Runs a migration and prints its report as JSON." }
func (c *ReportCommand) Extend() contracts.Extend { return c.extend }

func (c *ReportCommand) Handle(ctx contracts.Context) error {
	cfg, registry, err := loadRunConfig(ctx)
	if err != nil {
		return err
	}

	background := context.Background()
	if errs := Validate(background, cfg, registry); len(errs) > 0 {
		return fmt.Errorf("%d validation error(s), migration aborted", len(errs))
	}

	report, migrateErr := Migrate(background, cfg, registry)
	if report == nil {
		return migrateErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return migrateErr
}
