package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kong"

	"moneymanager/internal/log"
)

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	EnvFile  string `help:"Environment file loaded before reading configuration." default:".env" name:"env-file"`
	Backend  string `help:"Storage backend: memory, file or sqlite. Overrides DATA_BACKEND."`
	DataFile string `help:"Data file of the file backend. Overrides DATA_FILE." name:"data-file"`
	DBPath   string `help:"Database of the sqlite backend. Overrides SQLITE_DB_PATH." name:"db-path"`
	LogLevel string `help:"Log level: debug, info, warn or error. Overrides LOG_LEVEL." name:"log-level"`
}

type Commands struct {
	Globals

	Version kong.VersionFlag `help:"Show version information."`

	Serve     ServeCmd     `cmd:"" help:"Run the JSON API with auto-refresh and auto-save."`
	Add       AddCmd       `cmd:"" help:"Record an income or expense."`
	Edit      EditCmd      `cmd:"" help:"Change the amount, category, date or description of a transaction."`
	Rm        RmCmd        `cmd:"" help:"Delete transactions by id."`
	List      ListCmd      `cmd:"" help:"List transactions, filtered, sorted and paginated."`
	Dashboard DashboardCmd `cmd:"" help:"Show this month's totals, trends and recent transactions."`
	Report    ReportCmd    `cmd:"" help:"Summarise a date range."`
	Export    ExportCmd    `cmd:"" help:"Write the ledger as a JSON document."`
	Import    ImportCmd    `cmd:"" help:"Replace the ledger with a JSON document."`
	Clear     ClearCmd     `cmd:"" help:"Delete every transaction."`
	Settings  SettingsCmd  `cmd:"" help:"Show or change preferences."`
}

// Option configures Execute.
type Option func(*options)

type options struct {
	confirm func(question string) (bool, error)
	exit    func(int)
}

// WithConfirm replaces the interactive confirmation prompt.
func WithConfirm(fn func(question string) (bool, error)) Option {
	return func(o *options) { o.confirm = fn }
}

// WithExit replaces os.Exit for --help and --version.
func WithExit(fn func(int)) Option {
	return func(o *options) { o.exit = fn }
}

func version() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if CommitSHA != "" {
		v += " (" + CommitSHA + ")"
	}
	return v
}

// Execute parses args, opens the configured ledger and runs the selected
// command. Logs go to stderr so stdout stays clean for exports.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) error {
	o := options{confirm: promptYesNo}
	for _, opt := range opts {
		opt(&o)
	}

	var cli Commands
	kopts := []kong.Option{
		kong.Name("moneymanager"),
		kong.Description("Personal income and expense ledger."),
		kong.Vars{"version": version()},
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	}
	if o.exit != nil {
		kopts = append(kopts, kong.Exit(o.exit))
	}
	parser, err := kong.New(&cli, kopts...)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if err := LoadEnvFile(cli.EnvFile); err != nil {
		return err
	}
	cfg, err := LoadAndValidateConfig(&cli.Globals)
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg.LogLevel, stderr)

	app, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release backend", log.FieldError, err)
		}
	}()
	app.confirm = o.confirm

	kctx.BindTo(ctx, (*context.Context)(nil))
	return kctx.Run(app, &cli.Globals)
}
