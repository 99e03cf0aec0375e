package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	appsync "github.com/umi-ai/umi/internal/app/sync"
	"github.com/umi-ai/umi/internal/bridge"
	"github.com/umi-ai/umi/internal/config"
	"github.com/umi-ai/umi/internal/printer"
	telemetrysqlite "github.com/umi-ai/umi/internal/telemetry/sqlite"
)

// NewTelemetryCommand returns the telemetry parent command.
func NewTelemetryCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("telemetry", "Manage recorded telemetry.")
}

type TelemetryListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	output string
}

// NewTelemetryListCommand returns the telemetry list command.
func NewTelemetryListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TelemetryListCommand {
	c := &TelemetryListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List recorded interactions.")
	c.Cmd.Flag("output", "Output format.").Short('o').Default(OutputTable).EnumVar(&c.output, OutputTable, OutputJSON)

	return c
}

func (c TelemetryListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TelemetryListCommand) Run(ctx context.Context) error {
	store, err := telemetrysqlite.NewStore(ctx, telemetrysqlite.StoreConfig{
		DBPath:  c.rootCmd.DBPath,
		KeyPath: c.rootCmd.KeyPath,
		Logger:  c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create telemetry store: %w", err)
	}
	defer store.Close()

	interactions, err := store.ListInteractions(ctx)
	if err != nil {
		return fmt.Errorf("could not list interactions: %w", err)
	}

	var p printer.Printer
	switch c.output {
	case OutputJSON:
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default:
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}
	return p.PrintInteractions(interactions)
}

type TelemetrySyncCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	forceFull bool
}

// NewTelemetrySyncCommand returns the telemetry sync command.
func NewTelemetrySyncCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TelemetrySyncCommand {
	c := &TelemetrySyncCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("sync", "Synchronize telemetry with the cloud analytics endpoint.")
	c.Cmd.Flag("force-full", "Send all records instead of a delta.").BoolVar(&c.forceFull)

	return c
}

func (c TelemetrySyncCommand) Name() string { return c.Cmd.FullCommand() }

func (c TelemetrySyncCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := config.Load(c.rootCmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if cfg.Cloud.Host == "" {
		return fmt.Errorf("cloud host is not configured")
	}

	store, err := telemetrysqlite.NewStore(ctx, telemetrysqlite.StoreConfig{
		DBPath:  c.rootCmd.DBPath,
		KeyPath: c.rootCmd.KeyPath,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create telemetry store: %w", err)
	}
	defer store.Close()

	b, err := bridge.NewBridge(bridge.Config{
		Store:          store,
		Host:           cfg.Cloud.Host,
		Port:           cfg.Cloud.Port,
		CAFile:         cfg.Cloud.CAFile,
		ClientCertFile: cfg.Cloud.CertFile,
		ClientKeyFile:  cfg.Cloud.KeyFile,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create analytics bridge: %w", err)
	}

	svc, err := appsync.NewService(appsync.ServiceConfig{
		Syncer: b,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create sync service: %w", err)
	}

	return svc.Sync(ctx, c.forceFull)
}
