package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/umi-ai/umi/internal/style"
	telemetrysqlite "github.com/umi-ai/umi/internal/telemetry/sqlite"
)

type ProfileCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	editorconfig bool
}

// NewProfileCommand returns the profile command.
func NewProfileCommand(rootCmd *RootCommand, app *kingpin.Application) *ProfileCommand {
	c := &ProfileCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("profile", "Show the learned style profile.")
	c.Cmd.Flag("editorconfig", "Render the profile as an .editorconfig snippet.").BoolVar(&c.editorconfig)

	return c
}

func (c ProfileCommand) Name() string { return c.Cmd.FullCommand() }

func (c ProfileCommand) Run(ctx context.Context) error {
	store, err := telemetrysqlite.NewStore(ctx, telemetrysqlite.StoreConfig{
		DBPath:  c.rootCmd.DBPath,
		KeyPath: c.rootCmd.KeyPath,
		Logger:  c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create telemetry store: %w", err)
	}
	defer store.Close()

	adapter, err := style.NewAdapter(ctx, style.AdapterConfig{
		Telemetry: store,
		Logger:    c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create style adapter: %w", err)
	}

	if c.editorconfig {
		fmt.Fprint(c.rootCmd.Stdout, adapter.EditorConfig())
		return nil
	}

	for rule, choice := range adapter.Profile() {
		fmt.Fprintf(c.rootCmd.Stdout, "%s = %s\n", rule, choice)
	}
	return nil
}
