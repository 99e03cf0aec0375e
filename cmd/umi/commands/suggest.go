package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/umi-ai/umi/internal/analyzer"
	"github.com/umi-ai/umi/internal/app/suggest"
	"github.com/umi-ai/umi/internal/config"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/printer"
	"github.com/umi-ai/umi/internal/refactor"
	"github.com/umi-ai/umi/internal/style"
	telemetrysqlite "github.com/umi-ai/umi/internal/telemetry/sqlite"
)

type SuggestCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	files    []string
	code     string
	codePath string
	priority int
	workers  int
	output   string
}

// NewSuggestCommand returns the suggest command.
func NewSuggestCommand(rootCmd *RootCommand, app *kingpin.Application) *SuggestCommand {
	c := &SuggestCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("suggest", "Run code through the suggestion pipeline.")
	c.Cmd.Arg("files", "Source files to analyze.").ExistingFilesVar(&c.files)
	c.Cmd.Flag("code", "Inline code snippet to analyze instead of files.").StringVar(&c.code)
	c.Cmd.Flag("code-path", "Identifier used for the inline snippet.").Default("snippet").StringVar(&c.codePath)
	c.Cmd.Flag("priority", "Task priority, lower is more urgent.").Default("5").IntVar(&c.priority)
	c.Cmd.Flag("workers", "Number of pipeline workers, defaults to the config value.").Default("0").IntVar(&c.workers)
	c.Cmd.Flag("output", "Output format.").Short('o').Default(OutputTable).EnumVar(&c.output, OutputTable, OutputJSON)

	return c
}

func (c SuggestCommand) Name() string { return c.Cmd.FullCommand() }

func (c SuggestCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := config.Load(c.rootCmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	inputs, err := c.inputs()
	if err != nil {
		return err
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

	contextAnalyzer, err := analyzer.NewAnalyzer(analyzer.AnalyzerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create analyzer: %w", err)
	}

	refactorEngine, err := refactor.NewEngine(refactor.EngineConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create refactor engine: %w", err)
	}

	styleAdapter, err := style.NewAdapter(ctx, style.AdapterConfig{
		Telemetry: store,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create style adapter: %w", err)
	}

	workers := c.workers
	if workers <= 0 {
		workers = cfg.Workers
	}

	svc, err := suggest.NewService(suggest.ServiceConfig{
		Analyzer:  contextAnalyzer,
		Refactor:  refactorEngine,
		Styler:    styleAdapter,
		Telemetry: store,
		Logger:    logger,
		Workers:   workers,
		QueueSize: cfg.QueueSize,
	})
	if err != nil {
		return fmt.Errorf("could not create suggest service: %w", err)
	}

	results, err := svc.Run(ctx, inputs)
	if err != nil {
		return fmt.Errorf("could not run suggestion pipeline: %w", err)
	}

	return c.print(c.rootCmd.Stdout, results)
}

func (c SuggestCommand) inputs() ([]suggest.Input, error) {
	if c.code != "" {
		return []suggest.Input{{FilePath: c.codePath, Code: c.code, Priority: c.priority}}, nil
	}

	if len(c.files) == 0 {
		return nil, fmt.Errorf("either files or --code is required")
	}

	inputs := make([]suggest.Input, 0, len(c.files))
	for _, file := range c.files {
		code, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", file, err)
		}
		inputs = append(inputs, suggest.Input{FilePath: file, Code: string(code), Priority: c.priority})
	}
	return inputs, nil
}

func (c SuggestCommand) print(w io.Writer, results []*model.Task) error {
	var p printer.Printer
	switch c.output {
	case OutputJSON:
		p = printer.NewJSONPrinter(w)
	default:
		p = printer.NewTablePrinter(w)
	}
	return p.PrintResults(results)
}
