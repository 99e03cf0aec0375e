package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	apptrain "github.com/umi-ai/umi/internal/app/train"
	"github.com/umi-ai/umi/internal/config"
	"github.com/umi-ai/umi/internal/refactor"
	telemetrysqlite "github.com/umi-ai/umi/internal/telemetry/sqlite"
	"github.com/umi-ai/umi/internal/trainer"
)

type TrainCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	image     string
	modelPath string
}

// NewTrainCommand returns the train command.
func NewTrainCommand(rootCmd *RootCommand, app *kingpin.Application) *TrainCommand {
	c := &TrainCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("train", "Run one feedback training cycle in an isolated container.")
	c.Cmd.Flag("image", "Training container image.").StringVar(&c.image)
	c.Cmd.Flag("model-path", "Path to the model file mounted into the training container.").StringVar(&c.modelPath)

	return c
}

func (c TrainCommand) Name() string { return c.Cmd.FullCommand() }

func (c TrainCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := config.Load(c.rootCmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	image := c.image
	if image == "" {
		image = cfg.Trainer.Image
	}
	modelPath := c.modelPath
	if modelPath == "" {
		modelPath = cfg.Trainer.ModelPath
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

	refactorEngine, err := refactor.NewEngine(refactor.EngineConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create refactor engine: %w", err)
	}

	runner, err := trainer.NewDockerRunner(trainer.DockerRunnerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create docker runner: %w", err)
	}

	tr, err := trainer.New(trainer.Config{
		Store:     store,
		Contexts:  refactorEngine,
		Runner:    runner,
		Logger:    logger,
		Image:     image,
		ModelPath: modelPath,
	})
	if err != nil {
		return fmt.Errorf("could not create trainer: %w", err)
	}

	svc, err := apptrain.NewService(apptrain.ServiceConfig{
		Cycler: tr,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create train service: %w", err)
	}

	return svc.Run(ctx)
}
