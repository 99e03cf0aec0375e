package trainer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/umi-ai/umi/internal/log"
)

// DockerRunnerConfig is the configuration for the Docker runner.
type DockerRunnerConfig struct {
	Logger log.Logger
}

func (c *DockerRunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "trainer.DockerRunner"})
	return nil
}

// DockerRunner runs training jobs in detached Docker containers with the
// model file bind-mounted.
type DockerRunner struct {
	cli    *client.Client
	logger log.Logger
}

// NewDockerRunner creates a new Docker runner using the environment's Docker
// daemon settings.
func NewDockerRunner(cfg DockerRunnerConfig) (*DockerRunner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("could not create docker client: %w", err)
	}

	return &DockerRunner{cli: cli, logger: cfg.Logger}, nil
}

// RunTraining launches the training container and returns its log stream.
// The returned cleanup removes the container, forcefully if needed.
func (r *DockerRunner) RunTraining(ctx context.Context, spec TrainingSpec) (io.ReadCloser, func(ctx context.Context) error, error) {
	modelPath, err := filepath.Abs(spec.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not resolve model path: %w", err)
	}

	created, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image: spec.Image,
			Cmd: strslice.StrSlice{
				"python", "train.py",
				"--input", "/data/model.pt",
				"--version", fmt.Sprintf("%.1f", spec.Version),
			},
		},
		&container.HostConfig{
			Binds: []string{modelPath + ":/data/model.pt:rw"},
		},
		nil,
		&ocispec.Platform{OS: "linux", Architecture: runtime.GOARCH},
		"",
	)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create training container: %w", err)
	}

	cleanup := func(ctx context.Context) error {
		return r.cli.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})
	}

	if err := r.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = cleanup(ctx)
		return nil, nil, fmt.Errorf("could not start training container: %w", err)
	}

	logs, err := r.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		_ = cleanup(ctx)
		return nil, nil, fmt.Errorf("could not stream training logs: %w", err)
	}

	r.logger.Infof("Started training container %s", created.ID[:12])

	return logs, cleanup, nil
}
