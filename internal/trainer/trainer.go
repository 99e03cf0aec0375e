// Package trainer implements the feedback loop: it samples training data
// from telemetry acceptance ratios and runs isolated training jobs, promoting
// the model only when validation passes.
package trainer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/telemetry"
)

// validationThreshold is the minimum validation accuracy for a trained model
// to be promoted.
const validationThreshold = 0.7

// ContextProvider resolves the context embedding a suggestion was generated
// with. The refactor engine implements it.
type ContextProvider interface {
	SuggestionContext(suggestionID string) ([]byte, bool)
}

// TrainingSpec describes one isolated training run.
type TrainingSpec struct {
	Image     string
	ModelPath string
	Version   float64
}

// Runner executes a training job and exposes its log stream. The returned
// cleanup must always be called.
type Runner interface {
	RunTraining(ctx context.Context, spec TrainingSpec) (logs io.ReadCloser, cleanup func(ctx context.Context) error, err error)
}

// Sample is one training example derived from telemetry.
type Sample struct {
	Input []byte
	// Label is 1 when the suggestion was mostly accepted, 0 otherwise.
	Label int
	// Weight grows with how decisive the acceptance ratio is.
	Weight float64
}

// Config is the configuration for the trainer.
type Config struct {
	Store    telemetry.Store
	Contexts ContextProvider
	Runner   Runner
	Logger   log.Logger

	Image      string
	ModelPath  string
	ReplaySize int
	BatchSize  int
}

func (c *Config) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("telemetry store is required")
	}
	if c.Contexts == nil {
		return fmt.Errorf("context provider is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "trainer.Trainer"})

	if c.Image == "" {
		c.Image = "pytorch/training:latest"
	}
	if c.ModelPath == "" {
		c.ModelPath = "model.pt"
	}
	if c.ReplaySize <= 0 {
		c.ReplaySize = 10000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	return nil
}

// Trainer runs feedback training cycles.
type Trainer struct {
	store    telemetry.Store
	contexts ContextProvider
	runner   Runner
	logger   log.Logger

	image      string
	modelPath  string
	replaySize int
	batchSize  int

	mu      sync.Mutex
	replay  []Sample
	version float64

	stopC    chan struct{}
	stopOnce sync.Once
}

// New creates a new trainer.
func New(cfg Config) (*Trainer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Trainer{
		store:      cfg.Store,
		contexts:   cfg.Contexts,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
		image:      cfg.Image,
		modelPath:  cfg.ModelPath,
		replaySize: cfg.ReplaySize,
		batchSize:  cfg.BatchSize,
		version:    1.0,
	}, nil
}

// ModelVersion returns the currently promoted model version.
func (t *Trainer) ModelVersion() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// sampleBatch builds training samples from telemetry acceptance ratios and
// stores them in the replay buffer, returning up to batchSize of them.
func (t *Trainer) sampleBatch(ctx context.Context) ([]Sample, error) {
	adaptationData, err := t.store.AdaptationData(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load adaptation data: %w", err)
	}

	var samples []Sample
	for suggestionID, acceptRatio := range adaptationData {
		embedding, ok := t.contexts.SuggestionContext(suggestionID)
		if !ok {
			continue
		}

		label := 0
		if acceptRatio > 0.5 {
			label = 1
		}
		samples = append(samples, Sample{
			Input:  embedding,
			Label:  label,
			Weight: math.Abs(acceptRatio-0.5) * 2,
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.replay = append(t.replay, samples...)
	if overflow := len(t.replay) - t.replaySize; overflow > 0 {
		t.replay = t.replay[overflow:]
	}

	batch := t.batchSize
	if batch > len(t.replay) {
		batch = len(t.replay)
	}
	return t.replay[len(t.replay)-batch:], nil
}

// RunCycle executes one full training cycle: sample, train in isolation,
// validate, promote or discard.
func (t *Trainer) RunCycle(ctx context.Context) error {
	batch, err := t.sampleBatch(ctx)
	if err != nil {
		return fmt.Errorf("could not sample training batch: %w", err)
	}
	if len(batch) == 0 {
		t.logger.Infof("No sufficient data for training")
		return nil
	}

	version := t.ModelVersion()
	logs, cleanup, err := t.runner.RunTraining(ctx, TrainingSpec{
		Image:     t.image,
		ModelPath: t.modelPath,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("could not start training run: %w", err)
	}
	defer func() {
		if err := cleanup(ctx); err != nil {
			t.logger.Errorf("Could not clean up training run: %s", err)
		}
	}()

	ok, err := t.validate(logs)
	if err != nil {
		return fmt.Errorf("could not validate training run: %w", err)
	}
	if !ok {
		t.logger.Warningf("Discarded model v%.1f due to validation failure", version)
		return nil
	}

	t.mu.Lock()
	t.version += 0.1
	promoted := t.version
	t.mu.Unlock()

	t.logger.Infof("Model promoted to v%.1f", promoted)
	return nil
}

// validate streams the training logs and gates promotion on the reported
// validation accuracy.
func (t *Trainer) validate(logs io.ReadCloser) (bool, error) {
	defer logs.Close()

	scanner := bufio.NewScanner(logs)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		t.logger.Debugf("%s", line)

		acc, ok := parseValidationAccuracy(line)
		if !ok {
			continue
		}
		if acc < validationThreshold {
			t.logger.Warningf("Model accuracy %.2f below threshold, rolling back", acc)
			return false, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("could not read training logs: %w", err)
	}

	return true, nil
}

// parseValidationAccuracy extracts the accuracy from a log line of the form
// "Validation accuracy: 0.85".
func parseValidationAccuracy(line string) (float64, bool) {
	const marker = "Validation accuracy"
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line[idx+len(marker):], ":"))
	if fields := strings.Fields(rest); len(fields) > 0 {
		rest = fields[0]
	}
	acc, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, false
	}
	return acc, true
}

// StartPeriodic runs training cycles on an interval until Stop is called.
func (t *Trainer) StartPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	t.stopC = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopC:
				return
			case <-ticker.C:
				if err := t.RunCycle(ctx); err != nil {
					t.logger.Errorf("Training cycle aborted: %s", err)
				}
			}
		}
	}()

	t.logger.Infof("Started periodic training every %s", interval)
}

// Stop stops the periodic training loop.
func (t *Trainer) Stop() {
	if t.stopC == nil {
		return
	}
	t.stopOnce.Do(func() { close(t.stopC) })
}
