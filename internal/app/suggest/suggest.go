// Package suggest implements the one-shot suggestion use case: run a batch of
// code snippets through the pipeline and collect the results.
package suggest

import (
	"context"
	"fmt"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/pipeline"
	"github.com/umi-ai/umi/internal/telemetry"
)

// ServiceConfig is the configuration for the suggest service.
type ServiceConfig struct {
	Analyzer  pipeline.ContextAnalyzer
	Refactor  pipeline.RefactorEngine
	Styler    pipeline.StyleAdapter
	Telemetry telemetry.Store
	Logger    log.Logger

	Workers   int
	QueueSize int
}

func (c *ServiceConfig) defaults() error {
	if c.Analyzer == nil {
		return fmt.Errorf("analyzer is required")
	}
	if c.Refactor == nil {
		return fmt.Errorf("refactor engine is required")
	}
	if c.Styler == nil {
		return fmt.Errorf("style adapter is required")
	}
	if c.Telemetry == nil {
		return fmt.Errorf("telemetry store is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Suggest"})

	if c.Workers <= 0 {
		c.Workers = 4
	}
	return nil
}

// Input is one code snippet to run through the pipeline.
type Input struct {
	FilePath string
	Code     string
	Priority int
}

// Service runs code snippets through the suggestion pipeline.
type Service struct {
	pipeline *pipeline.Pipeline
	workers  int
	logger   log.Logger
}

// NewService creates a new suggest service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{
		Analyzer:  cfg.Analyzer,
		Refactor:  cfg.Refactor,
		Styler:    cfg.Styler,
		Telemetry: cfg.Telemetry,
		Logger:    cfg.Logger,
		QueueSize: cfg.QueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create pipeline: %w", err)
	}

	return &Service{
		pipeline: p,
		workers:  cfg.Workers,
		logger:   cfg.Logger,
	}, nil
}

// Run ingests every input, waits for the pipeline to drain and returns the
// terminal tasks. Tasks dropped after exhausting retries are absent from the
// result, their trace lives in telemetry.
func (s *Service) Run(ctx context.Context, inputs []Input) ([]*model.Task, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one input is required: %w", model.ErrNotValid)
	}

	if err := s.pipeline.Start(ctx, s.workers); err != nil {
		return nil, fmt.Errorf("could not start pipeline: %w", err)
	}
	defer func() {
		if err := s.pipeline.Shutdown(); err != nil {
			s.logger.Errorf("Pipeline shutdown failed: %s", err)
		}
	}()

	for _, input := range inputs {
		priority := input.Priority
		if priority == 0 {
			priority = model.DefaultPriority
		}
		if _, err := s.pipeline.Ingest(ctx, input.FilePath, input.Code, priority); err != nil {
			return nil, fmt.Errorf("could not ingest %s: %w", input.FilePath, err)
		}
	}

	if err := s.pipeline.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("pipeline did not drain: %w", err)
	}

	return s.pipeline.Results(), nil
}
