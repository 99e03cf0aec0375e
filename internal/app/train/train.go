// Package train implements the feedback training use case.
package train

import (
	"context"
	"fmt"

	"github.com/umi-ai/umi/internal/log"
)

// Cycler runs feedback training cycles. The trainer implements it.
type Cycler interface {
	RunCycle(ctx context.Context) error
}

// ServiceConfig is the configuration for the train service.
type ServiceConfig struct {
	Cycler Cycler
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Cycler == nil {
		return fmt.Errorf("cycler is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Train"})
	return nil
}

// Service handles feedback training business logic.
type Service struct {
	cycler Cycler
	logger log.Logger
}

// NewService creates a new train service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		cycler: cfg.Cycler,
		logger: cfg.Logger,
	}, nil
}

// Run executes one training cycle.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cycler.RunCycle(ctx); err != nil {
		return fmt.Errorf("training cycle failed: %w", err)
	}

	s.logger.Infof("Training cycle completed")
	return nil
}
