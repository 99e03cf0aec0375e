// Package sync implements the telemetry cloud synchronization use case.
package sync

import (
	"context"
	"fmt"

	"github.com/umi-ai/umi/internal/log"
)

// Syncer synchronizes telemetry with the cloud. The analytics bridge
// implements it.
type Syncer interface {
	Sync(ctx context.Context, forceFull bool) error
}

// ServiceConfig is the configuration for the sync service.
type ServiceConfig struct {
	Syncer Syncer
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Syncer == nil {
		return fmt.Errorf("syncer is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Sync"})
	return nil
}

// Service handles telemetry synchronization business logic.
type Service struct {
	syncer Syncer
	logger log.Logger
}

// NewService creates a new sync service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		syncer: cfg.Syncer,
		logger: cfg.Logger,
	}, nil
}

// Sync runs one synchronization round.
func (s *Service) Sync(ctx context.Context, forceFull bool) error {
	if err := s.syncer.Sync(ctx, forceFull); err != nil {
		return fmt.Errorf("could not sync telemetry: %w", err)
	}

	s.logger.Infof("Telemetry synchronized")
	return nil
}
