// Package memory implements the telemetry store in memory, used mostly on
// tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
)

// StoreConfig is the configuration for the memory telemetry store.
type StoreConfig struct {
	Logger log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "telemetry.Memory"})
	return nil
}

// Store is an in-memory implementation of telemetry.Store.
type Store struct {
	mu           sync.RWMutex
	interactions []model.Interaction
	nextID       int64
	lastSync     time.Time
	logger       log.Logger
}

// NewStore creates a new memory telemetry store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		nextID: 1,
		logger: cfg.Logger,
	}, nil
}

// RecordInteraction persists a single interaction event.
func (s *Store) RecordInteraction(ctx context.Context, interaction model.Interaction) error {
	if err := interaction.Validate(); err != nil {
		return fmt.Errorf("invalid interaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	interaction.ID = s.nextID
	s.nextID++
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}
	if interaction.ContextEmbedding != nil {
		embedding := make([]byte, len(interaction.ContextEmbedding))
		copy(embedding, interaction.ContextEmbedding)
		interaction.ContextEmbedding = embedding
	}

	s.interactions = append(s.interactions, interaction)
	s.logger.Debugf("Recorded %s interaction for %s", interaction.EventType, interaction.SuggestionID)

	return nil
}

// ListInteractions returns all recorded interactions, oldest first.
func (s *Store) ListInteractions(ctx context.Context) ([]model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interactions := make([]model.Interaction, len(s.interactions))
	copy(interactions, s.interactions)
	return interactions, nil
}

// InteractionsSince returns interactions recorded after t, oldest first.
func (s *Store) InteractionsSince(ctx context.Context, t time.Time) ([]model.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var interactions []model.Interaction
	for _, i := range s.interactions {
		if i.Timestamp.After(t) {
			interactions = append(interactions, i)
		}
	}
	return interactions, nil
}

// AdaptationData computes acceptance ratios per suggestion id.
func (s *Store) AdaptationData(ctx context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accepts := map[string]int{}
	totals := map[string]int{}
	for _, i := range s.interactions {
		totals[i.SuggestionID]++
		if i.EventType == model.EventAccepted {
			accepts[i.SuggestionID]++
		}
	}

	ratios := make(map[string]float64, len(totals))
	for id, total := range totals {
		ratios[id] = float64(accepts[id]) / float64(total)
	}
	return ratios, nil
}

// LastSyncTimestamp returns when the store was last synced, zero when never.
func (s *Store) LastSyncTimestamp(ctx context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, nil
}

// SetLastSyncTimestamp marks the store as synced at t.
func (s *Store) SetLastSyncTimestamp(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = t
	return nil
}
