package telemetry

import (
	"context"
	"time"

	"github.com/umi-ai/umi/internal/model"
)

// Store is the interface for interaction persistence. Implementations must be
// safe for concurrent use, any pipeline worker may record events.
type Store interface {
	// RecordInteraction persists a single interaction event.
	RecordInteraction(ctx context.Context, interaction model.Interaction) error

	// ListInteractions returns all recorded interactions, oldest first.
	ListInteractions(ctx context.Context) ([]model.Interaction, error)

	// InteractionsSince returns interactions recorded after t, oldest first.
	InteractionsSince(ctx context.Context, t time.Time) ([]model.Interaction, error)

	// AdaptationData returns acceptance ratios per suggestion id, computed as
	// accepted events over total events.
	AdaptationData(ctx context.Context) (map[string]float64, error)

	// LastSyncTimestamp returns when the store was last synced to the cloud,
	// zero time when it never was.
	LastSyncTimestamp(ctx context.Context) (time.Time, error)

	// SetLastSyncTimestamp marks the store as synced at t.
	SetLastSyncTimestamp(ctx context.Context, t time.Time) error
}
