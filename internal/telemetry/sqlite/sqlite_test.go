package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/telemetry/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.NewStore(context.Background(), sqlite.StoreConfig{
		DBPath:  filepath.Join(dir, "telemetry.db"),
		KeyPath: filepath.Join(dir, "telemetry.key"),
		Logger:  log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRecordAndList(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := newStore(t)

	require.NoError(store.RecordInteraction(ctx, model.Interaction{
		EventType:        model.EventGenerated,
		SuggestionID:     "sug-1",
		ContextEmbedding: []byte{1, 2, 3},
		Metadata:         map[string]interface{}{"file": "app.py"},
	}))
	require.NoError(store.RecordInteraction(ctx, model.Interaction{
		EventType:    model.EventAccepted,
		SuggestionID: "sug-1",
	}))

	interactions, err := store.ListInteractions(ctx)
	require.NoError(err)
	require.Len(interactions, 2)

	assert.Equal(model.EventGenerated, interactions[0].EventType)
	assert.Equal("sug-1", interactions[0].SuggestionID)
	assert.Equal("app.py", interactions[0].Metadata["file"])
	assert.NotEmpty(interactions[0].AnonymizedUserID)
	assert.Len(interactions[0].AnonymizedUserID, 8)
	assert.False(interactions[0].Timestamp.IsZero())

	err = store.RecordInteraction(ctx, model.Interaction{EventType: model.EventAccepted})
	require.Error(err)
	assert.True(errors.Is(err, model.ErrNotValid))
}

func TestStoreInteractionsSince(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := newStore(t)
	cutoff := time.Now().UTC()

	require.NoError(store.RecordInteraction(ctx, model.Interaction{
		EventType:    model.EventGenerated,
		SuggestionID: "old",
		Timestamp:    cutoff.Add(-time.Hour),
	}))
	require.NoError(store.RecordInteraction(ctx, model.Interaction{
		EventType:    model.EventGenerated,
		SuggestionID: "new",
		Timestamp:    cutoff.Add(time.Hour),
	}))

	interactions, err := store.InteractionsSince(ctx, cutoff)
	require.NoError(err)
	require.Len(interactions, 1)
	assert.Equal("new", interactions[0].SuggestionID)
}

func TestStoreAdaptationData(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := newStore(t)

	events := []struct {
		id    string
		event model.EventType
	}{
		{"sug-1", model.EventAccepted},
		{"sug-1", model.EventAccepted},
		{"sug-1", model.EventRejected},
		{"sug-1", model.EventIgnored},
		{"sug-2", model.EventRejected},
	}
	for _, e := range events {
		require.NoError(store.RecordInteraction(ctx, model.Interaction{
			EventType:    e.event,
			SuggestionID: e.id,
		}))
	}

	ratios, err := store.AdaptationData(ctx)
	require.NoError(err)
	require.Len(ratios, 2)

	assert.InDelta(0.5, ratios["sug-1"], 0.001)
	assert.InDelta(0.0, ratios["sug-2"], 0.001)
}

func TestStoreSyncState(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := newStore(t)

	last, err := store.LastSyncTimestamp(ctx)
	require.NoError(err)
	assert.True(last.IsZero())

	first := time.Now().UTC().Truncate(time.Second)
	require.NoError(store.SetLastSyncTimestamp(ctx, first))

	last, err = store.LastSyncTimestamp(ctx)
	require.NoError(err)
	assert.Equal(first.Unix(), last.Unix())

	// Upsert overwrites the previous value.
	second := first.Add(time.Hour)
	require.NoError(store.SetLastSyncTimestamp(ctx, second))

	last, err = store.LastSyncTimestamp(ctx)
	require.NoError(err)
	assert.Equal(second.Unix(), last.Unix())
}

func TestStorePayloadEncryption(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := newStore(t)

	payload := map[string]interface{}{
		"event":         "ACCEPTED",
		"suggestion_id": "sug-1",
	}
	encrypted, err := store.EncryptPayload(payload)
	require.NoError(err)
	assert.NotContains(string(encrypted), "ACCEPTED")
	assert.NotContains(string(encrypted), "sug-1")

	decrypted, err := store.DecryptPayload(encrypted)
	require.NoError(err)
	assert.Equal("ACCEPTED", decrypted["event"])
	assert.Equal("sug-1", decrypted["suggestion_id"])

	// Tampered ciphertext must not decrypt.
	encrypted[len(encrypted)-1] ^= 0xff
	_, err = store.DecryptPayload(encrypted)
	assert.Error(err)

	_, err = store.DecryptPayload([]byte{1, 2, 3})
	assert.Error(err)
}

func TestStoreKeyReuse(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	cfg := sqlite.StoreConfig{
		DBPath:  filepath.Join(dir, "telemetry.db"),
		KeyPath: filepath.Join(dir, "telemetry.key"),
		Logger:  log.Noop,
	}

	first, err := sqlite.NewStore(ctx, cfg)
	require.NoError(err)
	encrypted, err := first.EncryptPayload(map[string]interface{}{"k": "v"})
	require.NoError(err)
	require.NoError(first.Close())

	// Reopening must pick up the same key, not generate a new one.
	second, err := sqlite.NewStore(ctx, cfg)
	require.NoError(err)
	defer second.Close()

	decrypted, err := second.DecryptPayload(encrypted)
	require.NoError(err)
	assert.Equal("v", decrypted["k"])
}
