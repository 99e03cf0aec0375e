package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umi-ai/umi/internal/model"
)

func TestCompressRecordsRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	now := time.Now().UTC().Truncate(time.Second)
	records := []model.Interaction{
		{
			ID:               1,
			Timestamp:        now,
			EventType:        model.EventGenerated,
			SuggestionID:     "sug-1",
			AnonymizedUserID: "ab12cd34",
			Metadata:         map[string]interface{}{"file": "app.py"},
		},
		{
			ID:           2,
			Timestamp:    now.Add(time.Minute),
			EventType:    model.EventAccepted,
			SuggestionID: "sug-1",
		},
	}

	packed, err := compressRecords(records)
	require.NoError(err)

	var env envelope
	require.NoError(json.Unmarshal(packed, &env))
	assert.True(env.Compressed)
	assert.Equal("zlib", env.Algo)
	assert.NotZero(env.Checksum)

	got, err := decompressRecords(packed)
	require.NoError(err)
	require.Len(got, 2)

	assert.Equal(int64(1), got[0].ID)
	assert.Equal(now.Unix(), got[0].Timestamp)
	assert.Equal("GENERATED", got[0].EventType)
	assert.Equal("sug-1", got[0].SuggestionID)
	assert.Equal("ab12cd34", got[0].AnonymizedUserID)
	assert.Equal("app.py", got[0].Metadata["file"])
	assert.Equal("ACCEPTED", got[1].EventType)
}

func TestCompressRecordsEmpty(t *testing.T) {
	require := require.New(t)

	packed, err := compressRecords(nil)
	require.NoError(err)

	got, err := decompressRecords(packed)
	require.NoError(err)
	require.Empty(got)
}

func TestDecompressRecordsCorruption(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	packed, err := compressRecords([]model.Interaction{{
		ID:           1,
		EventType:    model.EventGenerated,
		SuggestionID: "sug-1",
	}})
	require.NoError(err)

	var env envelope
	require.NoError(json.Unmarshal(packed, &env))

	// A wrong checksum must be rejected.
	env.Checksum++
	tampered, err := json.Marshal(env)
	require.NoError(err)
	_, err = decompressRecords(tampered)
	assert.Error(err)

	// Unknown compression algos must be rejected.
	env.Checksum--
	env.Algo = "zstd"
	tampered, err = json.Marshal(env)
	require.NoError(err)
	_, err = decompressRecords(tampered)
	assert.Error(err)

	_, err = decompressRecords([]byte("not an envelope"))
	assert.Error(err)
}
