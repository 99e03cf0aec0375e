package bridge

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/umi-ai/umi/internal/model"
)

// wireRecord is the serialized form of an interaction on the sync channel.
// Encrypted payloads never leave the local store.
type wireRecord struct {
	ID               int64                  `json:"id"`
	Timestamp        int64                  `json:"timestamp"`
	EventType        string                 `json:"event_type"`
	SuggestionID     string                 `json:"suggestion_id"`
	AnonymizedUserID string                 `json:"anonymized_user_id"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// envelope wraps a compressed record batch with its integrity checksum.
type envelope struct {
	Compressed bool   `json:"compressed"`
	Algo       string `json:"algo"`
	Checksum   uint32 `json:"checksum"`
	Payload    string `json:"payload"`
}

func (b *Bridge) sendRecords(w io.Writer, records []model.Interaction) error {
	packed, err := compressRecords(records)
	if err != nil {
		return fmt.Errorf("could not compress records: %w", err)
	}
	if _, err := w.Write(packed); err != nil {
		return fmt.Errorf("could not send records: %w", err)
	}

	b.logger.Debugf("Sent %d telemetry records", len(records))
	return nil
}

// compressRecords serializes records as JSON, compresses them with zlib and
// wraps the result in a checksummed envelope.
func compressRecords(records []model.Interaction) ([]byte, error) {
	wire := make([]wireRecord, 0, len(records))
	for _, r := range records {
		wire = append(wire, wireRecord{
			ID:               r.ID,
			Timestamp:        r.Timestamp.Unix(),
			EventType:        string(r.EventType),
			SuggestionID:     r.SuggestionID,
			AnonymizedUserID: r.AnonymizedUserID,
			Metadata:         r.Metadata,
		})
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("could not marshal records: %w", err)
	}

	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("could not create compressor: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("could not compress records: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("could not flush compressor: %w", err)
	}

	return json.Marshal(envelope{
		Compressed: true,
		Algo:       "zlib",
		Checksum:   crc32.ChecksumIEEE(raw),
		Payload:    hex.EncodeToString(compressed.Bytes()),
	})
}

// decompressRecords reverses compressRecords, verifying the checksum.
func decompressRecords(packed []byte) ([]wireRecord, error) {
	var env envelope
	if err := json.Unmarshal(packed, &env); err != nil {
		return nil, fmt.Errorf("could not unmarshal envelope: %w", err)
	}
	if env.Algo != "zlib" {
		return nil, fmt.Errorf("unsupported compression algo %q", env.Algo)
	}

	compressed, err := hex.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("could not decode payload: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("could not create decompressor: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("could not decompress payload: %w", err)
	}
	if crc32.ChecksumIEEE(raw) != env.Checksum {
		return nil, fmt.Errorf("checksum mismatch")
	}

	var records []wireRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("could not unmarshal records: %w", err)
	}
	return records, nil
}
