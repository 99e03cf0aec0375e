// Package sqlite implements the telemetry store on SQLite. Interaction
// payloads are encrypted at rest with AES-GCM and user ids are anonymized.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/telemetry/sqlite/migrations"
)

// StoreConfig is the configuration for the SQLite telemetry store.
type StoreConfig struct {
	DBPath  string
	KeyPath string
	Logger  log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.KeyPath == "" {
		return fmt.Errorf("key path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "telemetry.SQLite"})
	return nil
}

// Store is a SQLite implementation of telemetry.Store.
type Store struct {
	db     *sql.DB
	key    []byte
	logger log.Logger
}

// NewStore creates a new SQLite telemetry store.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	key, err := loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not load encryption key: %w", err)
	}

	cfg.Logger.Debugf("SQLite telemetry store initialized at %s", cfg.DBPath)

	return &Store{db: db, key: key, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// RecordInteraction persists a single interaction event with its payload
// encrypted at rest.
func (s *Store) RecordInteraction(ctx context.Context, interaction model.Interaction) error {
	if err := interaction.Validate(); err != nil {
		return fmt.Errorf("invalid interaction: %w", err)
	}

	encrypted, err := s.EncryptPayload(map[string]interface{}{
		"event":          string(interaction.EventType),
		"suggestion_id":  interaction.SuggestionID,
		"context_sha256": embeddingDigest(interaction.ContextEmbedding),
	})
	if err != nil {
		return fmt.Errorf("could not encrypt payload: %w", err)
	}

	userID := interaction.AnonymizedUserID
	if userID == "" {
		userID, err = anonymizedUserID()
		if err != nil {
			return fmt.Errorf("could not anonymize user id: %w", err)
		}
	}

	metadata, err := json.Marshal(orEmpty(interaction.Metadata))
	if err != nil {
		return fmt.Errorf("could not marshal metadata: %w", err)
	}

	timestamp := interaction.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO interactions (timestamp, event_type, suggestion_id, encrypted_payload, anonymized_user_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		timestamp.Unix(),
		string(interaction.EventType),
		interaction.SuggestionID,
		encrypted,
		userID,
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("could not insert interaction: %w", err)
	}

	s.logger.Debugf("Recorded %s interaction for %s", interaction.EventType, interaction.SuggestionID)
	return nil
}

// ListInteractions returns all recorded interactions, oldest first.
func (s *Store) ListInteractions(ctx context.Context) ([]model.Interaction, error) {
	return s.queryInteractions(ctx, `
		SELECT id, timestamp, event_type, suggestion_id, anonymized_user_id, metadata
		FROM interactions
		ORDER BY timestamp ASC, id ASC
	`)
}

// InteractionsSince returns interactions recorded after t, oldest first.
func (s *Store) InteractionsSince(ctx context.Context, t time.Time) ([]model.Interaction, error) {
	return s.queryInteractions(ctx, `
		SELECT id, timestamp, event_type, suggestion_id, anonymized_user_id, metadata
		FROM interactions
		WHERE timestamp > ?
		ORDER BY timestamp ASC, id ASC
	`, t.Unix())
}

// AdaptationData computes acceptance ratios per suggestion id.
func (s *Store) AdaptationData(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT suggestion_id,
		       SUM(CASE WHEN event_type = 'ACCEPTED' THEN 1 ELSE 0 END) AS accepts,
		       COUNT(*) AS total
		FROM interactions
		GROUP BY suggestion_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query adaptation data: %w", err)
	}
	defer rows.Close()

	ratios := map[string]float64{}
	for rows.Next() {
		var suggestionID string
		var accepts, total int
		if err := rows.Scan(&suggestionID, &accepts, &total); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		if total > 0 {
			ratios[suggestionID] = float64(accepts) / float64(total)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ratios, nil
}

// LastSyncTimestamp returns when the store was last synced, zero when never.
func (s *Store) LastSyncTimestamp(ctx context.Context) (time.Time, error) {
	var lastSync int64
	err := s.db.QueryRowContext(ctx, `SELECT last_sync FROM sync_state WHERE id = 1`).Scan(&lastSync)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("could not query sync state: %w", err)
	}
	return time.Unix(lastSync, 0).UTC(), nil
}

// SetLastSyncTimestamp marks the store as synced at t.
func (s *Store) SetLastSyncTimestamp(ctx context.Context, t time.Time) error {
	query := `
		INSERT INTO sync_state (id, last_sync) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET last_sync = excluded.last_sync
	`
	if _, err := s.db.ExecContext(ctx, query, t.Unix()); err != nil {
		return fmt.Errorf("could not update sync state: %w", err)
	}
	return nil
}

func (s *Store) queryInteractions(ctx context.Context, query string, args ...interface{}) ([]model.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []model.Interaction
	for rows.Next() {
		var i model.Interaction
		var timestamp int64
		var eventType, metadata string
		if err := rows.Scan(&i.ID, &timestamp, &eventType, &i.SuggestionID, &i.AnonymizedUserID, &metadata); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		i.Timestamp = time.Unix(timestamp, 0).UTC()
		i.EventType = model.EventType(eventType)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &i.Metadata); err != nil {
				return nil, fmt.Errorf("could not unmarshal metadata: %w", err)
			}
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return interactions, nil
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
