// Package bridge synchronizes telemetry with the cloud analytics endpoint
// over mutual TLS, queueing failed syncs for retry while offline.
package bridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/telemetry"
)

// schemaVersion is the sync protocol schema version.
const schemaVersion = "1.2"

// Config is the configuration for the analytics bridge.
type Config struct {
	Store telemetry.Store
	Host  string
	Port  int

	// Mutual TLS material. CA and client pair are optional, system roots and
	// server-only auth apply when absent.
	CAFile         string
	ClientCertFile string
	ClientKeyFile  string

	// QueueSize bounds the offline retry queue, full means drop with a warning.
	QueueSize   int
	DialTimeout time.Duration
	Logger      log.Logger
}

func (c *Config) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("telemetry store is required")
	}
	if c.Host == "" {
		return fmt.Errorf("cloud host is required")
	}
	if c.Port <= 0 {
		c.Port = 443
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1000
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "bridge.Bridge"})
	return nil
}

// pendingSync is a sync attempt queued for retry while offline.
type pendingSync struct {
	full     bool
	queuedAt time.Time
}

// handshakeRequest opens every sync session.
type handshakeRequest struct {
	LastSync      int64  `json:"last_sync"`
	SchemaVersion string `json:"schema_version"`
}

// handshakeResponse is the server's reply to the handshake.
type handshakeResponse struct {
	DeltaAvailable bool  `json:"delta_available"`
	Since          int64 `json:"since"`
}

// Bridge syncs telemetry records with the cloud endpoint.
type Bridge struct {
	store       telemetry.Store
	host        string
	port        int
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	logger      log.Logger

	// mu ensures a single sync at a time.
	mu       sync.Mutex
	offline  chan pendingSync
	stopC    chan struct{}
	stopOnce sync.Once
}

// NewBridge creates a new analytics bridge.
func NewBridge(cfg Config) (*Bridge, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not build tls config: %w", err)
	}

	return &Bridge{
		store:       cfg.Store,
		host:        cfg.Host,
		port:        cfg.Port,
		tlsConfig:   tlsConfig,
		dialTimeout: cfg.DialTimeout,
		logger:      cfg.Logger,
		offline:     make(chan pendingSync, cfg.QueueSize),
		stopC:       make(chan struct{}),
	}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("could not read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("could not parse ca file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("could not load client key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Sync synchronizes telemetry with the cloud endpoint. Failed syncs are
// queued for retry, a full retry queue drops the attempt with a warning.
func (b *Bridge) Sync(ctx context.Context, forceFull bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.sync(ctx, forceFull)
	if err == nil {
		return nil
	}

	b.logger.Errorf("Sync failed: %s, queuing for retry", err)
	select {
	case b.offline <- pendingSync{full: forceFull, queuedAt: time.Now().UTC()}:
	default:
		b.logger.Warningf("Offline queue full, dropping telemetry sync")
	}
	return err
}

func (b *Bridge) sync(ctx context.Context, forceFull bool) error {
	lastSync, err := b.store.LastSyncTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("could not get last sync timestamp: %w", err)
	}

	dialer := &net.Dialer{Timeout: b.dialTimeout}
	addr := net.JoinHostPort(b.host, strconv.Itoa(b.port))
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, b.tlsConfig)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(handshakeRequest{
		LastSync:      lastSync.Unix(),
		SchemaVersion: schemaVersion,
	}); err != nil {
		return fmt.Errorf("could not send handshake: %w", err)
	}

	var resp handshakeResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("could not read handshake response: %w", err)
	}

	if resp.DeltaAvailable && !forceFull {
		err = b.sendDelta(ctx, conn, time.Unix(resp.Since, 0).UTC())
	} else {
		err = b.sendFull(ctx, conn)
	}
	if err != nil {
		return err
	}

	if err := b.store.SetLastSyncTimestamp(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("could not update last sync timestamp: %w", err)
	}

	b.logger.Infof("Telemetry synced with %s", addr)
	return nil
}

func (b *Bridge) sendDelta(ctx context.Context, conn *tls.Conn, since time.Time) error {
	records, err := b.store.InteractionsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("could not load delta records: %w", err)
	}
	return b.sendRecords(conn, records)
}

func (b *Bridge) sendFull(ctx context.Context, conn *tls.Conn) error {
	records, err := b.store.ListInteractions(ctx)
	if err != nil {
		return fmt.Errorf("could not load records: %w", err)
	}
	return b.sendRecords(conn, records)
}

// Start launches the background sync loop. Queued retries are drained before
// each regular sync.
func (b *Bridge) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopC:
				return
			case <-ticker.C:
				b.drainRetries(ctx)
				if err := b.Sync(ctx, false); err != nil {
					b.logger.Debugf("Background sync attempt failed: %s", err)
				}
			}
		}
	}()
}

func (b *Bridge) drainRetries(ctx context.Context) {
	for {
		select {
		case pending := <-b.offline:
			b.logger.Debugf("Retrying sync queued at %s", pending.queuedAt)
			b.mu.Lock()
			err := b.sync(ctx, pending.full)
			b.mu.Unlock()
			if err != nil {
				// Still offline, put it back and stop draining.
				select {
				case b.offline <- pending:
				default:
				}
				return
			}
		default:
			return
		}
	}
}

// Stop stops the background sync loop.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() { close(b.stopC) })
}

// QueuedRetries returns the number of sync attempts waiting for retry.
func (b *Bridge) QueuedRetries() int { return len(b.offline) }
