// Package pipeline implements the suggestion pipeline: an orchestrator that
// drives code-analysis tasks through an ordered sequence of stages using a
// bounded priority queue and a fixed pool of workers.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/umi-ai/umi/internal/log"
	"github.com/umi-ai/umi/internal/model"
	"github.com/umi-ai/umi/internal/telemetry"
)

// maxStageAttempts is the retry limit per stage. A task exhausting it is
// dropped with a PIPELINE_ERROR event, there is no dead-letter persistence.
const maxStageAttempts = 3

// Config is the configuration for the pipeline.
type Config struct {
	Analyzer  ContextAnalyzer
	Refactor  RefactorEngine
	Styler    StyleAdapter
	Telemetry telemetry.Store
	Logger    log.Logger

	// QueueSize bounds the scheduler, enqueues block when it is reached.
	QueueSize int
	// DequeueTimeout is how long a worker waits for a task before re-checking
	// the stop signal.
	DequeueTimeout time.Duration
	// ShutdownTimeout is the bounded wait per worker on shutdown.
	ShutdownTimeout time.Duration
}

func (c *Config) defaults() error {
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.Pipeline"})

	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.DequeueTimeout <= 0 {
		c.DequeueTimeout = 1 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}

	return nil
}

// Pipeline drives tasks through the stage sequence. Ingestion is
// fire-and-forget: stage failures surface only through telemetry events and
// logs, never to the caller.
type Pipeline struct {
	analyzer  ContextAnalyzer
	refactor  RefactorEngine
	styler    StyleAdapter
	telemetry telemetry.Store
	logger    log.Logger

	queue   *Queue
	stages  map[model.Stage]stageSpec
	results resultSink

	dequeueTimeout  time.Duration
	shutdownTimeout time.Duration

	workers  int
	wg       sync.WaitGroup
	stopC    chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex

	// pending counts ingested tasks not yet committed or dropped.
	pending atomic.Int64
}

// New creates a new pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	queue, err := NewQueue(cfg.QueueSize)
	if err != nil {
		return nil, fmt.Errorf("could not create queue: %w", err)
	}

	p := &Pipeline{
		analyzer:        cfg.Analyzer,
		refactor:        cfg.Refactor,
		styler:          cfg.Styler,
		telemetry:       cfg.Telemetry,
		logger:          cfg.Logger,
		queue:           queue,
		dequeueTimeout:  cfg.DequeueTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		stopC:           make(chan struct{}),
	}
	p.stages = p.stageTable()

	return p, nil
}

// Ingest enqueues a new task at the first stage. It blocks while the queue is
// at capacity. Priorities below zero are clamped to zero.
func (p *Pipeline) Ingest(ctx context.Context, filePath, code string, priority int) (string, error) {
	if priority < 0 {
		priority = 0
	}

	task := &model.Task{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		FilePath:  filePath,
		Code:      code,
		Stage:     model.StageContextAnalysis,
		Priority:  priority,
		Metadata:  map[string]interface{}{},
		CreatedAt: time.Now().UTC(),
	}
	if err := task.Validate(); err != nil {
		return "", fmt.Errorf("invalid task: %w", err)
	}

	p.logger.Infof("Ingesting code for file %s with priority %d", filePath, priority)

	p.pending.Add(1)
	if err := p.queue.Enqueue(task); err != nil {
		p.pending.Add(-1)
		return "", fmt.Errorf("could not enqueue task: %w", err)
	}

	return task.ID, nil
}

// Start launches n workers. The context is handed to collaborator calls, it
// is not used to cancel tasks already dispatched.
func (p *Pipeline) Start(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("worker count must be positive: %w", model.ErrNotValid)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	p.started = true
	p.workers = n

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}

	p.logger.Infof("Started %d pipeline workers", n)
	return nil
}

// Shutdown stops the workers cooperatively: a task being executed runs to
// completion, queued tasks are discarded. The wait is bounded.
func (p *Pipeline) Shutdown() error {
	p.logger.Infof("Shutting down pipeline")
	p.stopOnce.Do(func() { close(p.stopC) })

	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timeout := p.shutdownTimeout * time.Duration(max(workers, 1))
	select {
	case <-done:
	case <-time.After(timeout):
		p.queue.Close()
		return fmt.Errorf("workers did not stop within %s", timeout)
	}

	p.queue.Close()
	p.logger.Infof("Pipeline shutdown complete")
	return nil
}

// Results returns the terminal tasks collected so far.
func (p *Pipeline) Results() []*model.Task {
	return p.results.list()
}

// WaitIdle blocks until every ingested task has been committed or dropped, or
// the context is done.
func (p *Pipeline) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if p.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.WithValues(log.Kv{"worker": id})

	for {
		select {
		case <-p.stopC:
			return
		default:
		}

		task, err := p.queue.Dequeue(p.dequeueTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return
			}
			continue
		}

		p.safeProcess(ctx, logger, task)
	}
}

// safeProcess isolates a worker iteration: an unexpected panic is recovered
// and logged so one task's fault never takes down the pool.
func (p *Pipeline) safeProcess(ctx context.Context, logger log.Logger, task *model.Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Worker encountered unexpected error: %v", r)
			p.pending.Add(-1)
		}
	}()

	p.process(ctx, logger, task)
}

// process executes one stage of a task and decides its fate: requeue at the
// next stage, retry at the same stage, commit, or drop.
func (p *Pipeline) process(ctx context.Context, logger log.Logger, task *model.Task) {
	task.Attempts++

	spec, ok := p.stages[task.Stage]
	if !ok {
		logger.Errorf("Task %s has unknown stage %d, dropping", task.ID, int(task.Stage))
		p.pending.Add(-1)
		return
	}

	err := spec.handler(ctx, task)
	if err != nil {
		p.handleStageFailure(ctx, logger, task, err)
		return
	}

	if task.Stage.Terminal() {
		p.results.add(task)
		p.pending.Add(-1)
		logger.Infof("Task for %s completed successfully", task.FilePath)
		return
	}

	// Requeue for the next stage with escalated urgency so in-flight work is
	// never starved by fresh ingests.
	task.Stage = spec.next
	task.Attempts = 0
	task.Priority = max(0, task.Priority-1)
	if err := p.queue.Enqueue(task); err != nil {
		logger.Errorf("Could not requeue task %s: %s", task.ID, err)
		p.pending.Add(-1)
	}
}

func (p *Pipeline) handleStageFailure(ctx context.Context, logger log.Logger, task *model.Task, err error) {
	logger.Errorf("Pipeline stage %s failed: %s", task.Stage, err)

	if task.Attempts < maxStageAttempts {
		logger.Infof("Retrying task %s, attempt %d", task.FilePath, task.Attempts)
		if err := p.queue.Enqueue(task); err != nil {
			logger.Errorf("Could not requeue task %s for retry: %s", task.ID, err)
			p.pending.Add(-1)
		}
		return
	}

	p.recordEvent(ctx, model.Interaction{
		EventType:    model.EventPipelineError,
		SuggestionID: fmt.Sprintf("ERR_%s", task.Stage),
		Metadata:     task.Metadata,
	})
	logger.Errorf("Task failed after %d attempts: %s", maxStageAttempts, task.FilePath)
	p.pending.Add(-1)
}
