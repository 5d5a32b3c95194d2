package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"

	"knowledgeagent/internal/audit"
	"knowledgeagent/internal/config"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/vectorstore"
)

const runTaskType = "knowledge-indexer:run"

// Scheduler drives the pipeline on a fixed interval and exposes a manual
// trigger. isRunning is the single source of truth for the singleton
// guarantee: an overlapping tick is dropped, never queued.
type Scheduler struct {
	pipeline *Pipeline
	audit    *audit.Log
	cron     *gocron.Scheduler
	client   *asynq.Client

	mu        sync.Mutex
	isRunning bool

	intervalMs int64
	enabled    bool
}

func NewScheduler(cfg *config.Config, pipeline *Pipeline, auditLog *audit.Log, redisOpt asynq.RedisClientOpt) *Scheduler {
	return &Scheduler{
		pipeline:   pipeline,
		audit:      auditLog,
		cron:       gocron.NewScheduler(time.UTC),
		client:     asynq.NewClient(redisOpt),
		intervalMs: cfg.KnowledgeIndexerIntervalMs,
		enabled:    cfg.KnowledgeIndexerEnabled,
	}
}

// Start runs one pass immediately if enabled, then schedules every
// intervalMs thereafter.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled {
		logger.Info("knowledge indexer disabled, scheduler not started")
		return nil
	}

	// gocron runs an interval job once as soon as the scheduler starts, which
	// supplies the immediate first pass.
	interval := time.Duration(s.intervalMs) * time.Millisecond
	_, err := s.cron.Every(interval).Do(func() {
		s.runIfNotRunning(context.Background(), models.IndexerRunOptions{Trigger: "scheduled"})
	})
	if err != nil {
		return fmt.Errorf("scheduler: schedule interval job: %w", err)
	}

	s.cron.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	if s.client != nil {
		s.client.Close()
	}
}

// IsRunning reports whether a pass is currently in flight, exposed as the
// health signal in place of a distributed lock.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// StoreStats reports the vector index's current document count and storage
// size, delegating straight to the store behind this scheduler's pipeline.
func (s *Scheduler) StoreStats(ctx context.Context) (*vectorstore.Stats, error) {
	return s.pipeline.Store.GetStats(ctx)
}

// runIfNotRunning enforces the singleton: if a pass is already running,
// this tick is skipped, not queued for later.
func (s *Scheduler) runIfNotRunning(ctx context.Context, opts models.IndexerRunOptions) *models.IndexerResult {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		logger.Warn("indexer pass already running, skipping tick", "trigger", opts.Trigger)
		return &models.IndexerResult{AlreadyRunning: true}
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	startedAt := time.Now().UTC()
	result, err := s.pipeline.RunPass(ctx, opts)
	finishedAt := time.Now().UTC()

	if err != nil {
		logger.Error("indexer pass failed", "trigger", opts.Trigger, "error", err)
		result = &models.IndexerResult{Errors: []string{err.Error()}}
	}

	if s.audit != nil {
		s.audit.RecordRun(ctx, opts, *result, startedAt, finishedAt)
	}
	return result
}

// TriggerManual runs a pass immediately with the given overrides, subject
// to the same singleton guarantee as the scheduled tick. No asynq worker
// consumes this queue — the pass always runs inline via runIfNotRunning,
// which is the sole execution path and the sole singleton authority. The
// enqueue is a best-effort cross-process dedup belt only: it uses asynq's
// default type+payload uniqueness key (no fixed TaskID), so its lock
// expires with the TTL instead of wedging the endpoint after the first
// call the way a fixed TaskID would (nothing ever dequeues it to clear it).
func (s *Scheduler) TriggerManual(ctx context.Context, opts models.IndexerRunOptions) (*models.IndexerResult, error) {
	if s.client != nil {
		payload, err := json.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("trigger manual: marshal payload: %w", err)
		}
		task := asynq.NewTask(runTaskType, payload)
		if _, err := s.client.EnqueueContext(ctx, task, asynq.Unique(time.Minute)); err != nil {
			if err == asynq.ErrDuplicateTask {
				return &models.IndexerResult{AlreadyRunning: true}, nil
			}
			logger.Warn("manual trigger dedup enqueue failed, running inline", "error", err)
		}
	}

	result := s.runIfNotRunning(ctx, opts)
	return result, nil
}
