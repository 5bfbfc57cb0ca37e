// Package sync drives end-to-end sync sessions: read a batch of pending
// mutations, deliver them to the remote backend, write back terminal
// statuses.
package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"go.uber.org/zap"

	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/logger"
	"github.com/facturo/backend/internal/models"
	"github.com/facturo/backend/internal/sync/queue"
	"github.com/facturo/backend/internal/sync/remote"
)

// RemoteApplier applies one queue entry against the remote backend.
// Satisfied by *remote.Client; stubbed in tests.
type RemoteApplier interface {
	Apply(ctx context.Context, entry *models.QueueEntry) error
}

// Broadcaster pushes sync lifecycle events to the desktop shell.
// All methods are fire-and-forget.
type Broadcaster interface {
	SyncStarted()
	SyncCompleted(synced, failed int)
	SyncFailed(message string)
	PendingCount(count int)
}

// SessionResult is the aggregate outcome of one sync session.
type SessionResult struct {
	Synced  int    `json:"synced"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

// Engine composes the queue, remote configuration, and remote client into
// one externally invoked session operation.
//
// The local store lock is only ever held inside the queue calls (batch read,
// status write-back); the dispatch loop in between runs lock-free, so a slow
// or hung remote never starves local store callers.
type Engine struct {
	queue     *queue.Queue
	batchSize int
	hub       Broadcaster

	mu   gosync.Mutex
	busy bool

	// Swapped out in tests.
	loadConfig func() (*remote.Config, bool)
	newClient  func(cfg *remote.Config) RemoteApplier
}

// NewEngine creates an Engine. hub may be nil; batchSize <= 0 means the
// default of 50.
func NewEngine(q *queue.Queue, batchSize int, hub Broadcaster) *Engine {
	if batchSize <= 0 {
		batchSize = queue.DefaultBatchSize
	}
	return &Engine{
		queue:      q,
		batchSize:  batchSize,
		hub:        hub,
		loadConfig: remote.ConfigFromEnv,
		newClient: func(cfg *remote.Config) RemoteApplier {
			return remote.NewClient(cfg)
		},
	}
}

// RunSession performs one read->dispatch->reconcile pass.
//
// Sessions are idempotent to repeat: resolved entries are never re-selected,
// and entries left pending by a not-configured or partial-failure outcome
// stay eligible for the next invocation. Concurrent invocation is not a
// supported use case; a second caller gets an SYNC_IN_PROGRESS error.
func (e *Engine) RunSession(ctx context.Context) (*SessionResult, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrSyncBusy, "sync already running")
	}
	e.busy = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}()

	// Phase 1: read batch (lock scoped inside SelectBatch).
	batch, err := e.queue.SelectBatch(e.batchSize)
	if err != nil {
		e.broadcastFailed(err.Error())
		return nil, err
	}
	if len(batch) == 0 {
		return &SessionResult{Message: "No pending operations"}, nil
	}

	cfg, ok := e.loadConfig()
	if !ok {
		logger.Log.Info("sync skipped: remote not configured",
			zap.Int("pending", len(batch)))
		return &SessionResult{
			Message: fmt.Sprintf("Supabase not configured (missing %s or %s)",
				remote.EnvURL, remote.EnvKey),
		}, nil
	}

	e.broadcastStarted()
	logger.Log.Info("sync session started", zap.Int("batch", len(batch)))

	// Phase 2: dispatch, no store lock held.
	results := e.dispatch(ctx, e.newClient(cfg), batch)

	// Phase 3: write back statuses (lock scoped inside ApplyResults).
	agg := e.queue.ApplyResults(results)

	result := &SessionResult{
		Synced:  agg.Synced,
		Failed:  agg.Failed,
		Message: fmt.Sprintf("Synced %d operations, %d failed", agg.Synced, agg.Failed),
	}

	logger.Log.Info("sync session finished",
		zap.Int("synced", agg.Synced), zap.Int("failed", agg.Failed))
	e.broadcastCompleted(agg.Synced, agg.Failed)
	e.broadcastPending()

	return result, nil
}

// dispatch applies the batch strictly in selection order, one in-flight
// request at a time, producing exactly one result per entry. Sequential
// delivery keeps mutations against the same record in commit order.
func (e *Engine) dispatch(ctx context.Context, client RemoteApplier, batch []*models.QueueEntry) []queue.Result {
	results := make([]queue.Result, 0, len(batch))
	for _, entry := range batch {
		err := client.Apply(ctx, entry)
		if err != nil {
			logger.Log.Warn("sync operation failed",
				zap.String("id", entry.ID),
				zap.String("table", entry.Table),
				zap.String("operation", entry.Operation),
				zap.Error(err))
		}
		results = append(results, queue.Result{EntryID: entry.ID, Err: err})
	}
	return results
}

// CountPending exposes the queue depth for the shell's status badge.
func (e *Engine) CountPending() (int, error) {
	return e.queue.CountPending()
}

func (e *Engine) broadcastStarted() {
	if e.hub != nil {
		e.hub.SyncStarted()
	}
}

func (e *Engine) broadcastCompleted(synced, failed int) {
	if e.hub != nil {
		e.hub.SyncCompleted(synced, failed)
	}
}

func (e *Engine) broadcastFailed(message string) {
	if e.hub != nil {
		e.hub.SyncFailed(message)
	}
}

func (e *Engine) broadcastPending() {
	if e.hub == nil {
		return
	}
	if count, err := e.queue.CountPending(); err == nil {
		e.hub.PendingCount(count)
	}
}
