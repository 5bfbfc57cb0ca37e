// Package scheduler triggers background sync sessions on a cron schedule.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/logger"
	syncpkg "github.com/facturo/backend/internal/sync"
)

// Scheduler runs periodic sync sessions so queued mutations drain without
// the shell having to ask. The engine serializes sessions itself, so an
// overlapping tick is simply skipped.
type Scheduler struct {
	engine   *syncpkg.Engine
	schedule string
	enabled  bool
	cron     *cron.Cron
	entryID  cron.EntryID
}

// New creates a Scheduler. schedule is a cron spec, e.g. "@every 5m".
func New(engine *syncpkg.Engine, schedule string, enabled bool) *Scheduler {
	return &Scheduler{
		engine:   engine,
		schedule: schedule,
		enabled:  enabled,
		cron:     cron.New(),
	}
}

// Start registers the sync job and starts the cron runner.
func (s *Scheduler) Start() {
	if !s.enabled {
		logger.Log.Info("background sync disabled")
		return
	}

	logger.Log.Info("starting background sync", zap.String("schedule", s.schedule))

	id, err := s.cron.AddFunc(s.schedule, s.runSession)
	if err != nil {
		logger.Log.Error("failed to schedule background sync", zap.Error(err))
		return
	}

	s.entryID = id
	s.cron.Start()
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	logger.Log.Info("background sync stopped")
}

func (s *Scheduler) runSession() {
	result, err := s.engine.RunSession(context.Background())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncBusy) {
			logger.Log.Debug("sync already running, skipping scheduled session")
			return
		}
		logger.Log.Error("scheduled sync session failed", zap.Error(err))
		return
	}

	if result.Synced > 0 || result.Failed > 0 {
		logger.Log.Info("scheduled sync session finished",
			zap.Int("synced", result.Synced),
			zap.Int("failed", result.Failed))
	}
}
