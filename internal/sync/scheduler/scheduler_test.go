package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facturo/backend/internal/db"
	syncpkg "github.com/facturo/backend/internal/sync"
	"github.com/facturo/backend/internal/sync/queue"
)

func newTestEngine(t *testing.T) *syncpkg.Engine {
	t.Helper()

	database, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return syncpkg.NewEngine(queue.New(database), queue.DefaultBatchSize, nil)
}

func TestStartAndStop(t *testing.T) {
	s := New(newTestEngine(t), "@every 1h", true)

	s.Start()
	require.NotZero(t, s.entryID)
	s.Stop()
}

func TestDisabledSchedulerRegistersNothing(t *testing.T) {
	s := New(newTestEngine(t), "@every 1h", false)

	s.Start()
	require.Zero(t, s.entryID)
	s.Stop()
}

func TestInvalidScheduleDoesNotPanic(t *testing.T) {
	s := New(newTestEngine(t), "not a schedule", true)

	s.Start()
	require.Zero(t, s.entryID)
	s.Stop()
}

func TestScheduledSessionRuns(t *testing.T) {
	// An empty queue makes the tick a no-op session; this exercises the full
	// cron -> engine path without a remote.
	s := New(newTestEngine(t), "@every 10ms", true)

	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()
}
