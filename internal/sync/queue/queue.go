// Package queue provides the durable mutation log feeding remote sync.
//
// Every local write that should reach the remote backend is recorded as one
// row in the sync_queue table. Entries start pending and are resolved exactly
// once to synced or failed; resolved entries are kept as an audit trail and
// never selected again.
package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/facturo/backend/internal/db"
	apperrors "github.com/facturo/backend/internal/errors"
	"github.com/facturo/backend/internal/logger"
	"github.com/facturo/backend/internal/models"
	"github.com/facturo/backend/internal/uuid"
)

// Mutation kinds recorded in the log.
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Entry statuses. Synced and failed are terminal.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusFailed  = "failed"
)

// DefaultBatchSize caps how many pending entries one session picks up.
const DefaultBatchSize = 50

// timeLayout is RFC3339 with fixed-width nanoseconds so that lexical order
// of created_at equals chronological order; ties are broken by entry id.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sync_queue (
	id TEXT PRIMARY KEY,
	table_name TEXT NOT NULL,
	operation TEXT NOT NULL,
	record_id TEXT,
	data TEXT,
	created_at TEXT NOT NULL,
	synced_at TEXT,
	status TEXT DEFAULT 'pending',
	last_error TEXT
)`

// Queue manages the sync_queue table over the shared store handle.
// Each public method is one short lock-scoped critical section.
type Queue struct {
	db *db.DB
}

// New creates a Queue over the shared store handle.
func New(database *db.DB) *Queue {
	return &Queue{db: database}
}

// Result pairs an entry id with its dispatch outcome (nil error = applied).
type Result struct {
	EntryID string
	Err     error
}

// Aggregate is the per-session bookkeeping summary.
type Aggregate struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Enqueue records one mutation for later propagation. The log table is
// created lazily on first use. data may be nil (delete), recordID may be
// empty (insert).
func (q *Queue) Enqueue(table, operation string, data []byte, recordID string) error {
	q.db.Lock()
	defer q.db.Unlock()

	if _, err := q.db.DB.Exec(createTableSQL); err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to create sync queue table", err)
	}

	var dataVal, recordVal interface{}
	if data != nil {
		dataVal = string(data)
	}
	if recordID != "" {
		recordVal = recordID
	}

	id := uuid.New()
	createdAt := time.Now().UTC().Format(timeLayout)

	_, err := q.db.DB.Exec(
		`INSERT INTO sync_queue (id, table_name, operation, record_id, data, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, table, operation, recordVal, dataVal, createdAt, StatusPending,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStore, "failed to enqueue operation", err)
	}

	logger.Log.Debug("enqueued sync operation",
		zap.String("id", id),
		zap.String("table", table),
		zap.String("operation", operation))
	return nil
}

// SelectBatch returns up to max pending entries in dispatch order: ascending
// created_at, ties broken by id so the order is total. Returns an empty slice
// when nothing is pending or the log table does not exist yet.
func (q *Queue) SelectBatch(max int) ([]*models.QueueEntry, error) {
	if max <= 0 {
		max = DefaultBatchSize
	}

	q.db.Lock()
	defer q.db.Unlock()

	exists, err := q.db.TableExists(models.QueueEntry{}.TableName())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to check sync queue table", err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := q.db.DB.Query(
		`SELECT id, table_name, operation, record_id, data, created_at
		 FROM sync_queue
		 WHERE status = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		StatusPending, max,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to select pending entries", err)
	}
	defer rows.Close()

	var batch []*models.QueueEntry
	for rows.Next() {
		entry := &models.QueueEntry{Status: StatusPending}
		var recordID, data *string
		if err := rows.Scan(&entry.ID, &entry.Table, &entry.Operation, &recordID, &data, &entry.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStore, "failed to scan queue entry", err)
		}
		if recordID != nil {
			entry.RecordID = *recordID
		}
		if data != nil {
			entry.Data = []byte(*data)
		}
		batch = append(batch, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, "failed to iterate queue entries", err)
	}
	return batch, nil
}

// CountPending returns the number of unresolved entries, 0 when the log
// table does not exist yet.
func (q *Queue) CountPending() (int, error) {
	q.db.Lock()
	defer q.db.Unlock()

	exists, err := q.db.TableExists(models.QueueEntry{}.TableName())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, "failed to check sync queue table", err)
	}
	if !exists {
		return 0, nil
	}

	var count int
	err = q.db.DB.QueryRow(
		"SELECT COUNT(*) FROM sync_queue WHERE status = ?", StatusPending,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStore, "failed to count pending entries", err)
	}
	return count, nil
}

// ApplyResults writes back terminal statuses for one dispatched batch under a
// single lock acquisition. A write-back that itself fails counts as failed
// and is logged; it never stops the remaining entries from being resolved.
func (q *Queue) ApplyResults(results []Result) Aggregate {
	q.db.Lock()
	defer q.db.Unlock()

	var agg Aggregate
	now := time.Now().UTC().Format(timeLayout)

	for _, res := range results {
		if res.Err == nil {
			if err := q.markSynced(res.EntryID, now); err != nil {
				agg.Failed++
				logger.Log.Warn("failed to mark entry synced",
					zap.String("id", res.EntryID), zap.Error(err))
				continue
			}
			agg.Synced++
			continue
		}

		agg.Failed++
		if err := q.markFailed(res.EntryID, res.Err.Error(), now); err != nil {
			logger.Log.Warn("failed to mark entry failed",
				zap.String("id", res.EntryID), zap.Error(err))
		}
	}
	return agg
}

// markSynced resolves one entry as delivered. Pending-only so resolution
// stays one-way.
func (q *Queue) markSynced(id, at string) error {
	_, err := q.db.DB.Exec(
		"UPDATE sync_queue SET status = ?, synced_at = ? WHERE id = ? AND status = ?",
		StatusSynced, at, id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s synced: %w", id, err)
	}
	return nil
}

// markFailed resolves one entry as failed. The failure text goes to
// last_error; the original payload stays untouched for manual inspection.
func (q *Queue) markFailed(id, errText, at string) error {
	_, err := q.db.DB.Exec(
		"UPDATE sync_queue SET status = ?, synced_at = ?, last_error = ? WHERE id = ? AND status = ?",
		StatusFailed, at, errText, id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s failed: %w", id, err)
	}
	return nil
}
