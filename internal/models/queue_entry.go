// Package models provides data model definitions for the Facturo backend.
package models

import (
	"encoding/json"
	"time"
)

// QueueEntry represents one durable mutation awaiting remote propagation.
// Entries are append-only: once resolved (synced or failed) they are kept
// as an audit trail and never selected again.
type QueueEntry struct {
	ID        string          `db:"id" json:"id"`
	Table     string          `db:"table_name" json:"table_name"`
	Operation string          `db:"operation" json:"operation"` // insert, update, delete
	RecordID  string          `db:"record_id" json:"record_id,omitempty"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	CreatedAt string          `db:"created_at" json:"created_at"` // RFC3339 UTC
	SyncedAt  string          `db:"synced_at" json:"synced_at,omitempty"`
	Status    string          `db:"status" json:"status"` // pending, synced, failed
	LastError string          `db:"last_error" json:"last_error,omitempty"`
}

// TableName returns the table name for QueueEntry.
func (QueueEntry) TableName() string {
	return "sync_queue"
}

// CreatedTime parses CreatedAt. Returns the zero time if the value is malformed.
func (e *QueueEntry) CreatedTime() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, e.CreatedAt)
	return t
}
