package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQueueEntryTableName(t *testing.T) {
	if got := (QueueEntry{}).TableName(); got != "sync_queue" {
		t.Errorf("TableName() = %q, want %q", got, "sync_queue")
	}
}

func TestCreatedTime(t *testing.T) {
	e := &QueueEntry{CreatedAt: "2026-03-01T12:30:45.123456789Z"}

	got := e.CreatedTime()
	want := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)
	if !got.Equal(want) {
		t.Errorf("CreatedTime() = %v, want %v", got, want)
	}
}

func TestCreatedTimeMalformed(t *testing.T) {
	e := &QueueEntry{CreatedAt: "not a timestamp"}
	if !e.CreatedTime().IsZero() {
		t.Errorf("CreatedTime() on malformed input should be zero, got %v", e.CreatedTime())
	}
}

func TestQueueEntryJSONOmitsEmptyFields(t *testing.T) {
	e := QueueEntry{
		ID:        "e1",
		Table: "invoices",
		Operation: "delete",
		RecordID:  "r1",
		CreatedAt: "2026-03-01T12:30:45.000000000Z",
		Status:    "pending",
	}

	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, field := range []string{"data", "synced_at", "last_error"} {
		if _, present := decoded[field]; present {
			t.Errorf("empty field %q should be omitted from JSON", field)
		}
	}
	if decoded["table_name"] != "invoices" {
		t.Errorf("table_name = %v, want invoices", decoded["table_name"])
	}
}
