// Package core defines the domain types and ports of the trellis data layer.
package core

import "time"

// Meta carries the audit metadata persisted alongside every document.
// CreatedAt/CreatedBy survive updates; UpdatedAt/UpdatedBy track the last
// writer. Version counts commits at the path; it is exposed for
// optimistic-concurrency checks by callers but not enforced by this layer.
type Meta struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
	Version   int64     `json:"version"`
}

// Document is the central entity of the domain: one JSON value stored at a
// hierarchical path inside a workspace. A nil Value is a tombstone — the
// document exists but was intentionally cleared, which is distinct from the
// document never having been written.
type Document struct {
	Workspace string `json:"workspace"`
	Path      string `json:"path"`
	Value     any    `json:"value"`
	Meta      Meta   `json:"meta"`
}

// Tombstone reports whether the document exists with a cleared value.
func (d Document) Tombstone() bool {
	return d.Value == nil
}

// EventType represents the type of change observed in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in a store, as reported by adapters that can
// observe external mutations (e.g. the filestore watcher).
type Event struct {
	Type      EventType
	Workspace string
	Path      string
	Timestamp int64 // Unix timestamp
}

// BatchOpType identifies a single operation inside a batch.
type BatchOpType string

const (
	BatchRead  BatchOpType = "read"
	BatchWrite BatchOpType = "write"
)

// BatchOperation is one entry of an ordered batch. Write operations commit
// atomically with every other write in the same batch; read operations
// observe the state as it was before the batch.
type BatchOperation struct {
	Type    BatchOpType `json:"type"`
	Path    string      `json:"path"`
	Value   any         `json:"value,omitempty"`
	Default any         `json:"defaultValue,omitempty"`
}

// BatchResult is the per-operation outcome, in batch order.
type BatchResult struct {
	Path        string `json:"path"`
	Value       any    `json:"value,omitempty"`
	UsedDefault bool   `json:"usedDefault,omitempty"`
	Written     bool   `json:"written,omitempty"`
}
