// Package eventstream publishes memory lifecycle events to an event stream
// backend. Events are transport-neutral payloads; backends (kafka, nop) are
// selected at construction time.
package eventstream

import (
	"time"

	"github.com/papercomputeco/engram/pkg/store"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeStored is emitted after content is admitted and persisted.
	EventTypeStored = "engram.memory.stored"

	// EventTypeSkipped is emitted when the admission gate rejects content.
	EventTypeSkipped = "engram.memory.skipped"

	// EventTypePruned is emitted when a decayed record is evicted.
	EventTypePruned = "engram.memory.pruned"
)

// MemoryEvent is a transport-neutral event payload for a memory lifecycle
// transition.
type MemoryEvent struct {
	SchemaVersion int               `json:"schema_version"`
	EventType     string            `json:"event_type"`
	EventID       string            `json:"event_id"`
	EmittedAt     time.Time         `json:"emitted_at"`
	RecordID      string            `json:"record_id,omitempty"`
	ContentType   store.ContentType `json:"content_type,omitempty"`
	Layer         string            `json:"layer,omitempty"`
	Score         float64           `json:"score,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}
