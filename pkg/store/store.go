// Package store defines the common layer contract for engram's memory stores
// and the record data model they share.
//
// Two concrete layers implement [Layer]: the hash-indexed factual store
// (exact/near-exact n-gram lookup) and the signature-indexed episodic store
// (approximate LSH retrieval weighted by decay). An orchestrator routes by
// content type without knowing the storage strategy; implementations are
// selected at construction time, never via runtime type inspection.
package store

import (
	"context"
	"time"
)

// ContentType is a coarse classification of memory content. It drives decay
// half-life defaults and write routing.
type ContentType string

const (
	TypeDecision     ContentType = "decision"
	TypeArchitecture ContentType = "architecture"
	TypeError        ContentType = "error"
	TypeSolution     ContentType = "solution"
	TypeLearning     ContentType = "learning"
	TypePreference   ContentType = "preference"
	TypeGeneral      ContentType = "general"
)

// Record is a stored memory item. ContentHash is a pure function of the
// normalized content; two records with equal hashes are duplicates and the
// second insertion resolves to the first record's identity.
type Record struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	ContentHash  string      `json:"contentHash"`
	CreatedAt    time.Time   `json:"timestamp"`
	LastAccessed time.Time   `json:"lastAccessed"`
	ContentType  ContentType `json:"contentType"`
	UtilityScore float64     `json:"utilityScore"`
	AccessCount  int         `json:"accessCount"`
	Metadata     Metadata    `json:"metadata"`
}

// Metadata is the typed metadata bag attached to a record. Extra is the
// narrow escape hatch for forward-compatible optional fields.
type Metadata struct {
	Source  string            `json:"source,omitempty"`
	Project string            `json:"project,omitempty"`
	Scope   string            `json:"scope,omitempty"`
	Curated bool              `json:"curated,omitempty"`
	Utility float64           `json:"utility,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// InitialUtility derives a record's starting utility score from its
// metadata: the explicit utility when set, 0.5 otherwise, floored at 0.9 for
// curated content so explicit writes outlive incidental ones.
func (m Metadata) InitialUtility() float64 {
	utility := m.Utility
	if utility <= 0 {
		utility = 0.5
	}
	if utility > 1 {
		utility = 1
	}
	if m.Curated && utility < 0.9 {
		utility = 0.9
	}
	return utility
}

// QueryResult pairs a record with its retrieval score. Score semantics are
// layer-specific: summed n-gram sizes for the factual layer, decay-weighted
// signature similarity for the episodic layer.
type QueryResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// Layer is the polymorphic store contract.
type Layer interface {
	// Initialize loads persisted state. A corrupt or missing backing file
	// recovers to an empty index; every other operation called before
	// Initialize returns ErrNotInitialized.
	Initialize(ctx context.Context) error

	// Store persists content. Idempotent on content hash: storing duplicate
	// content returns the existing record unchanged.
	Store(ctx context.Context, content string, meta Metadata) (Record, error)

	// Query returns up to limit records ranked by the layer's scoring scheme.
	Query(ctx context.Context, query string, limit int) ([]QueryResult, error)

	// Get retrieves a record by id. Unknown ids return (zero, false, nil).
	Get(ctx context.Context, id string) (Record, bool, error)

	// Delete removes a record and every index entry referencing it.
	// Unknown ids return (false, nil).
	Delete(ctx context.Context, id string) (bool, error)

	// Count reports the number of stored records.
	Count(ctx context.Context) (int, error)

	// Prune removes records whose decay factor has dropped below the
	// configured threshold and returns the removed records.
	Prune(ctx context.Context) ([]Record, error)

	// Close flushes pending writes and releases resources.
	Close() error
}
