// Package episodic implements the signature-indexed semantic/episodic layer.
//
// Records carry their LSH signature sets, persisted alongside the content.
// Queries scan the full record set comparing signatures (or, when a
// similarity provider is injected, arbitrary content similarity), weight the
// result by the record's current decay factor plus a curated boost, and
// return the top matches. The scan design is a deliberate trade against the
// factual layer's inverted index, so the store caps record count per scope
// to keep query latency bounded; exceeding the cap surfaces a QuotaError so
// callers can run a pruning pass.
package episodic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/decay"
	"github.com/papercomputeco/engram/pkg/fingerprint"
	"github.com/papercomputeco/engram/pkg/similarity"
	"github.com/papercomputeco/engram/pkg/store"
)

const (
	// schemaVersion is the persisted document version.
	schemaVersion = 1

	// DefaultMaxRecordsPerScope bounds the scan size per scope.
	DefaultMaxRecordsPerScope = 1000

	// DefaultFlushEvery is the mutation count between automatic flushes.
	DefaultFlushEvery = 16

	// curatedBoost multiplies the score of explicitly curated records.
	curatedBoost = 1.2

	// defaultScope is used when a record's metadata names no scope.
	defaultScope = "default"
)

// Config holds configuration for the episodic store.
type Config struct {
	// Path is the backing JSON file. Empty means in-memory only.
	Path string

	// MaxRecordsPerScope caps records per scope (day for episodic logs,
	// project for semantic patterns). Defaults to DefaultMaxRecordsPerScope.
	MaxRecordsPerScope int

	// FlushEvery is the mutation count between flushes.
	// Defaults to DefaultFlushEvery.
	FlushEvery int

	// Decay tunes query weighting and the prune pass.
	Decay decay.Config
}

// Store is the signature-indexed layer. The RWMutex guards records,
// signatures, scope counts, and the dirty counter together.
type Store struct {
	config   Config
	logger   *zap.Logger
	provider similarity.Provider
	now      func() time.Time

	mu          sync.RWMutex
	initialized bool
	records     map[string]*store.Record
	byHash      map[string]string
	signatures  map[string][]string
	scopeCounts map[string]int
	dirty       int
}

// Option configures a Store.
type Option func(*Store)

// WithProvider injects a similarity provider used at query time in place of
// raw signature overlap (e.g. the embedding strategy).
func WithProvider(p similarity.Provider) Option {
	return func(s *Store) {
		s.provider = p
	}
}

// New creates an episodic store. Call Initialize before use.
func New(config Config, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRecordsPerScope <= 0 {
		config.MaxRecordsPerScope = DefaultMaxRecordsPerScope
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = DefaultFlushEvery
	}

	s := &Store{
		config: config,
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize loads the backing file, recovering to an empty store on
// corruption.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	s.reset()

	if s.config.Path != "" {
		if err := s.load(); err != nil {
			s.logger.Warn("episodic store load failed, starting empty",
				zap.String("path", s.config.Path),
				zap.Error(err),
			)
			s.reset()
		}
	}

	s.initialized = true
	return nil
}

func (s *Store) reset() {
	s.records = make(map[string]*store.Record)
	s.byHash = make(map[string]string)
	s.signatures = make(map[string][]string)
	s.scopeCounts = make(map[string]int)
	s.dirty = 0
}

// Store persists content with its signature set. Duplicate content resolves
// to the existing record; a full scope returns a QuotaError.
func (s *Store) Store(_ context.Context, content string, meta store.Metadata) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return store.Record{}, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	hash := fingerprint.ContentHash(content)
	if id, ok := s.byHash[hash]; ok {
		return *s.records[id], nil
	}

	scope := meta.Scope
	if scope == "" {
		scope = defaultScope
	}
	if s.scopeCounts[scope] >= s.config.MaxRecordsPerScope {
		return store.Record{}, store.QuotaError{
			Layer: "episodic",
			Scope: scope,
			Limit: s.config.MaxRecordsPerScope,
		}
	}

	now := s.now()
	rec := &store.Record{
		ID:           uuid.NewString(),
		Content:      content,
		ContentHash:  hash,
		CreatedAt:    now,
		LastAccessed: now,
		ContentType:  decay.Classify(content),
		UtilityScore: meta.InitialUtility(),
		Metadata:     meta,
	}

	s.records[rec.ID] = rec
	s.byHash[hash] = rec.ID
	s.signatures[rec.ID] = fingerprint.Signatures(content)
	s.scopeCounts[scope]++

	s.dirty++
	if err := s.maybeFlush(); err != nil {
		return *rec, err
	}

	s.logger.Debug("stored episodic record",
		zap.String("record_id", rec.ID),
		zap.String("scope", scope),
	)

	return *rec, nil
}

// Query scans every indexed record, combining content similarity with the
// record's current decay factor and a curated boost, then returns the top
// limit results. Returned records are touched: access feeds the decay model,
// so recalled memories outlive ignored ones.
func (s *Store) Query(ctx context.Context, query string, limit int) ([]store.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}
	if limit <= 0 {
		limit = 10
	}

	querySigs := fingerprint.Signatures(query)
	now := s.now()

	results := make([]store.QueryResult, 0, len(s.records))
	for id, rec := range s.records {
		var sim float64
		if s.provider != nil {
			v, err := s.provider.Similarity(ctx, query, rec.Content)
			if err != nil {
				s.logger.Warn("similarity provider failed, skipping record",
					zap.String("record_id", id),
					zap.Error(err),
				)
				continue
			}
			sim = v
		} else {
			sim = fingerprint.Jaccard(querySigs, s.signatures[id])
		}

		if sim <= 0 {
			continue
		}

		score := sim * decay.Factor(*rec, now, s.config.Decay)
		if rec.Metadata.Curated {
			score *= curatedBoost
		}

		results = append(results, store.QueryResult{Record: *rec, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		if rec, ok := s.records[results[i].Record.ID]; ok {
			rec.AccessCount++
			rec.LastAccessed = now
			results[i].Record = *rec
			s.dirty++
		}
	}
	if err := s.maybeFlush(); err != nil {
		return results, err
	}

	return results, nil
}

// Get retrieves a record by id. Unknown ids return (zero, false, nil).
func (s *Store) Get(_ context.Context, id string) (store.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return store.Record{}, false, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	rec, ok := s.records[id]
	if !ok {
		return store.Record{}, false, nil
	}

	return *rec, true, nil
}

// Delete removes a record and its signature set. Unknown ids return
// (false, nil).
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) (bool, error) {
	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}

	delete(s.records, id)
	delete(s.byHash, rec.ContentHash)
	delete(s.signatures, id)

	scope := rec.Metadata.Scope
	if scope == "" {
		scope = defaultScope
	}
	if s.scopeCounts[scope] > 0 {
		s.scopeCounts[scope]--
	}

	s.dirty++
	if err := s.maybeFlush(); err != nil {
		return true, err
	}

	return true, nil
}

// Count reports the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return 0, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	return len(s.records), nil
}

// Prune removes records whose decay factor dropped below the configured
// threshold and returns them.
func (s *Store) Prune(_ context.Context) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	now := s.now()
	var pruned []store.Record
	for id, rec := range s.records {
		if decay.ShouldPrune(*rec, now, s.config.Decay) {
			pruned = append(pruned, *rec)
			if _, err := s.deleteLocked(id); err != nil {
				return pruned, err
			}
		}
	}

	if len(pruned) > 0 {
		s.logger.Info("pruned decayed episodic records", zap.Int("count", len(pruned)))
	}

	return pruned, nil
}

// Flush forces pending mutations to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("episodic store: %w", store.ErrNotInitialized)
	}

	return s.flushLocked()
}

// Close flushes pending writes; further operations return ErrNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}

	err := s.flushLocked()
	s.initialized = false
	return err
}

func (s *Store) maybeFlush() error {
	if s.dirty < s.config.FlushEvery {
		return nil
	}
	return s.flushLocked()
}

// persistedDocument is the stable on-disk schema.
type persistedDocument struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"savedAt"`
	Records []persistedRecord `json:"records"`
}

type persistedRecord struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	ContentHash  string            `json:"contentHash,omitempty"`
	Signatures   []string          `json:"signatures"`
	Timestamp    time.Time         `json:"timestamp"`
	LastAccessed time.Time         `json:"lastAccessed,omitempty"`
	ContentType  store.ContentType `json:"contentType,omitempty"`
	UtilityScore float64           `json:"utilityScore,omitempty"`
	AccessCount  int               `json:"accessCount,omitempty"`
	Metadata     store.Metadata    `json:"metadata"`
}

func (s *Store) flushLocked() error {
	if s.config.Path == "" || s.dirty == 0 {
		s.dirty = 0
		return nil
	}

	doc := persistedDocument{
		Version: schemaVersion,
		SavedAt: s.now(),
		Records: make([]persistedRecord, 0, len(s.records)),
	}

	for id, rec := range s.records {
		doc.Records = append(doc.Records, persistedRecord{
			ID:           rec.ID,
			Content:      rec.Content,
			ContentHash:  rec.ContentHash,
			Signatures:   s.signatures[id],
			Timestamp:    rec.CreatedAt,
			LastAccessed: rec.LastAccessed,
			ContentType:  rec.ContentType,
			UtilityScore: rec.UtilityScore,
			AccessCount:  rec.AccessCount,
			Metadata:     rec.Metadata,
		})
	}
	sort.Slice(doc.Records, func(i, j int) bool { return doc.Records[i].ID < doc.Records[j].ID })

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding episodic store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.config.Path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	tmp := s.config.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing episodic store: %w", err)
	}
	if err := os.Rename(tmp, s.config.Path); err != nil {
		return fmt.Errorf("replacing episodic store: %w", err)
	}

	s.dirty = 0
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading episodic store: %w", err)
	}

	var doc persistedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding episodic store: %w", err)
	}

	if doc.Version != schemaVersion {
		return fmt.Errorf("unsupported episodic store version %d (expected %d)", doc.Version, schemaVersion)
	}

	for _, r := range doc.Records {
		rec := &store.Record{
			ID:           r.ID,
			Content:      r.Content,
			ContentHash:  r.ContentHash,
			CreatedAt:    r.Timestamp,
			LastAccessed: r.LastAccessed,
			ContentType:  r.ContentType,
			UtilityScore: r.UtilityScore,
			AccessCount:  r.AccessCount,
			Metadata:     r.Metadata,
		}
		if rec.ContentHash == "" {
			rec.ContentHash = fingerprint.ContentHash(rec.Content)
		}
		if rec.ContentType == "" {
			rec.ContentType = decay.Classify(rec.Content)
		}
		if rec.LastAccessed.IsZero() {
			rec.LastAccessed = rec.CreatedAt
		}

		sigs := r.Signatures
		if len(sigs) == 0 {
			sigs = fingerprint.Signatures(rec.Content)
		}

		scope := rec.Metadata.Scope
		if scope == "" {
			scope = defaultScope
		}

		s.records[rec.ID] = rec
		s.byHash[rec.ContentHash] = rec.ID
		s.signatures[rec.ID] = sigs
		s.scopeCounts[scope]++
	}

	s.logger.Info("episodic store loaded",
		zap.String("path", s.config.Path),
		zap.Int("records", len(s.records)),
	)

	return nil
}

var _ store.Layer = (*Store)(nil)
