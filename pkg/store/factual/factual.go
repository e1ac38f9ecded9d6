// Package factual implements the hash-indexed factual memory layer.
//
// Records are deduplicated by content hash and indexed by 1/2/3-gram hashes
// in an inverted index, so queries resolve candidates with average O(1)
// bucket lookups per query term instead of scanning the record set. A
// trigram match outscores a bigram match outscores a unigram match.
//
// Persistence is one versioned JSON document. Mutations batch: the store
// flushes every FlushEvery mutations and always on Close; Flush is exported
// for callers that need an explicit durability point. This is a deliberate
// change from persist-on-every-write to avoid I/O amplification under high
// write rates.
package factual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/decay"
	"github.com/papercomputeco/engram/pkg/fingerprint"
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/text"
)

const (
	// schemaVersion is the persisted document version.
	schemaVersion = 1

	// DefaultFlushEvery is the mutation count between automatic flushes.
	DefaultFlushEvery = 16

	// maxNgramSize is the largest token window indexed.
	maxNgramSize = 3
)

// Config holds configuration for the factual store.
type Config struct {
	// Path is the backing JSON file. Empty means in-memory only.
	Path string

	// TableSize is the n-gram hash table size.
	// Defaults to fingerprint.DefaultTableSize.
	TableSize uint64

	// FlushEvery is the mutation count between flushes.
	// Defaults to DefaultFlushEvery.
	FlushEvery int

	// Decay tunes the prune pass.
	Decay decay.Config
}

// indexEntry is one inverted-index posting. The n-gram text is kept so hash
// collisions never contribute to a candidate's score.
type indexEntry struct {
	RecordID string `json:"factId"`
	N        int    `json:"nSize"`
	Ngram    string `json:"ngram"`
}

// Store is the hash-indexed factual layer. A single RWMutex guards the
// record map, the inverted index, and the dirty counter together so readers
// never observe a partially applied insert.
type Store struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu             sync.RWMutex
	initialized    bool
	records        map[string]*store.Record
	byHash         map[string]string
	index          map[uint64][]indexEntry
	hashesByRecord map[string][]uint64
	dirty          int
}

// New creates a factual store. Call Initialize before use.
func New(config Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TableSize == 0 {
		config.TableSize = fingerprint.DefaultTableSize
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = DefaultFlushEvery
	}

	return &Store{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Initialize loads the backing file. Corrupt or missing files recover to an
// empty index with a warning; process start never aborts on store corruption.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	s.records = make(map[string]*store.Record)
	s.byHash = make(map[string]string)
	s.index = make(map[uint64][]indexEntry)
	s.hashesByRecord = make(map[string][]uint64)
	s.dirty = 0

	if s.config.Path != "" {
		if err := s.load(); err != nil {
			s.logger.Warn("factual store load failed, starting empty",
				zap.String("path", s.config.Path),
				zap.Error(err),
			)
			s.records = make(map[string]*store.Record)
			s.byHash = make(map[string]string)
			s.index = make(map[uint64][]indexEntry)
			s.hashesByRecord = make(map[string][]uint64)
		}
	}

	s.initialized = true
	return nil
}

// Store persists content. Idempotent on content hash: duplicate content
// resolves to the existing record's identity without growing the index.
func (s *Store) Store(_ context.Context, content string, meta store.Metadata) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return store.Record{}, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
	}

	hash := fingerprint.ContentHash(content)
	if id, ok := s.byHash[hash]; ok {
		s.logger.Debug("duplicate content, returning existing record",
			zap.String("record_id", id),
		)
		return *s.records[id], nil
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
	s.indexRecord(rec)

	s.dirty++
	if err := s.maybeFlush(); err != nil {
		return *rec, err
	}

	s.logger.Debug("stored fact",
		zap.String("record_id", rec.ID),
		zap.String("content_type", string(rec.ContentType)),
	)

	return *rec, nil
}

// indexRecord inserts inverted-index entries for every 1..3-gram window.
// An identical (record, ngram) pair already present in a bucket is skipped
// so repeated phrases inside one record don't grow the index.
func (s *Store) indexRecord(rec *store.Record) {
	for n := 1; n <= maxNgramSize; n++ {
		for pos, window := range text.Ngrams(rec.Content, n) {
			h := fingerprint.NgramHash(window, n, pos, s.config.TableSize)
			ngram := strings.Join(window, " ")

			if bucketContains(s.index[h], rec.ID, ngram) {
				continue
			}

			s.index[h] = append(s.index[h], indexEntry{
				RecordID: rec.ID,
				N:        n,
				Ngram:    ngram,
			})
			s.hashesByRecord[rec.ID] = append(s.hashesByRecord[rec.ID], h)
		}
	}
}

func bucketContains(bucket []indexEntry, recordID, ngram string) bool {
	for _, e := range bucket {
		if e.RecordID == recordID && e.Ngram == ngram {
			return true
		}
	}
	return false
}

// Query extracts the query's 1..3-gram windows, looks up each window's
// bucket, and accumulates per-record scores equal to the sum of matched
// n-gram sizes. Cost is O(1) average per query term plus O(k) aggregation
// over matching candidates. Returned records are touched: access feeds the
// decay model, so recalled facts outlive ignored ones.
func (s *Store) Query(_ context.Context, query string, limit int) ([]store.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
	}
	if limit <= 0 {
		limit = 10
	}

	scores := make(map[string]float64)
	for n := 1; n <= maxNgramSize; n++ {
		for pos, window := range text.Ngrams(query, n) {
			h := fingerprint.NgramHash(window, n, pos, s.config.TableSize)
			ngram := strings.Join(window, " ")

			for _, entry := range s.index[h] {
				if entry.Ngram != ngram {
					// Hash collision; different n-gram landed in the bucket.
					continue
				}
				scores[entry.RecordID] += float64(entry.N)
			}
		}
	}

	results := make([]store.QueryResult, 0, len(scores))
	for id, score := range scores {
		rec, ok := s.records[id]
		if !ok {
			continue
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

	now := s.now()
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
		return store.Record{}, false, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
	}

	rec, ok := s.records[id]
	if !ok {
		return store.Record{}, false, nil
	}

	return *rec, true, nil
}

// Delete removes the record and every inverted-index entry referencing it.
// Leaving stale entries behind would be an index leak, so removal walks the
// record's own bucket list rather than the full table.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
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

	for _, h := range s.hashesByRecord[id] {
		bucket := s.index[h][:0]
		for _, e := range s.index[h] {
			if e.RecordID != id {
				bucket = append(bucket, e)
			}
		}
		if len(bucket) == 0 {
			delete(s.index, h)
		} else {
			s.index[h] = bucket
		}
	}
	delete(s.hashesByRecord, id)

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
		return 0, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
	}

	return len(s.records), nil
}

// Prune removes records whose decay factor dropped below the configured
// threshold and returns them.
func (s *Store) Prune(_ context.Context) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, fmt.Errorf("factual store: %w", store.ErrNotInitialized)
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
		s.logger.Info("pruned decayed facts", zap.Int("count", len(pruned)))
	}

	return pruned, nil
}

// Flush forces pending mutations to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("factual store: %w", store.ErrNotInitialized)
	}

	return s.flushLocked()
}

// Close flushes pending writes and transitions the store to closed; further
// operations return ErrNotInitialized.
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
	Version   int                     `json:"version"`
	Facts     []persistedFact         `json:"facts"`
	HashIndex map[string][]indexEntry `json:"hashIndex"`
}

type persistedFact struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	ContentHash  string            `json:"contentHash"`
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
		Version:   schemaVersion,
		Facts:     make([]persistedFact, 0, len(s.records)),
		HashIndex: make(map[string][]indexEntry, len(s.index)),
	}

	for _, rec := range s.records {
		doc.Facts = append(doc.Facts, persistedFact{
			ID:           rec.ID,
			Content:      rec.Content,
			ContentHash:  rec.ContentHash,
			Timestamp:    rec.CreatedAt,
			LastAccessed: rec.LastAccessed,
			ContentType:  rec.ContentType,
			UtilityScore: rec.UtilityScore,
			AccessCount:  rec.AccessCount,
			Metadata:     rec.Metadata,
		})
	}
	sort.Slice(doc.Facts, func(i, j int) bool { return doc.Facts[i].ID < doc.Facts[j].ID })

	for h, bucket := range s.index {
		doc.HashIndex[strconv.FormatUint(h, 10)] = bucket
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding factual store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.config.Path), 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	tmp := s.config.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing factual store: %w", err)
	}
	if err := os.Rename(tmp, s.config.Path); err != nil {
		return fmt.Errorf("replacing factual store: %w", err)
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
		return fmt.Errorf("reading factual store: %w", err)
	}

	var doc persistedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding factual store: %w", err)
	}

	if doc.Version != schemaVersion {
		return fmt.Errorf("unsupported factual store version %d (expected %d)", doc.Version, schemaVersion)
	}

	for _, f := range doc.Facts {
		rec := &store.Record{
			ID:           f.ID,
			Content:      f.Content,
			ContentHash:  f.ContentHash,
			CreatedAt:    f.Timestamp,
			LastAccessed: f.LastAccessed,
			ContentType:  f.ContentType,
			UtilityScore: f.UtilityScore,
			AccessCount:  f.AccessCount,
			Metadata:     f.Metadata,
		}
		if rec.ContentType == "" {
			rec.ContentType = decay.Classify(rec.Content)
		}
		if rec.LastAccessed.IsZero() {
			rec.LastAccessed = rec.CreatedAt
		}
		s.records[rec.ID] = rec
		s.byHash[rec.ContentHash] = rec.ID
	}

	for key, bucket := range doc.HashIndex {
		h, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("decoding hash index key %q: %w", key, err)
		}
		s.index[h] = bucket
		for _, e := range bucket {
			s.hashesByRecord[e.RecordID] = append(s.hashesByRecord[e.RecordID], h)
		}
	}

	s.logger.Info("factual store loaded",
		zap.String("path", s.config.Path),
		zap.Int("facts", len(s.records)),
	)

	return nil
}

var _ store.Layer = (*Store)(nil)
