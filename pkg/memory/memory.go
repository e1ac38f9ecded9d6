// Package memory orchestrates the engram layers: writes pass through the
// novelty admission gate and are routed to a concrete store by content type;
// recalls fan out across layers and merge by score; the prune pass evicts
// decayed records. The orchestrator owns its injected layers — there is no
// ambient global store state anywhere in the module.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/admission"
	"github.com/papercomputeco/engram/pkg/decay"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/store"
)

// Tier names a concrete memory layer.
type Tier string

const (
	// TierFactual is the hash-indexed exact/near-exact lookup layer.
	TierFactual Tier = "factual"

	// TierEpisodic is the signature-indexed approximate layer.
	TierEpisodic Tier = "episodic"
)

// DefaultSampleLimit bounds the existing-record sample fed to the admission
// gate per write.
const DefaultSampleLimit = 50

// Config tunes the orchestrator.
type Config struct {
	// SurpriseThreshold is the admission threshold for writes.
	// Zero value means admission.DefaultThreshold.
	SurpriseThreshold float64

	// SampleLimit bounds the admission sample size.
	// Zero value means DefaultSampleLimit.
	SampleLimit int
}

// RememberOptions shape a single write.
type RememberOptions struct {
	// Tier forces a layer; empty routes by content type.
	Tier Tier

	// Curated marks an explicit user write. Curated writes bypass the
	// admission decision and always store.
	Curated bool

	Source  string
	Project string
	Scope   string
	Tags    []string
}

// RememberResult reports the outcome of a write.
type RememberResult struct {
	Stored   bool
	Tier     Tier
	Record   store.Record
	Decision admission.Decision
}

// Memory is the layer orchestrator.
type Memory struct {
	config    Config
	layers    map[Tier]store.Layer
	gate      *admission.Gate
	publisher eventstream.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an orchestrator over the given layers. A nil publisher means
// the no-op publisher.
func New(config Config, layers map[Tier]store.Layer, gate *admission.Gate, publisher eventstream.Publisher, logger *zap.Logger) *Memory {
	if publisher == nil {
		publisher = nop.NewPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SampleLimit <= 0 {
		config.SampleLimit = DefaultSampleLimit
	}

	return &Memory{
		config:    config,
		layers:    layers,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Initialize initializes every layer.
func (m *Memory) Initialize(ctx context.Context) error {
	for tier, layer := range m.layers {
		if err := layer.Initialize(ctx); err != nil {
			m.logger.Error("layer initialization failed",
				zap.String("tier", string(tier)),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

// Remember classifies content, assesses it against a bounded sample of the
// target layer's most relevant records, and stores it when the gate admits
// it (or the write is curated). Skipped and stored outcomes both publish a
// lifecycle event.
func (m *Memory) Remember(ctx context.Context, content string, opts RememberOptions) (RememberResult, error) {
	contentType := decay.Classify(content)

	tier := opts.Tier
	if tier == "" {
		tier = routeByType(contentType)
	}

	layer, ok := m.layers[tier]
	if !ok {
		// Single-layer deployments route everything to whichever layer exists.
		for t, l := range m.layers {
			tier, layer = t, l
			break
		}
	}

	sample, err := m.admissionSample(ctx, layer, content)
	if err != nil {
		return RememberResult{}, err
	}

	decision := m.gate.Assess(ctx, content, sample, m.config.SurpriseThreshold)

	if !decision.ShouldStore && !opts.Curated {
		m.logger.Debug("admission gate skipped content",
			zap.String("tier", string(tier)),
			zap.Float64("score", decision.Score),
			zap.Int("similar_records", len(decision.SimilarRecordIDs)),
		)
		m.publish(ctx, &eventstream.MemoryEvent{
			EventType:   eventstream.EventTypeSkipped,
			ContentType: contentType,
			Layer:       string(tier),
			Score:       decision.Score,
			Reason:      "below surprise threshold",
		})

		return RememberResult{Stored: false, Tier: tier, Decision: decision}, nil
	}

	rec, err := layer.Store(ctx, content, store.Metadata{
		Source:  opts.Source,
		Project: opts.Project,
		Scope:   opts.Scope,
		Curated: opts.Curated,
		Utility: decision.Score,
		Tags:    opts.Tags,
	})
	if err != nil {
		return RememberResult{Tier: tier, Decision: decision}, err
	}

	m.publish(ctx, &eventstream.MemoryEvent{
		EventType:   eventstream.EventTypeStored,
		RecordID:    rec.ID,
		ContentType: rec.ContentType,
		Layer:       string(tier),
		Score:       decision.Score,
	})

	return RememberResult{Stored: true, Tier: tier, Record: rec, Decision: decision}, nil
}

// Recall queries every layer and merges results by score, highest first.
func (m *Memory) Recall(ctx context.Context, query string, limit int) ([]store.QueryResult, error) {
	if limit <= 0 {
		limit = 10
	}

	var merged []store.QueryResult
	for tier, layer := range m.layers {
		results, err := layer.Query(ctx, query, limit)
		if err != nil {
			m.logger.Warn("layer query failed",
				zap.String("tier", string(tier)),
				zap.Error(err),
			)
			continue
		}
		merged = append(merged, results...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}

// Prune sweeps every layer for decayed records and publishes an event per
// eviction. Returns all pruned records.
func (m *Memory) Prune(ctx context.Context) ([]store.Record, error) {
	var all []store.Record
	for tier, layer := range m.layers {
		pruned, err := layer.Prune(ctx)
		if err != nil {
			return all, err
		}

		for _, rec := range pruned {
			m.publish(ctx, &eventstream.MemoryEvent{
				EventType:   eventstream.EventTypePruned,
				RecordID:    rec.ID,
				ContentType: rec.ContentType,
				Layer:       string(tier),
			})
		}

		all = append(all, pruned...)
	}

	return all, nil
}

// Stats reports the record count per tier.
func (m *Memory) Stats(ctx context.Context) (map[Tier]int, error) {
	counts := make(map[Tier]int, len(m.layers))
	for tier, layer := range m.layers {
		n, err := layer.Count(ctx)
		if err != nil {
			return nil, err
		}
		counts[tier] = n
	}

	return counts, nil
}

// Count sums record counts across layers.
func (m *Memory) Count(ctx context.Context) (int, error) {
	total := 0
	for _, layer := range m.layers {
		n, err := layer.Count(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}

	return total, nil
}

// Close closes every layer and the event publisher.
func (m *Memory) Close() error {
	var firstErr error
	for tier, layer := range m.layers {
		if err := layer.Close(); err != nil && firstErr == nil {
			m.logger.Error("layer close failed",
				zap.String("tier", string(tier)),
				zap.Error(err),
			)
			firstErr = err
		}
	}

	if err := m.publisher.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// admissionSample pulls the target layer's most relevant records for the
// novelty comparison, bounded by the configured sample limit.
func (m *Memory) admissionSample(ctx context.Context, layer store.Layer, content string) ([]store.Record, error) {
	results, err := layer.Query(ctx, content, m.config.SampleLimit)
	if err != nil {
		return nil, err
	}

	sample := make([]store.Record, 0, len(results))
	for _, r := range results {
		sample = append(sample, r.Record)
	}

	return sample, nil
}

func (m *Memory) publish(ctx context.Context, event *eventstream.MemoryEvent) {
	event.SchemaVersion = eventstream.SchemaVersionV1
	event.EventID = uuid.NewString()
	event.EmittedAt = m.now()

	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("event publish failed",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

// routeByType maps durable knowledge types to the episodic/semantic layer
// and lookup-oriented content to the factual layer.
func routeByType(t store.ContentType) Tier {
	switch t {
	case store.TypeDecision, store.TypeArchitecture, store.TypeLearning, store.TypePreference:
		return TierEpisodic
	default:
		return TierFactual
	}
}
