// Package admission implements the novelty-gated admission controller.
//
// The gate scores a candidate write by how novel it is relative to a bounded
// sample of existing records, plus a boost when the content matches known
// importance patterns (decisions, errors, solutions, and so on). The decision
// is advisory: callers may override shouldStore, and explicitly curated
// writes always land.
package admission

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/similarity"
	"github.com/papercomputeco/engram/pkg/store"
)

const (
	// DefaultThreshold is the admission score below which content is skipped.
	DefaultThreshold = 0.3

	// DefaultSimilarCutoff is the similarity above which an existing record
	// is reported back for linking or deduplication.
	DefaultSimilarCutoff = 0.7

	// DefaultComparisonLimit caps pairwise comparisons per assessment.
	// Unbounded scans against the full record set are not a supported default.
	DefaultComparisonLimit = 50

	// DefaultPatternBoost is the additive boost per matched importance class.
	DefaultPatternBoost = 0.2
)

// Decision is the outcome of one admission assessment. Computed once per
// candidate write and never persisted.
type Decision struct {
	Score            float64  `json:"score"`
	ShouldStore      bool     `json:"shouldStore"`
	NoveltyScore     float64  `json:"noveltyScore"`
	PatternBoost     float64  `json:"patternBoost"`
	SimilarRecordIDs []string `json:"similarRecordIds,omitempty"`
}

// Config tunes the gate. Zero values mean the package defaults.
type Config struct {
	// ComparisonLimit caps how many sample records are compared.
	ComparisonLimit int

	// SimilarCutoff is the similarity above which records are reported
	// as similar regardless of the final decision.
	SimilarCutoff float64

	// PatternBoost is the additive boost per matched importance class.
	// The combined score is always capped at 1.
	PatternBoost float64
}

// Gate assesses candidate writes. Stateless aside from its provider.
type Gate struct {
	provider similarity.Provider
	config   Config
	logger   *zap.Logger
}

// NewGate creates an admission gate using the given similarity provider.
func NewGate(provider similarity.Provider, config Config, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}

	if config.ComparisonLimit <= 0 {
		config.ComparisonLimit = DefaultComparisonLimit
	}
	if config.SimilarCutoff == 0 {
		config.SimilarCutoff = DefaultSimilarCutoff
	}
	if config.PatternBoost == 0 {
		config.PatternBoost = DefaultPatternBoost
	}

	return &Gate{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Assess scores content against a sample of existing records. An empty sample
// means maximal novelty. A non-positive threshold means DefaultThreshold.
//
// The sample is bounded to the configured comparison limit, most recent
// first, before any similarity is computed.
func (g *Gate) Assess(ctx context.Context, content string, sample []store.Record, threshold float64) Decision {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	bounded := boundSample(sample, g.config.ComparisonLimit)

	maxSim := 0.0
	var similarIDs []string
	for _, rec := range bounded {
		sim, err := g.provider.Similarity(ctx, content, rec.Content)
		if err != nil {
			g.logger.Warn("similarity comparison failed, skipping record",
				zap.String("record_id", rec.ID),
				zap.Error(err),
			)
			continue
		}

		if sim > g.config.SimilarCutoff {
			similarIDs = append(similarIDs, rec.ID)
		}
		if sim > maxSim {
			maxSim = sim
		}
	}

	novelty := 1 - maxSim
	boost := g.patternBoost(content)

	score := novelty + boost
	if score > 1 {
		score = 1
	}

	return Decision{
		Score:            score,
		ShouldStore:      score >= threshold,
		NoveltyScore:     novelty,
		PatternBoost:     boost,
		SimilarRecordIDs: similarIDs,
	}
}

// importancePatterns maps pattern classes to their trigger phrases.
// Matching is case-insensitive substring matching; each class contributes the
// configured boost at most once.
var importancePatterns = map[string][]string{
	"decision":     {"decided", "decision", "chose", "going with"},
	"error":        {"error", "exception", "failed", "crash", "bug"},
	"solution":     {"fixed", "solution", "resolved", "workaround"},
	"learning":     {"learned", "discovered", "insight", "turns out"},
	"architecture": {"architecture", "design pattern", "component"},
	"preference":   {"prefer", "always use", "never use", "convention"},
}

func (g *Gate) patternBoost(content string) float64 {
	lowered := strings.ToLower(content)

	boost := 0.0
	for _, phrases := range importancePatterns {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				boost += g.config.PatternBoost
				break
			}
		}
	}

	if boost > 1 {
		boost = 1
	}

	return boost
}

// boundSample returns up to limit records, most recently created first.
// The input slice is not mutated.
func boundSample(sample []store.Record, limit int) []store.Record {
	if len(sample) <= limit {
		return sample
	}

	bounded := make([]store.Record, len(sample))
	copy(bounded, sample)
	sort.SliceStable(bounded, func(i, j int) bool {
		return bounded[i].CreatedAt.After(bounded[j].CreatedAt)
	})

	return bounded[:limit]
}
