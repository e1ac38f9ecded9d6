// Package decay implements the content-type-aware exponential decay model.
//
// Every stored record carries a derived decay factor in (0, 1]:
//
//	factor = 2^(-elapsedDays / effectiveHalfLifeDays)
//
// where elapsedDays is the smaller of days-since-creation and
// days-since-last-access, and the effective half-life is the content type's
// base half-life scaled by bounded utility and access multipliers. The model
// is stateless; stores supply the record and the model computes.
//
// Half-life defaults follow the memory curation passes seen in production
// agent stores: decisions and architecture notes decay slowest, errors
// fastest, unclassified content fastest of all.
package decay

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/store"
)

// Base half-lives in days per content type.
const (
	HalfLifeDecision     = 365
	HalfLifeArchitecture = 365
	HalfLifePreference   = 270
	HalfLifeLearning     = 180
	HalfLifeSolution     = 120
	HalfLifeError        = 90
	HalfLifeGeneral      = 30
)

// DefaultPruneThreshold is the decay factor below which a record is pruned.
const DefaultPruneThreshold = 0.05

// Config tunes the decay model per deployment.
type Config struct {
	// HalfLifeOverrides replaces the base half-life (days) for a type.
	HalfLifeOverrides map[store.ContentType]float64

	// UtilityWeight scales how far the utility multiplier deviates from 1.
	// Zero value means 1.0.
	UtilityWeight float64

	// AccessWeight scales how far the access multiplier deviates from 1.
	// Zero value means 1.0.
	AccessWeight float64

	// PruneThreshold is the decay factor below which ShouldPrune flags a
	// record. Zero value means DefaultPruneThreshold.
	PruneThreshold float64
}

var baseHalfLives = map[store.ContentType]float64{
	store.TypeDecision:     HalfLifeDecision,
	store.TypeArchitecture: HalfLifeArchitecture,
	store.TypePreference:   HalfLifePreference,
	store.TypeLearning:     HalfLifeLearning,
	store.TypeSolution:     HalfLifeSolution,
	store.TypeError:        HalfLifeError,
	store.TypeGeneral:      HalfLifeGeneral,
}

// HalfLife returns the effective base half-life in days for a content type.
func (c Config) HalfLife(t store.ContentType) float64 {
	if c.HalfLifeOverrides != nil {
		if hl, ok := c.HalfLifeOverrides[t]; ok && hl > 0 {
			return hl
		}
	}

	if hl, ok := baseHalfLives[t]; ok {
		return hl
	}

	return HalfLifeGeneral
}

// Factor computes the record's decay factor at the given instant.
// Always in (0, 1] and monotonically non-increasing in elapsed time.
func Factor(rec store.Record, now time.Time, cfg Config) float64 {
	effective := cfg.HalfLife(rec.ContentType) *
		utilityMultiplier(rec.UtilityScore, cfg.UtilityWeight) *
		accessMultiplier(rec.AccessCount, cfg.AccessWeight)

	sinceCreated := now.Sub(rec.CreatedAt)
	sinceAccessed := now.Sub(rec.LastAccessed)
	if rec.LastAccessed.IsZero() {
		sinceAccessed = sinceCreated
	}

	elapsed := min(sinceCreated, sinceAccessed)
	if elapsed < 0 {
		elapsed = 0
	}

	factor := math.Exp2(-elapsed.Hours() / 24 / effective)
	if factor > 1 {
		factor = 1
	}

	return factor
}

// ShouldPrune reports whether the record's decay factor has dropped below the
// configured prune threshold.
func ShouldPrune(rec store.Record, now time.Time, cfg Config) bool {
	threshold := cfg.PruneThreshold
	if threshold == 0 {
		threshold = DefaultPruneThreshold
	}

	return Factor(rec, now, cfg) < threshold
}

// Rank sorts records by decay-weighted utility, highest first. The sort is
// stable so equal-relevance records keep their input order.
func Rank(recs []store.Record, now time.Time, cfg Config) []store.Record {
	ranked := make([]store.Record, len(recs))
	copy(ranked, recs)

	sort.SliceStable(ranked, func(i, j int) bool {
		return relevance(ranked[i], now, cfg) > relevance(ranked[j], now, cfg)
	})

	return ranked
}

func relevance(rec store.Record, now time.Time, cfg Config) float64 {
	return rec.UtilityScore * Factor(rec, now, cfg)
}

// utilityMultiplier maps a utility score in [0,1] to [0.5, 1.5]. The weight
// scales the deviation from neutral; the result stays clamped so no record
// becomes immortal or instantly worthless on utility alone.
func utilityMultiplier(utility, weight float64) float64 {
	if weight == 0 {
		weight = 1
	}

	utility = clamp(utility, 0, 1)
	m := 1 + (utility-0.5)*weight
	return clamp(m, 0.5, 1.5)
}

// accessMultiplier grants +5% effective half-life per access, capped at +50%.
func accessMultiplier(count int, weight float64) float64 {
	if weight == 0 {
		weight = 1
	}
	if count < 0 {
		count = 0
	}

	bonus := math.Min(0.5, 0.05*float64(count))
	return clamp(1+bonus*weight, 1, 1.5)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// classPatterns is the priority-ordered keyword table for classification.
// First match wins; unmatched content is general.
var classPatterns = []struct {
	contentType store.ContentType
	keywords    []string
}{
	{store.TypeDecision, []string{"we decided", "decided to", "decision", "we chose", "chose to", "going with", "agreed to"}},
	{store.TypeArchitecture, []string{"architecture", "architectural", "system design", "component", "module boundary", "data flow"}},
	{store.TypeError, []string{"error", "exception", "failed", "failure", "crash", "bug", "panic", "stack trace"}},
	{store.TypeSolution, []string{"fixed", "solution", "resolved", "workaround", "solved", "the fix"}},
	{store.TypeLearning, []string{"learned", "learning", "discovered", "insight", "turns out", "til "}},
	{store.TypePreference, []string{"prefer", "preference", "always use", "never use", "convention", "style guide"}},
}

// Classify assigns a content type via priority-ordered, case-insensitive
// keyword matching over the six non-general types.
func Classify(content string) store.ContentType {
	lowered := strings.ToLower(content)

	for _, p := range classPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lowered, kw) {
				return p.contentType
			}
		}
	}

	return store.TypeGeneral
}
