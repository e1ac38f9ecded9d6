// Package memoryutils is the memory utility package
package memoryutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/admission"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/decay"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/similarity"
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/store/episodic"
	"github.com/papercomputeco/engram/pkg/store/factual"
)

// NewMemory assembles a full orchestrator from configuration: similarity
// provider, admission gate, event publisher, and both concrete layers.
func NewMemory(cfg *config.Config, logger *zap.Logger) (*memory.Memory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	gate := admission.NewGate(provider, admission.Config{
		ComparisonLimit: cfg.ComparisonLimit,
	}, logger)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	decayCfg := decay.Config{
		HalfLifeOverrides: halfLifeOverrides(cfg),
		UtilityWeight:     cfg.UtilityWeight,
		AccessWeight:      cfg.AccessWeight,
		PruneThreshold:    cfg.PruneThreshold,
	}

	layers := map[memory.Tier]store.Layer{
		memory.TierFactual: factual.New(factual.Config{
			Path:       cfg.Store.FactualPath,
			TableSize:  cfg.HashTableSize,
			FlushEvery: cfg.FlushEvery,
			Decay:      decayCfg,
		}, logger),
		memory.TierEpisodic: episodic.New(episodic.Config{
			Path:               cfg.Store.EpisodicPath,
			MaxRecordsPerScope: cfg.MaxRecordsPerScope,
			FlushEvery:         cfg.FlushEvery,
			Decay:              decayCfg,
		}, logger, episodic.WithProvider(provider)),
	}

	return memory.New(memory.Config{
		SurpriseThreshold: cfg.SurpriseThreshold,
	}, layers, gate, publisher, logger), nil
}

// newProvider builds the configured similarity provider. The embedding
// strategy needs a live embedder client; the signature strategy needs nothing.
func newProvider(cfg *config.Config, logger *zap.Logger) (similarity.Provider, error) {
	if cfg.SimilarityStrategy == similarity.StrategyEmbedding {
		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			Dimensions:   cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}

		return similarity.New(similarity.StrategyEmbedding, embedder, logger)
	}

	return similarity.New(cfg.SimilarityStrategy, nil, logger)
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", cfg.Events.Provider)
	}
}

func halfLifeOverrides(cfg *config.Config) map[store.ContentType]float64 {
	if len(cfg.Decay.HalfLifeOverrides) == 0 {
		return nil
	}

	overrides := make(map[store.ContentType]float64, len(cfg.Decay.HalfLifeOverrides))
	for name, days := range cfg.Decay.HalfLifeOverrides {
		overrides[store.ContentType(name)] = days
	}

	return overrides
}
