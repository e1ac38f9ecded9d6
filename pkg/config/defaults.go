package config

import (
	"os"
	"path/filepath"
)

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// NewDefaultConfig returns a fully populated Config with sane defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Version:            CurrentV,
		HashTableSize:      1 << 20,
		SurpriseThreshold:  0.3,
		ComparisonLimit:    50,
		SimilarityStrategy: "signature",
		UtilityWeight:      1.0,
		AccessWeight:       1.0,
		PruneThreshold:     0.05,
		FlushEvery:         16,
		MaxRecordsPerScope: 1000,
		Decay: DecayConfig{
			HalfLifeOverrides: map[string]float64{},
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Target:     "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Events: EventsConfig{
			Provider: "nop",
			Topic:    "engram.memory.events",
		},
		Store: StoreConfig{
			FactualPath:  filepath.Join(defaultDir(), "factual.json"),
			EpisodicPath: filepath.Join(defaultDir(), "episodic.json"),
		},
	}
}

// defaultDir resolves the engram data directory: $ENGRAM_DIR when set,
// ~/.engram otherwise.
func defaultDir() string {
	if dir := os.Getenv("ENGRAM_DIR"); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".engram"
	}

	return filepath.Join(home, ".engram")
}
