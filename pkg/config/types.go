package config

// Config is the full engram configuration, mirroring config.toml.
type Config struct {
	Version int `toml:"version" mapstructure:"version"`

	// HashTableSize is the factual layer's n-gram hash table size.
	HashTableSize uint64 `toml:"hash_table_size" mapstructure:"hash_table_size"`

	// SurpriseThreshold is the admission score below which writes are skipped.
	SurpriseThreshold float64 `toml:"surprise_threshold" mapstructure:"surprise_threshold"`

	// ComparisonLimit caps pairwise similarity comparisons per admission check.
	ComparisonLimit int `toml:"comparison_limit" mapstructure:"comparison_limit"`

	// SimilarityStrategy selects the provider: "signature" or "embedding".
	SimilarityStrategy string `toml:"similarity_strategy" mapstructure:"similarity_strategy"`

	// UtilityWeight scales the decay model's utility multiplier.
	UtilityWeight float64 `toml:"utility_weight" mapstructure:"utility_weight"`

	// AccessWeight scales the decay model's access multiplier.
	AccessWeight float64 `toml:"access_weight" mapstructure:"access_weight"`

	// PruneThreshold is the decay factor below which records are evicted.
	PruneThreshold float64 `toml:"prune_threshold" mapstructure:"prune_threshold"`

	// FlushEvery is the store mutation count between persistence flushes.
	FlushEvery int `toml:"flush_every" mapstructure:"flush_every"`

	// MaxRecordsPerScope bounds the episodic layer's per-scope record count.
	MaxRecordsPerScope int `toml:"max_records_per_scope" mapstructure:"max_records_per_scope"`

	Decay     DecayConfig     `toml:"decay" mapstructure:"decay"`
	Embedding EmbeddingConfig `toml:"embedding" mapstructure:"embedding"`
	Events    EventsConfig    `toml:"events" mapstructure:"events"`
	Store     StoreConfig     `toml:"store" mapstructure:"store"`
}

// DecayConfig overrides decay half-lives per deployment.
type DecayConfig struct {
	// HalfLifeOverrides maps content type name to half-life days.
	HalfLifeOverrides map[string]float64 `toml:"half_life_overrides" mapstructure:"half_life_overrides"`
}

// EmbeddingConfig configures the external embedding generator client.
type EmbeddingConfig struct {
	Provider   string `toml:"provider" mapstructure:"provider"`
	Target     string `toml:"target" mapstructure:"target"`
	Model      string `toml:"model" mapstructure:"model"`
	Dimensions int    `toml:"dimensions" mapstructure:"dimensions"`
}

// EventsConfig configures the lifecycle event stream.
type EventsConfig struct {
	// Provider is "nop" (default) or "kafka".
	Provider string   `toml:"provider" mapstructure:"provider"`
	Brokers  []string `toml:"brokers" mapstructure:"brokers"`
	Topic    string   `toml:"topic" mapstructure:"topic"`
}

// StoreConfig names the backing files for the concrete layers.
type StoreConfig struct {
	FactualPath  string `toml:"factual_path" mapstructure:"factual_path"`
	EpisodicPath string `toml:"episodic_path" mapstructure:"episodic_path"`
}
