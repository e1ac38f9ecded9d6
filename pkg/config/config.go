// Package config loads and persists engram configuration.
//
// Config precedence (highest to lowest):
//  1. Environment variables (ENGRAM_SURPRISE_THRESHOLD, ENGRAM_STORE_FACTUAL_PATH, ...)
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const configFile = "config.toml"

// InitViper creates and returns a configured *viper.Viper. It registers
// defaults, reads config.toml from dir (or the default engram directory when
// dir is empty), and binds ENGRAM_-prefixed environment variables.
func InitViper(dir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if dir == "" {
		dir = defaultDir()
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves the effective configuration from a prepared viper instance.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// Watch re-resolves the configuration whenever the backing file changes and
// invokes onChange with the fresh Config. Malformed edits are logged and the
// previous configuration stays in effect.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load(v)
		if err != nil {
			logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}

		logger.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}

// Save persists the configuration to config.toml in dir (default engram
// directory when empty).
func Save(cfg *Config, dir string) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if dir == "" {
		dir = defaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("hash_table_size", d.HashTableSize)
	v.SetDefault("surprise_threshold", d.SurpriseThreshold)
	v.SetDefault("comparison_limit", d.ComparisonLimit)
	v.SetDefault("similarity_strategy", d.SimilarityStrategy)
	v.SetDefault("utility_weight", d.UtilityWeight)
	v.SetDefault("access_weight", d.AccessWeight)
	v.SetDefault("prune_threshold", d.PruneThreshold)
	v.SetDefault("flush_every", d.FlushEvery)
	v.SetDefault("max_records_per_scope", d.MaxRecordsPerScope)

	// Decay
	v.SetDefault("decay.half_life_overrides", d.Decay.HalfLifeOverrides)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Store
	v.SetDefault("store.factual_path", d.Store.FactualPath)
	v.SetDefault("store.episodic_path", d.Store.EpisodicPath)
}
