package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "engram-config-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	Describe("NewDefaultConfig", func() {
		It("carries the documented defaults", func() {
			d := NewDefaultConfig()
			Expect(d.Version).To(Equal(CurrentV))
			Expect(d.HashTableSize).To(Equal(uint64(1 << 20)))
			Expect(d.SurpriseThreshold).To(Equal(0.3))
			Expect(d.ComparisonLimit).To(Equal(50))
			Expect(d.SimilarityStrategy).To(Equal("signature"))
			Expect(d.PruneThreshold).To(Equal(0.05))
			Expect(d.Events.Provider).To(Equal("nop"))
			Expect(d.Embedding.Provider).To(Equal("ollama"))
		})
	})

	Describe("Load", func() {
		It("resolves defaults when no file exists", func() {
			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.SurpriseThreshold).To(Equal(0.3))
			Expect(cfg.SimilarityStrategy).To(Equal("signature"))
		})

		It("prefers file values over defaults", func() {
			saved := NewDefaultConfig()
			saved.SurpriseThreshold = 0.55
			saved.Store.FactualPath = filepath.Join(dir, "facts.json")
			Expect(Save(saved, dir)).To(Succeed())

			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.SurpriseThreshold).To(Equal(0.55))
			Expect(cfg.Store.FactualPath).To(Equal(filepath.Join(dir, "facts.json")))
		})

		It("prefers environment variables over file values", func() {
			Expect(Save(NewDefaultConfig(), dir)).To(Succeed())
			os.Setenv("ENGRAM_SURPRISE_THRESHOLD", "0.9")
			DeferCleanup(os.Unsetenv, "ENGRAM_SURPRISE_THRESHOLD")

			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.SurpriseThreshold).To(Equal(0.9))
		})

		It("rejects unsupported versions", func() {
			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())
			v.Set("version", 99)

			_, err = Load(v)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Watch", func() {
		It("delivers the fresh config on file change", func() {
			saved := NewDefaultConfig()
			Expect(Save(saved, dir)).To(Succeed())

			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			changed := make(chan *Config, 1)
			Watch(v, discardLogger(), func(cfg *Config) {
				select {
				case changed <- cfg:
				default:
				}
			})

			saved.SurpriseThreshold = 0.75
			Expect(Save(saved, dir)).To(Succeed())

			Eventually(changed, "5s").Should(Receive(HaveField("SurpriseThreshold", 0.75)))
		})
	})

	Describe("Save", func() {
		It("round-trips through the file", func() {
			saved := NewDefaultConfig()
			saved.ComparisonLimit = 25
			saved.Decay.HalfLifeOverrides = map[string]float64{"general": 60}
			Expect(Save(saved, dir)).To(Succeed())

			v, err := InitViper(dir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ComparisonLimit).To(Equal(25))
			Expect(cfg.Decay.HalfLifeOverrides).To(HaveKeyWithValue("general", 60.0))
		})

		It("rejects a nil config", func() {
			Expect(Save(nil, dir)).To(HaveOccurred())
		})

		It("creates the directory when missing", func() {
			nested := filepath.Join(dir, "deeper", "still")
			Expect(Save(NewDefaultConfig(), nested)).To(Succeed())

			_, err := os.Stat(filepath.Join(nested, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
