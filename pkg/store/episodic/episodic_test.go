package episodic

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/store"
)

var _ = Describe("Episodic Store", func() {
	var (
		s   *Store
		ctx context.Context
	)

	BeforeEach(func() {
		s = New(Config{}, zap.NewNop())
		ctx = context.Background()
		Expect(s.Initialize(ctx)).To(Succeed())
	})

	Describe("Initialize", func() {
		It("is required before any other operation", func() {
			fresh := New(Config{}, zap.NewNop())

			_, err := fresh.Store(ctx, "content", store.Metadata{})
			Expect(err).To(MatchError(store.ErrNotInitialized))

			_, err = fresh.Query(ctx, "content", 10)
			Expect(err).To(MatchError(store.ErrNotInitialized))

			_, err = fresh.Count(ctx)
			Expect(err).To(MatchError(store.ErrNotInitialized))
		})
	})

	Describe("Store", func() {
		It("deduplicates by content hash", func() {
			first, err := s.Store(ctx, "we decided to use postgres", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())

			second, err := s.Store(ctx, "We decided to use postgres", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ID).To(Equal(first.ID))

			count, err := s.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("enforces the per-scope quota", func() {
			capped := New(Config{MaxRecordsPerScope: 2}, zap.NewNop())
			Expect(capped.Initialize(ctx)).To(Succeed())

			meta := store.Metadata{Scope: "2026-08-25"}
			_, err := capped.Store(ctx, "first observation today", meta)
			Expect(err).NotTo(HaveOccurred())
			_, err = capped.Store(ctx, "second observation today", meta)
			Expect(err).NotTo(HaveOccurred())

			_, err = capped.Store(ctx, "third observation today", meta)
			var quotaErr store.QuotaError
			Expect(err).To(BeAssignableToTypeOf(quotaErr))
			Expect(err.(store.QuotaError).Scope).To(Equal("2026-08-25"))
			Expect(err.(store.QuotaError).Limit).To(Equal(2))
		})

		It("accounts quotas per scope independently", func() {
			capped := New(Config{MaxRecordsPerScope: 1}, zap.NewNop())
			Expect(capped.Initialize(ctx)).To(Succeed())

			_, err := capped.Store(ctx, "observation one", store.Metadata{Scope: "a"})
			Expect(err).NotTo(HaveOccurred())

			_, err = capped.Store(ctx, "observation two", store.Metadata{Scope: "b"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("frees quota on delete", func() {
			capped := New(Config{MaxRecordsPerScope: 1}, zap.NewNop())
			Expect(capped.Initialize(ctx)).To(Succeed())

			rec, err := capped.Store(ctx, "the only one", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())

			_, err = capped.Delete(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = capped.Store(ctx, "a replacement", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			_, err := s.Store(ctx, "we decided to use postgres for storage", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Store(ctx, "birds migrate thousands of kilometers every autumn season", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("ranks lexically similar content first", func() {
			results, err := s.Query(ctx, "we decided to use postgres", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			Expect(results[0].Record.Content).To(ContainSubstring("postgres"))
			Expect(results[0].Score).To(BeNumerically(">", 0))
		})

		It("boosts curated records over equally similar ones", func() {
			// Same token stream, different punctuation: distinct hashes but
			// identical signatures, so raw similarity ties.
			_, err := s.Store(ctx, "use tabs not spaces", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())
			curated, err := s.Store(ctx, "Use tabs, not spaces!", store.Metadata{Curated: true})
			Expect(err).NotTo(HaveOccurred())

			results, err := s.Query(ctx, "use tabs not spaces", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(results)).To(BeNumerically(">=", 2))
			Expect(results[0].Record.ID).To(Equal(curated.ID))
		})

		It("touches returned records", func() {
			results, err := s.Query(ctx, "we decided to use postgres", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Record.AccessCount).To(Equal(1))
		})

		It("uses the injected provider when present", func() {
			constant := constantProvider{score: 0.42}
			injected := New(Config{}, zap.NewNop(), WithProvider(constant))
			Expect(injected.Initialize(ctx)).To(Succeed())

			_, err := injected.Store(ctx, "anything at all", store.Metadata{})
			Expect(err).NotTo(HaveOccurred())

			results, err := injected.Query(ctx, "completely different words", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})
	})

	Describe("Persistence", func() {
		var path string

		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "episodic-test-*")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
			path = filepath.Join(dir, "episodic.json")
		})

		It("survives a close and reopen with signatures intact", func() {
			first := New(Config{Path: path}, zap.NewNop())
			Expect(first.Initialize(ctx)).To(Succeed())

			_, err := first.Store(ctx, "we decided to use postgres for storage", store.Metadata{Scope: "proj"})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second := New(Config{Path: path}, zap.NewNop())
			Expect(second.Initialize(ctx)).To(Succeed())

			count, err := second.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			results, err := second.Query(ctx, "we decided to use postgres", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("restores scope quota accounting on reload", func() {
			first := New(Config{Path: path, MaxRecordsPerScope: 1}, zap.NewNop())
			Expect(first.Initialize(ctx)).To(Succeed())

			_, err := first.Store(ctx, "fills the scope", store.Metadata{Scope: "tight"})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close()).To(Succeed())

			second := New(Config{Path: path, MaxRecordsPerScope: 1}, zap.NewNop())
			Expect(second.Initialize(ctx)).To(Succeed())

			_, err = second.Store(ctx, "should not fit", store.Metadata{Scope: "tight"})
			var quotaErr store.QuotaError
			Expect(err).To(BeAssignableToTypeOf(quotaErr))
		})

		It("recovers to an empty store from a corrupt file", func() {
			Expect(os.WriteFile(path, []byte("]["), 0o600)).To(Succeed())

			recovered := New(Config{Path: path}, zap.NewNop())
			Expect(recovered.Initialize(ctx)).To(Succeed())

			count, err := recovered.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})
})

// constantProvider returns a fixed similarity for every pair.
type constantProvider struct {
	score float64
}

func (p constantProvider) Similarity(_ context.Context, _, _ string) (float64, error) {
	return p.score, nil
}
