package memory

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/admission"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/similarity"
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/store/episodic"
	"github.com/papercomputeco/engram/pkg/store/factual"
)

// capturePublisher collects published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []eventstream.MemoryEvent
}

func (p *capturePublisher) Publish(_ context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(eventType string) []eventstream.MemoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []eventstream.MemoryEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// newTestMemory builds an orchestrator over in-memory layers with the
// signature similarity strategy.
func newTestMemory(publisher eventstream.Publisher) *Memory {
	logger := zap.NewNop()
	gate := admission.NewGate(similarity.NewSignatureProvider(), admission.Config{}, logger)

	layers := map[Tier]store.Layer{
		TierFactual:  factual.New(factual.Config{}, logger),
		TierEpisodic: episodic.New(episodic.Config{}, logger),
	}

	return New(Config{}, layers, gate, publisher, logger)
}

var _ = Describe("Memory", func() {
	var (
		mem       *Memory
		publisher *capturePublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		publisher = &capturePublisher{}
		mem = newTestMemory(publisher)
		ctx = context.Background()
		Expect(mem.Initialize(ctx)).To(Succeed())
	})

	AfterEach(func() {
		Expect(mem.Close()).To(Succeed())
	})

	Describe("Remember", func() {
		It("stores novel content and recalls it later", func() {
			result, err := mem.Remember(ctx, "Node.js version 18.17.0 is required", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stored).To(BeTrue())
			Expect(result.Tier).To(Equal(TierFactual))

			results, err := mem.Recall(ctx, "node version", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			Expect(results[0].Record.Content).To(ContainSubstring("18.17.0"))
		})

		It("skips near-duplicate content", func() {
			first, err := mem.Remember(ctx, "the api listens on port 8080", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Stored).To(BeTrue())

			second, err := mem.Remember(ctx, "The API listens on port 8080!!", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Stored).To(BeFalse())

			count, err := mem.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			Expect(publisher.byType(eventstream.EventTypeStored)).To(HaveLen(1))
			Expect(publisher.byType(eventstream.EventTypeSkipped)).To(HaveLen(1))
		})

		It("stores curated content regardless of novelty", func() {
			_, err := mem.Remember(ctx, "the api listens on port 8080", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())

			curated, err := mem.Remember(ctx, "The API listens on port 8080 (confirmed)", RememberOptions{Curated: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(curated.Stored).To(BeTrue())
			Expect(curated.Record.UtilityScore).To(BeNumerically(">=", 0.9))
		})

		It("routes decisions to the episodic tier", func() {
			result, err := mem.Remember(ctx, "we decided to use postgres over sqlite", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stored).To(BeTrue())
			Expect(result.Tier).To(Equal(TierEpisodic))
			Expect(result.Record.ContentType).To(Equal(store.TypeDecision))
		})

		It("honors a forced tier", func() {
			result, err := mem.Remember(ctx, "we decided to use postgres over sqlite", RememberOptions{Tier: TierFactual})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Tier).To(Equal(TierFactual))
		})

		It("publishes stored events with identity and schema fields", func() {
			result, err := mem.Remember(ctx, "Node.js version 18.17.0 is required", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())

			stored := publisher.byType(eventstream.EventTypeStored)
			Expect(stored).To(HaveLen(1))
			Expect(stored[0].SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(stored[0].EventID).NotTo(BeEmpty())
			Expect(stored[0].RecordID).To(Equal(result.Record.ID))
			Expect(stored[0].Layer).To(Equal(string(TierFactual)))
		})
	})

	Describe("Recall", func() {
		It("merges results across tiers by score", func() {
			_, err := mem.Remember(ctx, "we decided to use postgres over sqlite", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())
			_, err = mem.Remember(ctx, "postgres connection pooling is capped at 100", RememberOptions{})
			Expect(err).NotTo(HaveOccurred())

			results, err := mem.Recall(ctx, "postgres", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("returns nothing for unmatched queries", func() {
			results, err := mem.Recall(ctx, "quantum topology", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Prune", func() {
		It("publishes one event per evicted record", func() {
			stub := &stubLayer{pruned: []store.Record{
				{ID: "gone-1", ContentType: store.TypeGeneral},
				{ID: "gone-2", ContentType: store.TypeError},
			}}

			pruneMem := New(Config{}, map[Tier]store.Layer{TierFactual: stub},
				admission.NewGate(similarity.NewSignatureProvider(), admission.Config{}, zap.NewNop()),
				publisher, zap.NewNop())

			pruned, err := pruneMem.Prune(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(HaveLen(2))
			Expect(publisher.byType(eventstream.EventTypePruned)).To(HaveLen(2))
		})
	})
})

// stubLayer is a minimal Layer with canned prune results.
type stubLayer struct {
	pruned []store.Record
}

func (s *stubLayer) Initialize(context.Context) error { return nil }
func (s *stubLayer) Store(_ context.Context, content string, _ store.Metadata) (store.Record, error) {
	return store.Record{ID: "stub", Content: content}, nil
}
func (s *stubLayer) Query(context.Context, string, int) ([]store.QueryResult, error) {
	return nil, nil
}
func (s *stubLayer) Get(context.Context, string) (store.Record, bool, error) {
	return store.Record{}, false, nil
}
func (s *stubLayer) Delete(context.Context, string) (bool, error) { return false, nil }
func (s *stubLayer) Count(context.Context) (int, error)           { return len(s.pruned), nil }
func (s *stubLayer) Prune(context.Context) ([]store.Record, error) {
	return s.pruned, nil
}
func (s *stubLayer) Close() error { return nil }

var _ store.Layer = (*stubLayer)(nil)
