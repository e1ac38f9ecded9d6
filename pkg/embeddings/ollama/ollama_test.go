package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

var _ = Describe("Ollama Embedder", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewEmbedder", func() {
		It("applies defaults", func() {
			e, err := NewEmbedder(Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Dimensions()).To(Equal(DefaultDimensions))
		})

		It("honors configured dimensions", func() {
			e, err := NewEmbedder(Config{Dimensions: 384})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Dimensions()).To(Equal(384))
		})
	})

	Describe("Embed", func() {
		It("posts to /api/embed and returns the first vector", func() {
			var gotModel, gotInput string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/embed"))

				var req struct {
					Model string `json:"model"`
					Input string `json:"input"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				gotModel, gotInput = req.Model, req.Input

				_ = json.NewEncoder(w).Encode(map[string]any{
					"embeddings": [][]float32{{0.1, 0.2, 0.3}},
				})
			}))
			DeferCleanup(server.Close)

			e, err := NewEmbedder(Config{BaseURL: server.URL, Model: "all-minilm"})
			Expect(err).NotTo(HaveOccurred())

			vec, err := e.Embed(ctx, "hello world")
			Expect(err).NotTo(HaveOccurred())
			Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
			Expect(gotModel).To(Equal("all-minilm"))
			Expect(gotInput).To(Equal("hello world"))
		})

		It("wraps upstream failures in ErrEmbedding", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			}))
			DeferCleanup(server.Close)

			e, err := NewEmbedder(Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Embed(ctx, "hello")
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
		})

		It("rejects empty embedding responses", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
			}))
			DeferCleanup(server.Close)

			e, err := NewEmbedder(Config{BaseURL: server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Embed(ctx, "hello")
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
		})
	})
})
