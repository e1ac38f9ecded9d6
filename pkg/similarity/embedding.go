package similarity

import (
	"container/list"
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/fingerprint"
)

const (
	// DefaultEmbedTimeout bounds a single embedding call.
	DefaultEmbedTimeout = 5 * time.Second

	// DefaultCacheSize bounds the vector cache (entries, keyed by content hash).
	DefaultCacheSize = 512
)

// EmbeddingProvider scores similarity as the cosine of externally generated
// vectors. Vectors are cached by content hash so repeated comparisons against
// the same content hit the generator once. On generator error or timeout the
// provider answers with signature-overlap similarity for that call.
type EmbeddingProvider struct {
	embedder embeddings.Embedder
	fallback *SignatureProvider
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	cache     map[string][]float32
	eviction  *list.List
	cacheSize int
}

// EmbeddingOption configures an EmbeddingProvider.
type EmbeddingOption func(*EmbeddingProvider)

// WithTimeout overrides the per-call embedding timeout.
func WithTimeout(d time.Duration) EmbeddingOption {
	return func(p *EmbeddingProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithCacheSize overrides the vector cache bound.
func WithCacheSize(n int) EmbeddingOption {
	return func(p *EmbeddingProvider) {
		if n > 0 {
			p.cacheSize = n
		}
	}
}

// NewEmbeddingProvider creates the embedding-cosine provider.
func NewEmbeddingProvider(embedder embeddings.Embedder, logger *zap.Logger, opts ...EmbeddingOption) *EmbeddingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &EmbeddingProvider{
		embedder:  embedder,
		fallback:  NewSignatureProvider(),
		timeout:   DefaultEmbedTimeout,
		logger:    logger,
		cache:     make(map[string][]float32),
		eviction:  list.New(),
		cacheSize: DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Similarity implements Provider. It never returns an error: embedding
// failures degrade to the signature strategy for the affected call.
func (p *EmbeddingProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	vecA, err := p.embed(ctx, a)
	if err != nil {
		return p.fallbackSimilarity(ctx, a, b, err)
	}

	vecB, err := p.embed(ctx, b)
	if err != nil {
		return p.fallbackSimilarity(ctx, a, b, err)
	}

	return Cosine(vecA, vecB), nil
}

func (p *EmbeddingProvider) fallbackSimilarity(ctx context.Context, a, b string, cause error) (float64, error) {
	p.logger.Warn("embedding similarity unavailable, using signature fallback",
		zap.Error(cause),
	)
	return p.fallback.Similarity(ctx, a, b)
}

// embed fetches the vector for content, serving from the bounded cache when
// possible. Cache keys are content hashes so normalization-equivalent content
// shares an entry.
func (p *EmbeddingProvider) embed(ctx context.Context, content string) ([]float32, error) {
	key := fingerprint.ContentHash(content)

	p.mu.Lock()
	if vec, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return vec, nil
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vec, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cache[key]; !ok {
		p.cache[key] = vec
		p.eviction.PushBack(key)
		for len(p.cache) > p.cacheSize {
			oldest := p.eviction.Remove(p.eviction.Front()).(string)
			delete(p.cache, oldest)
		}
	}

	return vec, nil
}

// Cosine returns the cosine similarity of two vectors, clamped to [0, 1].
// Mismatched or zero-length vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}

	return cos
}

var _ Provider = (*EmbeddingProvider)(nil)
