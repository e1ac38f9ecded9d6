// Package similarity provides the pluggable content-similarity capability.
//
// Two interchangeable strategies implement [Provider]: signature-set Jaccard
// overlap (cheap, in-process, never fails) and embedding cosine similarity
// (vectors come from the external embedding collaborator). The embedding
// strategy degrades gracefully: any generator error or timeout falls back to
// the signature answer for that call instead of propagating.
package similarity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/fingerprint"
)

// Strategy names accepted by New.
const (
	StrategySignature = "signature"
	StrategyEmbedding = "embedding"
)

// Provider scores the similarity of two pieces of content in [0, 1].
type Provider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// New builds a provider for the named strategy. The embedding strategy
// requires a configured embedder.
func New(strategy string, embedder embeddings.Embedder, logger *zap.Logger) (Provider, error) {
	switch strategy {
	case StrategySignature, "":
		return NewSignatureProvider(), nil
	case StrategyEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("embedding similarity strategy requires an embedder")
		}
		return NewEmbeddingProvider(embedder, logger), nil
	default:
		return nil, fmt.Errorf("unsupported similarity strategy: %s", strategy)
	}
}

// SignatureProvider scores similarity as the Jaccard index of the two inputs'
// LSH signature sets. O(signature-set-size), no network, never fails.
type SignatureProvider struct{}

// NewSignatureProvider creates the signature-overlap provider.
func NewSignatureProvider() *SignatureProvider {
	return &SignatureProvider{}
}

// Similarity implements Provider.
func (p *SignatureProvider) Similarity(_ context.Context, a, b string) (float64, error) {
	return fingerprint.Jaccard(fingerprint.Signatures(a), fingerprint.Signatures(b)), nil
}

var _ Provider = (*SignatureProvider)(nil)
