// Package embeddings defines the client boundary to external embedding
// generators. Vector generation is an out-of-process collaborator; the core
// only consumes vectors through this interface and must tolerate its failure.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the width of the vectors this embedder produces.
	Dimensions() int

	// Close releases any resources held by the embedder.
	Close() error
}
