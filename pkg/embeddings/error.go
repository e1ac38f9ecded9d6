package embeddings

import "errors"

// ErrEmbedding is returned when embedding generation fails. Callers fall back
// to signature-overlap similarity rather than propagating it.
var ErrEmbedding = errors.New("embedding failed")
