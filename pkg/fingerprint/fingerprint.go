// Package fingerprint computes deterministic content fingerprints: a sha256
// dedup hash over normalized content, positional n-gram index hashes, and
// locality-sensitive band signatures used for approximate similarity.
//
// Every function here is pure. Hashes are persisted by the stores and must be
// recomputed identically across process restarts, so the algorithms are fixed:
// sha256 for content identity, FNV-1a for index and signature hashing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/papercomputeco/engram/pkg/text"
)

// DefaultTableSize is the default n-gram hash table size (~1e6 buckets).
const DefaultTableSize uint64 = 1 << 20

// ContentHash returns the hex sha256 digest of the normalized content.
// Equal normalized inputs always produce equal output; the hash is an
// equality oracle for deduplication, never a ranking signal.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(text.Normalize(content)))
	return hex.EncodeToString(h[:])
}

// NgramHash maps a token window at a given position to a bucket in
// [0, tableSize). The position is part of the contract for determinism but
// does not perturb the bucket: a query window must land in the same bucket as
// a stored window regardless of its offset in the source text. Collisions are
// expected and tolerated; retrieval scores by matched n-gram size, not hash
// uniqueness.
func NgramHash(window []string, n, _ int, tableSize uint64) uint64 {
	if tableSize == 0 {
		tableSize = DefaultTableSize
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", n, strings.Join(window, " "))
	return h.Sum64() % tableSize
}
