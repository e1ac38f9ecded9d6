package fingerprint

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/papercomputeco/engram/pkg/text"
)

const (
	// DefaultBands is the number of band signatures produced per content.
	DefaultBands = 8

	// shingleSize is the token shingle width used for band hashing.
	shingleSize = 3
)

// Signatures returns a fixed-cardinality, ordered set of band signatures for
// the content. Lexically similar inputs share bands with high probability
// (min-hash per band over token shingles), so signature-set overlap is a cheap
// proxy for content similarity. Pure and deterministic; empty input yields nil.
func Signatures(content string) []string {
	tokens := text.Tokenize(content)
	if len(tokens) == 0 {
		return nil
	}

	shingles := shingle(tokens, shingleSize)

	sigs := make([]string, 0, DefaultBands)
	for band := 0; band < DefaultBands; band++ {
		minHash := uint64(1<<64 - 1)
		for _, sh := range shingles {
			h := fnv.New64a()
			fmt.Fprintf(h, "%d:%s", band, sh)
			if v := h.Sum64(); v < minHash {
				minHash = v
			}
		}
		sigs = append(sigs, fmt.Sprintf("%d:%016x", band, minHash))
	}

	return sigs
}

// Jaccard returns the Jaccard index of two signature sets in [0, 1].
// Two empty sets have similarity 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}

	inter := 0
	for _, s := range b {
		if _, ok := set[s]; ok {
			inter++
		}
	}

	union := len(set) + len(dedupe(b)) - inter
	if union == 0 {
		return 0
	}

	return float64(inter) / float64(union)
}

// shingle produces the contiguous token windows band hashing runs over.
// Short inputs produce a single shingle of all tokens so every non-empty
// content has at least one.
func shingle(tokens []string, size int) []string {
	if len(tokens) <= size {
		return []string{strings.Join(tokens, " ")}
	}

	shingles := make([]string, 0, len(tokens)-size+1)
	for i := 0; i+size <= len(tokens); i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+size], " "))
	}

	return shingles
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
