// Package text provides normalization, tokenization, and n-gram extraction
// for memory content. All functions are pure and locale-independent.
package text

import (
	"strings"
	"unicode"
)

// Normalize trims, lowercases, and collapses internal whitespace.
// The normalized form is the canonical input for content hashing.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Tokenize splits text into lowercase word tokens with punctuation stripped.
// Tokens are runs of letters and digits; everything else is a separator.
// Idempotent: Tokenize(strings.Join(Tokenize(s), " ")) yields the same tokens.
func Tokenize(s string) []string {
	var tokens []string
	var b strings.Builder

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}

	return tokens
}

// Ngrams returns every sliding window of n consecutive tokens from s.
// Returns nil when the text has fewer than n tokens.
func Ngrams(s string, n int) [][]string {
	if n <= 0 {
		return nil
	}

	tokens := Tokenize(s)
	if len(tokens) < n {
		return nil
	}

	windows := make([][]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		windows = append(windows, tokens[i:i+n])
	}

	return windows
}
