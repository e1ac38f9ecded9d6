package text

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Normalize", func() {
	It("trims, lowercases, and collapses whitespace", func() {
		Expect(Normalize("  Hello   World  ")).To(Equal("hello world"))
	})

	It("leaves already normal content unchanged", func() {
		Expect(Normalize("hello world")).To(Equal("hello world"))
	})

	It("normalizes tabs and newlines to single spaces", func() {
		Expect(Normalize("a\tb\nc")).To(Equal("a b c"))
	})

	It("returns empty for whitespace-only input", func() {
		Expect(Normalize("   \t\n ")).To(Equal(""))
	})
})

var _ = Describe("Tokenize", func() {
	It("splits on punctuation and lowercases", func() {
		Expect(Tokenize("Node.js version 18.17.0!")).To(Equal(
			[]string{"node", "js", "version", "18", "17", "0"},
		))
	})

	It("returns nil for empty input", func() {
		Expect(Tokenize("")).To(BeNil())
	})

	It("returns nil for punctuation-only input", func() {
		Expect(Tokenize("!!! --- ???")).To(BeNil())
	})

	It("is idempotent over its own output", func() {
		tokens := Tokenize("We chose PostgreSQL (over SQLite)!")
		again := Tokenize(strings.Join(tokens, " "))
		Expect(again).To(Equal(tokens))
	})
})

var _ = Describe("Ngrams", func() {
	It("returns every sliding window", func() {
		Expect(Ngrams("a b c", 2)).To(Equal([][]string{
			{"a", "b"},
			{"b", "c"},
		}))
	})

	It("returns a single window when n equals the token count", func() {
		Expect(Ngrams("a b c", 3)).To(Equal([][]string{{"a", "b", "c"}}))
	})

	It("returns nil when the text has fewer than n tokens", func() {
		Expect(Ngrams("a", 2)).To(BeNil())
	})

	It("returns nil for non-positive n", func() {
		Expect(Ngrams("a b c", 0)).To(BeNil())
		Expect(Ngrams("a b c", -1)).To(BeNil())
	})
})
