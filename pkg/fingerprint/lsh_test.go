package fingerprint

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Signatures", func() {
	It("produces a fixed number of band signatures", func() {
		Expect(Signatures("the quick brown fox jumps over the lazy dog")).To(HaveLen(DefaultBands))
	})

	It("is deterministic", func() {
		a := Signatures("some stable content")
		b := Signatures("some stable content")
		Expect(a).To(Equal(b))
	})

	It("is identical for punctuation and case variants", func() {
		a := Signatures("Use tabs, not spaces!")
		b := Signatures("use tabs not spaces")
		Expect(a).To(Equal(b))
	})

	It("returns nil for empty content", func() {
		Expect(Signatures("")).To(BeNil())
		Expect(Signatures("!!!")).To(BeNil())
	})

	It("handles content shorter than the shingle width", func() {
		Expect(Signatures("hello")).To(HaveLen(DefaultBands))
	})
})

var _ = Describe("Jaccard", func() {
	It("scores identical signature sets as 1", func() {
		sigs := Signatures("we decided to use postgres for storage")
		Expect(Jaccard(sigs, sigs)).To(Equal(1.0))
	})

	It("scores unrelated content low", func() {
		a := Signatures("we decided to use postgres for storage")
		b := Signatures("birds migrate thousands of kilometers every autumn season")
		Expect(Jaccard(a, b)).To(BeNumerically("<", 0.3))
	})

	It("scores overlapping content between unrelated and identical", func() {
		full := Signatures("we decided to use postgres for storage")
		partial := Signatures("we decided to use postgres")
		sim := Jaccard(full, partial)
		Expect(sim).To(BeNumerically(">", 0))
		Expect(sim).To(BeNumerically("<=", 1))
	})

	It("scores empty sets as 0", func() {
		Expect(Jaccard(nil, nil)).To(Equal(0.0))
		Expect(Jaccard(Signatures("hello"), nil)).To(Equal(0.0))
	})
})
