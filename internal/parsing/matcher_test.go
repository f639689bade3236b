package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("regexMatcher", func() {
	It("should return every capture in text order", func() {
		m := capture(`n=([0-9]+)`)
		Expect(m.Match("n=1 n=22 n=333")).To(Equal([]string{"1", "22", "333"}))
	})

	It("should return the whole match without a group", func() {
		Expect(whole(`[a-z]+`).Match("ab 12 cd")).To(Equal([]string{"ab", "cd"}))
	})

	It("should stop after the first match when asked", func() {
		Expect(capture(`n=([0-9]+)`).firstOnly().Match("n=1 n=2")).To(Equal([]string{"1"}))
	})

	It("should drop matches followed by the guard", func() {
		m := capture(`\$([0-9]+\.[0-9]{2})`).unless(`\s*[0-9]`)
		Expect(m.Match("$1.234 $5.67 $8.90 1")).To(Equal([]string{"5.67"}))
	})

	It("should skip a guarded match and keep looking when first only", func() {
		m := capture(`\$([0-9]+\.[0-9]{2})`).unless(`[0-9]`).firstOnly()
		Expect(m.Match("$1.234 $5.67")).To(Equal([]string{"5.67"}))
	})

	It("should return nothing when there is no match", func() {
		Expect(capture(`x(y)`).Match("abc")).To(BeEmpty())
	})
})

var _ = Describe("matchAll", func() {
	It("should concatenate candidates in matcher order", func() {
		ms := []Matcher{capture(`b([0-9])`), capture(`a([0-9])`)}
		Expect(matchAll(ms, "a1 b2 a3")).To(Equal([]string{"2", "1", "3"}))
	})
})
