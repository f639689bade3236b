package parsing

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("extractAmount", func() {
	var (
		parser *Parser
		text   string
		amount decimal.NullDecimal
	)

	BeforeEach(func() {
		parser = NewParser()
	})

	JustBeforeEach(func() {
		amount = parser.extractAmount(text)
	})

	expectAmount := func(want string) {
		Expect(amount.Valid).To(BeTrue())
		Expect(amount.Decimal.Equal(decimal.RequireFromString(want))).To(BeTrue(),
			"got %s, want %s", amount.Decimal.String(), want)
	}

	When("the only number is at or above the ceiling", func() {
		BeforeEach(func() {
			text = "Total: $15000.00"
		})

		It("should not find an amount", func() {
			Expect(amount.Valid).To(BeFalse())
		})
	})

	When("both subtotal and total are present", func() {
		BeforeEach(func() {
			text = "Subtotal: $12.50\nTotal: $14.00"
		})

		It("should return the larger total", func() {
			expectAmount("14.00")
		})
	})

	When("the amount is just below the ceiling", func() {
		BeforeEach(func() {
			text = "Amount due: 9999.99"
		})

		It("should accept it", func() {
			expectAmount("9999.99")
		})
	})

	When("only cents-sized numbers are present", func() {
		BeforeEach(func() {
			text = "Paid 0.25\nchange 0.49"
		})

		It("should not find an amount", func() {
			Expect(amount.Valid).To(BeFalse())
		})
	})

	When("the only amount is exactly the floor", func() {
		BeforeEach(func() {
			text = "Total: $0.50"
		})

		It("should not find an amount", func() {
			Expect(amount.Valid).To(BeFalse())
		})
	})

	When("the amount is just above the floor", func() {
		BeforeEach(func() {
			text = "Total: $0.51"
		})

		It("should accept it", func() {
			expectAmount("0.51")
		})
	})

	When("a dollar amount runs into more digits", func() {
		BeforeEach(func() {
			text = "ref $12.345"
		})

		It("should ignore it", func() {
			Expect(amount.Valid).To(BeFalse())
		})
	})

	When("the amount carries a currency code", func() {
		BeforeEach(func() {
			text = "CHARGED 12.50 USD"
		})

		It("should find it", func() {
			expectAmount("12.50")
		})
	})

	When("the symbol trails the number", func() {
		BeforeEach(func() {
			text = "Grand 23.10$ thanks"
		})

		It("should find it", func() {
			expectAmount("23.10")
		})
	})

	When("phone and loyalty numbers surround the total", func() {
		BeforeEach(func() {
			text = "Tel 555-1234\nLoyalty 4111222233334444\nBalance 42.10\nItems 3"
		})

		It("should pick the total", func() {
			expectAmount("42.10")
		})
	})

	When("no anchor is present", func() {
		BeforeEach(func() {
			text = "apples 1.20 pears 2.40 misc"
		})

		It("should fall back to the largest bare decimal", func() {
			expectAmount("2.40")
		})
	})

	When("there are no numbers", func() {
		BeforeEach(func() {
			text = "Hello world"
		})

		It("should not find an amount", func() {
			Expect(amount.Valid).To(BeFalse())
		})
	})
})
