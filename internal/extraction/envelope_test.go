package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TableFromEnvelope", func() {
	var (
		input string
		table string
		err   error
	)

	JustBeforeEach(func() {
		table, err = TableFromEnvelope(input)
	})

	When("the output is a bare JSON envelope", func() {
		BeforeEach(func() {
			input = `{"tableData": "| Date | Amount |\n|---|---|\n| 2024-01-01 | 1.00 |"}`
		})

		It("should return the table string", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(table).To(Equal("| Date | Amount |\n|---|---|\n| 2024-01-01 | 1.00 |"))
		})
	})

	When("the envelope is wrapped in a json code fence", func() {
		BeforeEach(func() {
			input = "```json\n{\"tableData\": \"| A |\\n|---|\\n| 1 |\"}\n```"
		})

		It("should strip the fence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(table).To(Equal("| A |\n|---|\n| 1 |"))
		})
	})

	When("the envelope is surrounded by prose", func() {
		BeforeEach(func() {
			input = "Here is the table you asked for:\n{\"tableData\": \"| A |\\n|---|\\n| 1 |\"}\nLet me know if you need more."
		})

		It("should find the object", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(table).To(Equal("| A |\n|---|\n| 1 |"))
		})
	})

	When("the model skipped the envelope", func() {
		BeforeEach(func() {
			input = "| A |\n|---|\n| 1 |"
		})

		It("should fall back to the raw table", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(table).To(Equal(input))
		})
	})

	When("the output has neither envelope nor table", func() {
		BeforeEach(func() {
			input = "I could not read this document."
		})

		It("should return ErrNoEnvelope", func() {
			Expect(err).To(MatchError(ErrNoEnvelope))
		})
	})

	When("the envelope uses a different key", func() {
		BeforeEach(func() {
			input = `{"table": "nothing here"}`
		})

		It("should return ErrNoEnvelope", func() {
			Expect(err).To(MatchError(ErrNoEnvelope))
		})
	})
})
