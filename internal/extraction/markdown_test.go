package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TableParser", func() {
	var (
		parser *TableParser
		input  string
		rows   []Row
		err    error
	)

	BeforeEach(func() {
		parser = NewTableParser()
	})

	JustBeforeEach(func() {
		rows, err = parser.Records(input)
	})

	When("parsing a well formed table", func() {
		BeforeEach(func() {
			input = "| Date | Description | Amount |\n" +
				"| --- | --- | --- |\n" +
				"| 2024-01-01 | Coffee | -4.50 |"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should map header names to cell values", func() {
			Expect(rows).To(Equal([]Row{
				{"Date": "2024-01-01", "Description": "Coffee", "Amount": "-4.50"},
			}))
		})
	})

	When("the table has several data rows", func() {
		BeforeEach(func() {
			input = `| Date | Description | Debit | Credit |
|:-----|:-----------:|------:|-------:|
| 2024-01-01 | Rent | 1200.00 | |
| 2024-01-02 | Salary | | 3000.00 |
| 2024-01-03 | Groceries | 84.10 | |`
		})

		It("should return one mapping per data row in order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]["Description"]).To(Equal("Rent"))
			Expect(rows[1]["Description"]).To(Equal("Salary"))
			Expect(rows[2]["Description"]).To(Equal("Groceries"))
		})

		It("should never produce more keys than headers", func() {
			for _, row := range rows {
				Expect(len(row)).To(BeNumerically("<=", 4))
			}
		})

		It("should keep empty interior cells", func() {
			Expect(rows[0]).To(HaveKeyWithValue("Credit", ""))
			Expect(rows[1]).To(HaveKeyWithValue("Debit", ""))
		})
	})

	When("a data row has fewer cells than headers", func() {
		BeforeEach(func() {
			input = "| Date | Description | Amount |\n|---|---|---|\n| 2024-01-01 | Coffee |"
		})

		It("should not pad the missing cells", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveLen(2))
			Expect(rows[0]).NotTo(HaveKey("Amount"))
		})
	})

	When("a data row has more cells than headers", func() {
		BeforeEach(func() {
			input = "| Date | Amount |\n|---|---|\n| 2024-01-01 | 5.00 | extra | more |"
		})

		It("should truncate the row to the header count", func() {
			Expect(rows).To(Equal([]Row{{"Date": "2024-01-01", "Amount": "5.00"}}))
		})
	})

	When("the table has no separator row", func() {
		BeforeEach(func() {
			input = "| Date | Amount |\n| 2024-01-01 | 1.00 |\n| 2024-01-02 | 2.00 |"
		})

		It("should treat the second line as the separator", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]Row{{"Date": "2024-01-02", "Amount": "2.00"}}))
		})
	})

	When("rows are written without outer pipes", func() {
		BeforeEach(func() {
			input = "Date | Amount\n--- | ---\n2024-01-01 | 1.00"
		})

		It("should parse the same way", func() {
			Expect(rows).To(Equal([]Row{{"Date": "2024-01-01", "Amount": "1.00"}}))
		})
	})

	When("prose is mixed into the table", func() {
		BeforeEach(func() {
			input = "\n\n| Date | Amount |\n|---|---|\n| 2024-01-01 | 1.00 |\nEnd of statement\n| 2024-01-02 | 2.00 |\n"
		})

		It("should skip lines without pipes", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[1]["Date"]).To(Equal("2024-01-02"))
		})
	})

	When("the table has a header but no data rows", func() {
		BeforeEach(func() {
			input = "| Date | Amount |\n|---|---|"
		})

		It("should return an empty sequence", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})
	})

	When("the input is blank", func() {
		BeforeEach(func() {
			input = "   \n  \n"
		})

		It("should return ErrNoHeader", func() {
			Expect(err).To(MatchError(ErrNoHeader))
		})
	})

	When("the header line holds only pipes", func() {
		BeforeEach(func() {
			input = "| | |\n|---|---|\n| a | b |"
		})

		It("should return ErrNoHeader", func() {
			Expect(err).To(MatchError(ErrNoHeader))
		})
	})

	When("a custom separator policy is used", func() {
		BeforeEach(func() {
			parser = &TableParser{Separator: SeparatorFunc(func(lines []string) int { return 2 })}
			input = "| A |\n| note |\n| --- |\n| 1 |"
		})

		It("should start data rows after the chosen line", func() {
			Expect(rows).To(Equal([]Row{{"A": "1"}}))
		})
	})
})

var _ = Describe("isSeparatorRow", func() {
	DescribeTable("classifying lines",
		func(line string, expected bool) {
			Expect(isSeparatorRow(line)).To(Equal(expected))
		},
		Entry("dash runs", "| --- | --- |", true),
		Entry("alignment markers", "|:---|:---:|---:|", true),
		Entry("no outer pipes", "--- | ---", true),
		Entry("data row", "| 2024-01-01 | -4.50 |", false),
		Entry("only pipes", "| | |", false),
		Entry("text", "Date", false),
	)
})
