package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func balance(v float64) *float64 {
	return &v
}

var _ = Describe("Reconcile", func() {
	var (
		a, b   *Result
		cmp    Comparator
		status VerificationStatus
	)

	sample := func() *Result {
		return &Result{Transactions: []Transaction{
			{Date: "2024-01-01", Description: "Coffee", Amount: 4.5, Type: Debit, Balance: balance(95.5)},
			{Date: "2024-01-02", Description: "Salary", Amount: 3000, Type: Credit, Balance: balance(3095.5)},
		}}
	}

	BeforeEach(func() {
		a = sample()
		b = sample()
		cmp = nil
	})

	JustBeforeEach(func() {
		status = Reconcile(a, b, cmp)
	})

	When("both results are identical", func() {
		It("should be verified", func() {
			Expect(status).To(Equal(StatusVerified))
		})
	})

	When("the second result is missing", func() {
		BeforeEach(func() {
			b = nil
		})

		It("should be pending", func() {
			Expect(status).To(Equal(StatusPending))
		})
	})

	When("both results are missing", func() {
		BeforeEach(func() {
			a = nil
			b = nil
		})

		It("should be pending", func() {
			Expect(status).To(Equal(StatusPending))
		})
	})

	When("the first result has no transactions", func() {
		BeforeEach(func() {
			a = &Result{Transactions: []Transaction{}}
		})

		It("should be pending", func() {
			Expect(status).To(Equal(StatusPending))
		})
	})

	When("one transaction amount differs", func() {
		BeforeEach(func() {
			b.Transactions[1].Amount = 3001
		})

		It("should be a mismatch", func() {
			Expect(status).To(Equal(StatusMismatch))
		})
	})

	When("the transaction counts differ", func() {
		BeforeEach(func() {
			b.Transactions = b.Transactions[:1]
		})

		It("should be a mismatch", func() {
			Expect(status).To(Equal(StatusMismatch))
		})
	})

	When("the same transactions appear in a different order", func() {
		BeforeEach(func() {
			b.Transactions[0], b.Transactions[1] = b.Transactions[1], b.Transactions[0]
		})

		It("should be a mismatch", func() {
			Expect(status).To(Equal(StatusMismatch))
		})
	})

	When("the results differ only in formatting", func() {
		BeforeEach(func() {
			b.Transactions[0].Date = "01/01/2024"
			b.Transactions[0].Description = "  COFFEE "
			b.Transactions[0].Amount = 4.50000001
			b.Transactions[1].Balance = nil
		})

		It("should be verified with the normalized comparator", func() {
			Expect(status).To(Equal(StatusVerified))
		})

		When("the exact comparator is used", func() {
			BeforeEach(func() {
				cmp = ExactComparator
			})

			It("should be a mismatch", func() {
				Expect(status).To(Equal(StatusMismatch))
			})
		})
	})

	When("the sign convention differs", func() {
		BeforeEach(func() {
			b.Transactions[0].Amount = -4.5
		})

		It("should compare magnitudes", func() {
			Expect(status).To(Equal(StatusVerified))
		})
	})

	When("the running balances disagree", func() {
		BeforeEach(func() {
			b.Transactions[0].Balance = balance(96)
		})

		It("should be a mismatch", func() {
			Expect(status).To(Equal(StatusMismatch))
		})
	})
})

var _ = Describe("ComparatorByName", func() {
	It("should resolve the known comparators", func() {
		cmp, err := ComparatorByName("exact")
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Equal(Transaction{Amount: 1}, Transaction{Amount: -1})).To(BeFalse())

		cmp, err = ComparatorByName("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Equal(Transaction{Amount: 1}, Transaction{Amount: -1})).To(BeTrue())
	})

	It("should reject unknown names", func() {
		_, err := ComparatorByName("fuzzy")
		Expect(err).To(MatchError(ContainSubstring("unknown comparator")))
	})
})
