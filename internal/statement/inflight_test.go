package statement

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InFlight", func() {
	var locks *InFlight

	BeforeEach(func() {
		locks = NewInFlight(time.Minute)
	})

	It("should refuse a locator that is already held", func() {
		release, err := locks.Acquire("gs://bucket/a.pdf")
		Expect(err).NotTo(HaveOccurred())
		defer release()

		_, err = locks.Acquire("gs://bucket/a.pdf")
		Expect(err).To(MatchError(ErrAlreadyProcessing))
	})

	It("should allow different locators at once", func() {
		releaseA, err := locks.Acquire("local:a.pdf")
		Expect(err).NotTo(HaveOccurred())
		defer releaseA()

		releaseB, err := locks.Acquire("local:b.pdf")
		Expect(err).NotTo(HaveOccurred())
		defer releaseB()
	})

	It("should allow the locator again after release", func() {
		release, err := locks.Acquire("local:a.pdf")
		Expect(err).NotTo(HaveOccurred())
		release()

		release, err = locks.Acquire("local:a.pdf")
		Expect(err).NotTo(HaveOccurred())
		release()
	})

	When("the marker expires", func() {
		BeforeEach(func() {
			locks = NewInFlight(20 * time.Millisecond)
		})

		It("should allow the locator again", func() {
			_, err := locks.Acquire("local:stuck.pdf")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() error {
				release, err := locks.Acquire("local:stuck.pdf")
				if err == nil {
					release()
				}
				return err
			}).WithTimeout(time.Second).WithPolling(10 * time.Millisecond).Should(Succeed())
		})
	})

	When("a slow holder outlives its marker", func() {
		BeforeEach(func() {
			locks = NewInFlight(50 * time.Millisecond)
		})

		It("should not let its release clear the newer claim", func() {
			releaseA, err := locks.Acquire("local:slow.pdf")
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(80 * time.Millisecond)

			releaseB, err := locks.Acquire("local:slow.pdf")
			Expect(err).NotTo(HaveOccurred())
			defer releaseB()

			releaseA()

			_, err = locks.Acquire("local:slow.pdf")
			Expect(err).To(MatchError(ErrAlreadyProcessing))
		})
	})
})
