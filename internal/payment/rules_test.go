package payment_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
	paymentPkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

var _ = Describe("Rules", func() {
	allStatuses := []string{
		attempt.StatusCreatedIntent,
		attempt.StatusPendingUnverified,
		attempt.StatusCredited,
		attempt.StatusRejected,
		attempt.StatusFailed,
	}

	Describe("IsValidTransition", func() {
		allowed := map[[2]string]bool{
			{attempt.StatusCreatedIntent, attempt.StatusPendingUnverified}: true,
			{attempt.StatusCreatedIntent, attempt.StatusFailed}:            true,
			{attempt.StatusPendingUnverified, attempt.StatusCredited}:      true,
			{attempt.StatusPendingUnverified, attempt.StatusRejected}:      true,
			{attempt.StatusPendingUnverified, attempt.StatusFailed}:        true,
		}

		It("matches the transition table for all 25 ordered pairs", func() {
			for _, from := range allStatuses {
				for _, to := range allStatuses {
					expected := allowed[[2]string{from, to}]
					Expect(paymentPkg.IsValidTransition(from, to)).To(Equal(expected),
						"transition %s -> %s", from, to)
				}
			}
		})

		It("rejects every transition out of a final state", func() {
			for _, from := range []string{attempt.StatusCredited, attempt.StatusRejected, attempt.StatusFailed} {
				for _, to := range allStatuses {
					Expect(paymentPkg.IsValidTransition(from, to)).To(BeFalse(),
						"final state %s must not transition to %s", from, to)
				}
			}
		})

		It("rejects self-transitions everywhere", func() {
			for _, status := range allStatuses {
				Expect(paymentPkg.IsValidTransition(status, status)).To(BeFalse(),
					"self-transition on %s", status)
			}
		})

		It("rejects backward transitions", func() {
			Expect(paymentPkg.IsValidTransition(attempt.StatusPendingUnverified, attempt.StatusCreatedIntent)).To(BeFalse())
		})
	})

	Describe("IsTerminal", func() {
		It("marks exactly credited, rejected and failed as terminal", func() {
			Expect(paymentPkg.IsTerminal(attempt.StatusCreatedIntent)).To(BeFalse())
			Expect(paymentPkg.IsTerminal(attempt.StatusPendingUnverified)).To(BeFalse())
			Expect(paymentPkg.IsTerminal(attempt.StatusCredited)).To(BeTrue())
			Expect(paymentPkg.IsTerminal(attempt.StatusRejected)).To(BeTrue())
			Expect(paymentPkg.IsTerminal(attempt.StatusFailed)).To(BeTrue())
		})
	})

	Describe("IsValidAmount", func() {
		const min, max = int64(100), int64(1000000)

		It("accepts the bounds and values between them", func() {
			Expect(paymentPkg.IsValidAmount(min, min, max)).To(BeTrue())
			Expect(paymentPkg.IsValidAmount(max, min, max)).To(BeTrue())
			Expect(paymentPkg.IsValidAmount(50000, min, max)).To(BeTrue())
		})

		It("rejects values just outside the bounds", func() {
			Expect(paymentPkg.IsValidAmount(min-1, min, max)).To(BeFalse())
			Expect(paymentPkg.IsValidAmount(max+1, min, max)).To(BeFalse())
		})

		It("rejects zero and negatives", func() {
			Expect(paymentPkg.IsValidAmount(0, min, max)).To(BeFalse())
			Expect(paymentPkg.IsValidAmount(-1, min, max)).To(BeFalse())
			Expect(paymentPkg.IsValidAmount(-max, min, max)).To(BeFalse())
		})
	})

	Describe("IsIntentExpired", func() {
		var expiry time.Time

		BeforeEach(func() {
			expiry = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		})

		newIntent := func(status string) *attempt.PaymentAttempt {
			return &attempt.PaymentAttempt{
				Status:    status,
				ExpiresAt: &expiry,
			}
		}

		It("is false one millisecond before the deadline", func() {
			a := newIntent(attempt.StatusCreatedIntent)
			Expect(paymentPkg.IsIntentExpired(a, expiry.Add(-time.Millisecond))).To(BeFalse())
		})

		It("is true at exactly the deadline", func() {
			a := newIntent(attempt.StatusCreatedIntent)
			Expect(paymentPkg.IsIntentExpired(a, expiry)).To(BeTrue())
		})

		It("is true any time after the deadline", func() {
			a := newIntent(attempt.StatusCreatedIntent)
			Expect(paymentPkg.IsIntentExpired(a, expiry.Add(48*time.Hour))).To(BeTrue())
		})

		It("is false for every other status regardless of the deadline", func() {
			for _, status := range allStatuses {
				if status == attempt.StatusCreatedIntent {
					continue
				}
				a := newIntent(status)
				Expect(paymentPkg.IsIntentExpired(a, expiry.Add(time.Hour))).To(BeFalse(),
					"status %s", status)
			}
		})

		It("is false when no deadline is set", func() {
			a := &attempt.PaymentAttempt{Status: attempt.StatusCreatedIntent}
			Expect(paymentPkg.IsIntentExpired(a, expiry)).To(BeFalse())
		})
	})

	Describe("IsVerificationTimedOut", func() {
		const window = 24 * time.Hour
		var submitted time.Time

		BeforeEach(func() {
			submitted = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		})

		newPending := func(status string) *attempt.PaymentAttempt {
			return &attempt.PaymentAttempt{
				Status:      status,
				SubmittedAt: &submitted,
			}
		}

		It("is false one millisecond before the window closes", func() {
			a := newPending(attempt.StatusPendingUnverified)
			Expect(paymentPkg.IsVerificationTimedOut(a, submitted.Add(window-time.Millisecond), window)).To(BeFalse())
		})

		It("is true at exactly the window boundary", func() {
			a := newPending(attempt.StatusPendingUnverified)
			Expect(paymentPkg.IsVerificationTimedOut(a, submitted.Add(window), window)).To(BeTrue())
		})

		It("is true after the window", func() {
			a := newPending(attempt.StatusPendingUnverified)
			Expect(paymentPkg.IsVerificationTimedOut(a, submitted.Add(window+time.Second), window)).To(BeTrue())
		})

		It("is false for every other status", func() {
			for _, status := range allStatuses {
				if status == attempt.StatusPendingUnverified {
					continue
				}
				a := newPending(status)
				Expect(paymentPkg.IsVerificationTimedOut(a, submitted.Add(window+time.Hour), window)).To(BeFalse(),
					"status %s", status)
			}
		})

		It("is false when nothing was submitted", func() {
			a := &attempt.PaymentAttempt{Status: attempt.StatusPendingUnverified}
			Expect(paymentPkg.IsVerificationTimedOut(a, submitted.Add(window), window)).To(BeFalse())
		})
	})

	Describe("ClientStatus", func() {
		It("collapses the five internal states into three client statuses", func() {
			Expect(paymentPkg.ClientStatus(attempt.StatusCreatedIntent)).To(Equal(paymentPkg.ClientStatusPending))
			Expect(paymentPkg.ClientStatus(attempt.StatusPendingUnverified)).To(Equal(paymentPkg.ClientStatusPending))
			Expect(paymentPkg.ClientStatus(attempt.StatusCredited)).To(Equal(paymentPkg.ClientStatusConfirmed))
			Expect(paymentPkg.ClientStatus(attempt.StatusRejected)).To(Equal(paymentPkg.ClientStatusFailed))
			Expect(paymentPkg.ClientStatus(attempt.StatusFailed)).To(Equal(paymentPkg.ClientStatusFailed))
		})
	})
})
