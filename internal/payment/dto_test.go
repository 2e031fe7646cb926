package payment_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/crypto-settlement/internal"
	paymentPkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

var _ = Describe("Request Validation", func() {
	Describe("CreateIntentRequest", func() {
		newRequest := func(amount, from string) *paymentPkg.CreateIntentRequest {
			return &paymentPkg.CreateIntentRequest{
				AmountMinorUnits: json.Number(amount),
				FromAddress:      from,
			}
		}

		It("accepts a whole amount and a 0x-prefixed sender address", func() {
			amount, err := newRequest("5000", testSenderAddress).Validate()

			Expect(err).ToNot(HaveOccurred())
			Expect(amount).To(Equal(int64(5000)))
		})

		It("accepts mixed-case hex in the sender address", func() {
			_, err := newRequest("5000", "0xA0b86991c6218B36c1d19D4a2e9Eb0cE3606eB48").Validate()

			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects a sender address without the 0x prefix", func() {
			_, err := newRequest("5000", "2222222222222222222222222222222222222222").Validate()

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidAddress))
		})

		It("rejects a sender address of the wrong length", func() {
			_, err := newRequest("5000", "0x2222").Validate()

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidAddress))
		})

		It("rejects non-hex characters in the sender address", func() {
			_, err := newRequest("5000", "0xzz22222222222222222222222222222222222222").Validate()

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidAddress))
		})

		It("rejects fractional amounts", func() {
			_, err := newRequest("50.5", testSenderAddress).Validate()

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidAmount))
		})
	})

	Describe("SubmitTxHashRequest", func() {
		It("accepts a 0x-prefixed 32-byte hash", func() {
			r := &paymentPkg.SubmitTxHashRequest{TxHash: testTxHash}

			Expect(r.Validate()).To(Succeed())
		})

		It("rejects a hash without the 0x prefix", func() {
			r := &paymentPkg.SubmitTxHashRequest{TxHash: strings.TrimPrefix(testTxHash, "0x")}

			err := r.Validate()
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidTxHash))
		})

		It("rejects a hash of the wrong length", func() {
			r := &paymentPkg.SubmitTxHashRequest{TxHash: "0xabcdef"}

			err := r.Validate()
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidTxHash))
		})
	})
})
