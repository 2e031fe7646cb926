package payment_test

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentPkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

var _ = Describe("Converter", func() {
	Describe("NewConverter", func() {
		It("rejects tokens with fewer than two decimals", func() {
			_, err := paymentPkg.NewConverter(1)
			Expect(err).To(HaveOccurred())

			_, err = paymentPkg.NewConverter(0)
			Expect(err).To(HaveOccurred())
		})

		It("accepts two decimals as the lower bound", func() {
			_, err := paymentPkg.NewConverter(2)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("with a 6-decimal token", func() {
		var converter *paymentPkg.Converter

		BeforeEach(func() {
			var err error
			converter, err = paymentPkg.NewConverter(6)
			Expect(err).ToNot(HaveOccurred())
		})

		It("scales one cent to 10,000 raw units", func() {
			Expect(converter.RawFromMinorUnits(1).String()).To(Equal("10000"))
		})

		It("scales one dollar to 1,000,000 raw units", func() {
			Expect(converter.RawFromMinorUnits(100).String()).To(Equal("1000000"))
		})

		It("round-trips the boundary and mid-range values exactly", func() {
			for _, amount := range []int64{1, 100, 52345, 1000000} {
				raw := converter.RawFromMinorUnits(amount)
				back, err := converter.MinorUnitsFromRaw(raw)
				Expect(err).ToNot(HaveOccurred())
				Expect(back).To(Equal(amount), "round trip of %d", amount)
			}
		})

		It("round-trips starting from raw units", func() {
			raw := big.NewInt(250000)
			minor, err := converter.MinorUnitsFromRaw(raw)
			Expect(err).ToNot(HaveOccurred())
			Expect(minor).To(Equal(int64(25)))
			Expect(converter.RawFromMinorUnits(minor).Cmp(raw)).To(Equal(0))
		})

		It("refuses raw amounts that are not whole minor units", func() {
			_, err := converter.MinorUnitsFromRaw(big.NewInt(10001))
			Expect(err).To(HaveOccurred())
		})

		It("refuses raw amounts that overflow int64 minor units", func() {
			huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
			_, err := converter.MinorUnitsFromRaw(huge)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("with a 2-decimal token", func() {
		It("maps minor units one-to-one onto raw units", func() {
			converter, err := paymentPkg.NewConverter(2)
			Expect(err).ToNot(HaveOccurred())
			Expect(converter.RawFromMinorUnits(12345).String()).To(Equal("12345"))

			back, err := converter.MinorUnitsFromRaw(big.NewInt(12345))
			Expect(err).ToNot(HaveOccurred())
			Expect(back).To(Equal(int64(12345)))
		})
	})

	Describe("with an 18-decimal token", func() {
		It("keeps exactness at large scale", func() {
			converter, err := paymentPkg.NewConverter(18)
			Expect(err).ToNot(HaveOccurred())

			raw := converter.RawFromMinorUnits(1000000)
			expected, ok := new(big.Int).SetString("10000000000000000000000", 10)
			Expect(ok).To(BeTrue())
			Expect(raw.Cmp(expected)).To(Equal(0))

			back, err := converter.MinorUnitsFromRaw(raw)
			Expect(err).ToNot(HaveOccurred())
			Expect(back).To(Equal(int64(1000000)))
		})
	})
})
