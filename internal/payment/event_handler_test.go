package payment_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/crypto-settlement/internal/core/events"
	paymentPkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

type notifiedOutcome struct {
	accountID        string
	attemptID        string
	amountMinorUnits int64
	txHash           string
	reasonCode       string
}

type mockNotifier struct {
	credited    []notifiedOutcome
	notCredited []notifiedOutcome
	err         error
}

func (m *mockNotifier) NotifyCredited(ctx context.Context, accountID, attemptID string, amountMinorUnits int64, txHash string) error {
	if m.err != nil {
		return m.err
	}
	m.credited = append(m.credited, notifiedOutcome{
		accountID:        accountID,
		attemptID:        attemptID,
		amountMinorUnits: amountMinorUnits,
		txHash:           txHash,
	})
	return nil
}

func (m *mockNotifier) NotifyNotCredited(ctx context.Context, accountID, attemptID, reasonCode string) error {
	if m.err != nil {
		return m.err
	}
	m.notCredited = append(m.notCredited, notifiedOutcome{
		accountID:  accountID,
		attemptID:  attemptID,
		reasonCode: reasonCode,
	})
	return nil
}

var _ = Describe("Settlement EventHandler", func() {
	var (
		ctx      context.Context
		bus      *events.EventBus
		notifier *mockNotifier
		handler  *paymentPkg.EventHandler
	)

	BeforeEach(func() {
		ctx = context.Background()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		bus = events.NewEventBus(log)
		notifier = &mockNotifier{}
		handler = paymentPkg.NewEventHandler(notifier, log)
		handler.RegisterEventHandlers(bus)
	})

	It("notifies the account when a credited event comes off the bus", func() {
		ev := events.NewPaymentCreditedEvent("attempt-1", "acct-1", 5000, testTxHash)

		Expect(bus.PublishSync(ctx, ev)).To(Succeed())

		Expect(notifier.credited).To(HaveLen(1))
		Expect(notifier.credited[0].accountID).To(Equal("acct-1"))
		Expect(notifier.credited[0].attemptID).To(Equal("attempt-1"))
		Expect(notifier.credited[0].amountMinorUnits).To(Equal(int64(5000)))
		Expect(notifier.credited[0].txHash).To(Equal(testTxHash))
	})

	It("forwards the reason code when a rejected event comes off the bus", func() {
		ev := events.NewPaymentRejectedEvent("attempt-1", "acct-1", paymentPkg.ReasonSenderMismatch, testTxHash)

		Expect(bus.PublishSync(ctx, ev)).To(Succeed())

		Expect(notifier.notCredited).To(HaveLen(1))
		Expect(notifier.notCredited[0].reasonCode).To(Equal(paymentPkg.ReasonSenderMismatch))
	})

	It("forwards the reason code when a failed event comes off the bus", func() {
		ev := events.NewPaymentFailedEvent("attempt-1", "acct-1", paymentPkg.ReasonTxReverted)

		Expect(bus.PublishSync(ctx, ev)).To(Succeed())

		Expect(notifier.notCredited).To(HaveLen(1))
		Expect(notifier.notCredited[0].reasonCode).To(Equal(paymentPkg.ReasonTxReverted))
	})

	It("rejects an event of the wrong concrete type", func() {
		err := handler.HandlePaymentCredited(ctx, events.NewPaymentFailedEvent("attempt-1", "acct-1", paymentPkg.ReasonTxReverted))

		Expect(err).To(HaveOccurred())
		Expect(notifier.credited).To(BeEmpty())
	})

	It("surfaces a notifier failure through synchronous publishing", func() {
		notifier.err = fmt.Errorf("webhook endpoint unreachable")
		ev := events.NewPaymentCreditedEvent("attempt-1", "acct-1", 5000, testTxHash)

		Expect(bus.PublishSync(ctx, ev)).ToNot(Succeed())
	})
})
