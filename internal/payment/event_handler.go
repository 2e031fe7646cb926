package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/crypto-settlement/internal/core/events"
)

// Notifier receives the terminal outcome of a payment attempt so the
// account holder can be told what happened to their transfer. The default
// implementation writes a structured audit line; a deployment can swap in
// a webhook or mail sender without touching the settlement path.
type Notifier interface {
	NotifyCredited(ctx context.Context, accountID, attemptID string, amountMinorUnits int64, txHash string) error
	NotifyNotCredited(ctx context.Context, accountID, attemptID, reasonCode string) error
}

// LogNotifier is the audit-log Notifier used when no outbound channel is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyCredited(ctx context.Context, accountID, attemptID string, amountMinorUnits int64, txHash string) error {
	n.logger.Info("account notified: payment credited",
		"account_id", accountID,
		"attempt_id", attemptID,
		"amount_minor_units", amountMinorUnits,
		"tx_hash", txHash)
	return nil
}

func (n *LogNotifier) NotifyNotCredited(ctx context.Context, accountID, attemptID, reasonCode string) error {
	n.logger.Info("account notified: payment not credited",
		"account_id", accountID,
		"attempt_id", attemptID,
		"reason_code", reasonCode)
	return nil
}

// EventHandler consumes terminal settlement events off the bus and forwards
// them to the notifier. Delivery is best-effort; settlement has already
// committed by the time these run.
type EventHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewEventHandler(notifier Notifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		notifier: notifier,
		logger:   logger,
	}
}

func (h *EventHandler) HandlePaymentCredited(ctx context.Context, event events.Event) error {
	credited, ok := event.(*events.PaymentCreditedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment credited", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCreditedEvent, got %T", event)
	}

	h.logger.Info("handling payment credited event",
		"attempt_id", credited.AttemptID,
		"account_id", credited.AccountID)

	if err := h.notifier.NotifyCredited(ctx, credited.AccountID, credited.AttemptID, credited.AmountMinorUnits, credited.TxHash); err != nil {
		return fmt.Errorf("failed to notify credited payment: %w", err)
	}
	return nil
}

func (h *EventHandler) HandlePaymentRejected(ctx context.Context, event events.Event) error {
	rejected, ok := event.(*events.PaymentRejectedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment rejected", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentRejectedEvent, got %T", event)
	}

	h.logger.Info("handling payment rejected event",
		"attempt_id", rejected.AttemptID,
		"account_id", rejected.AccountID,
		"reason_code", rejected.ReasonCode)

	if err := h.notifier.NotifyNotCredited(ctx, rejected.AccountID, rejected.AttemptID, rejected.ReasonCode); err != nil {
		return fmt.Errorf("failed to notify rejected payment: %w", err)
	}
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.logger.Info("handling payment failed event",
		"attempt_id", failed.AttemptID,
		"account_id", failed.AccountID,
		"reason_code", failed.ReasonCode)

	if err := h.notifier.NotifyNotCredited(ctx, failed.AccountID, failed.AttemptID, failed.ReasonCode); err != nil {
		return fmt.Errorf("failed to notify failed payment: %w", err)
	}
	return nil
}

// RegisterEventHandlers subscribes the handler to every terminal settlement
// event type.
func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCredited, h.HandlePaymentCredited)
	eventBus.Subscribe(events.EventTypePaymentRejected, h.HandlePaymentRejected)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)

	h.logger.Info("settlement event handlers registered",
		"handlers", []string{
			events.EventTypePaymentCredited,
			events.EventTypePaymentRejected,
			events.EventTypePaymentFailed,
		})
}
