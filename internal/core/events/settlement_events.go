package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCredited = "payment.credited"
	EventTypePaymentRejected = "payment.rejected"
	EventTypePaymentFailed   = "payment.failed"
)

type PaymentCreditedEvent struct {
	BaseEvent
	AttemptID        string `json:"attempt_id"`
	AccountID        string `json:"account_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	TxHash           string `json:"tx_hash"`
}

func NewPaymentCreditedEvent(attemptID, accountID string, amountMinorUnits int64, txHash string) *PaymentCreditedEvent {
	return &PaymentCreditedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCredited,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"attempt_id":         attemptID,
				"account_id":         accountID,
				"amount_minor_units": amountMinorUnits,
				"tx_hash":            txHash,
			},
		},
		AttemptID:        attemptID,
		AccountID:        accountID,
		AmountMinorUnits: amountMinorUnits,
		TxHash:           txHash,
	}
}

type PaymentRejectedEvent struct {
	BaseEvent
	AttemptID  string `json:"attempt_id"`
	AccountID  string `json:"account_id"`
	ReasonCode string `json:"reason_code"`
	TxHash     string `json:"tx_hash"`
}

func NewPaymentRejectedEvent(attemptID, accountID, reasonCode, txHash string) *PaymentRejectedEvent {
	return &PaymentRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"attempt_id":  attemptID,
				"account_id":  accountID,
				"reason_code": reasonCode,
				"tx_hash":     txHash,
			},
		},
		AttemptID:  attemptID,
		AccountID:  accountID,
		ReasonCode: reasonCode,
		TxHash:     txHash,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	AttemptID  string `json:"attempt_id"`
	AccountID  string `json:"account_id"`
	ReasonCode string `json:"reason_code"`
}

func NewPaymentFailedEvent(attemptID, accountID, reasonCode string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"attempt_id":  attemptID,
				"account_id":  accountID,
				"reason_code": reasonCode,
			},
		},
		AttemptID:  attemptID,
		AccountID:  accountID,
		ReasonCode: reasonCode,
	}
}
