package payment

import (
	"time"

	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
)

// Reason codes recorded on rejected/failed attempts. The set is extensible;
// clients must treat unknown codes as generic failures.
const (
	ReasonIntentExpired       = "intent_expired"
	ReasonVerificationExpiry  = "verification_timeout"
	ReasonReceiptNotFound     = "receipt_not_found"
	ReasonTxReverted          = "tx_reverted"
	ReasonSenderMismatch      = "sender_mismatch"
	ReasonWrongToken          = "wrong_token"
	ReasonWrongRecipient      = "wrong_recipient"
	ReasonAmountBelowExpected = "amount_below_expected"
	ReasonAmountAboveMaximum  = "amount_above_maximum"
)

// Client-visible statuses. The five internal states collapse to three so
// internal verification progress is never exposed structurally.
const (
	ClientStatusPending   = "pending_verification"
	ClientStatusConfirmed = "confirmed"
	ClientStatusFailed    = "failed"
)

var validTransitions = map[string]map[string]bool{
	attempt.StatusCreatedIntent: {
		attempt.StatusPendingUnverified: true,
		attempt.StatusFailed:            true,
	},
	attempt.StatusPendingUnverified: {
		attempt.StatusCredited: true,
		attempt.StatusRejected: true,
		attempt.StatusFailed:   true,
	},
}

// IsValidTransition reports whether from -> to is allowed. Final states
// allow nothing, and no state allows a self-transition.
func IsValidTransition(from, to string) bool {
	return validTransitions[from][to]
}

// IsTerminal reports whether no further transition can ever apply.
func IsTerminal(status string) bool {
	switch status {
	case attempt.StatusCredited, attempt.StatusRejected, attempt.StatusFailed:
		return true
	}
	return false
}

// IsValidAmount checks an amount in minor units against inclusive bounds.
func IsValidAmount(amountMinorUnits, min, max int64) bool {
	if amountMinorUnits <= 0 {
		return false
	}
	return amountMinorUnits >= min && amountMinorUnits <= max
}

// IsIntentExpired is true only for a created_intent whose deadline has
// passed. It never mutates the attempt; applying the failed transition is
// the caller's job.
func IsIntentExpired(a *attempt.PaymentAttempt, now time.Time) bool {
	if a.Status != attempt.StatusCreatedIntent || a.ExpiresAt == nil {
		return false
	}
	return !now.Before(*a.ExpiresAt)
}

// IsVerificationTimedOut is true only for a pending_unverified attempt whose
// submission is older than the verification window.
func IsVerificationTimedOut(a *attempt.PaymentAttempt, now time.Time, window time.Duration) bool {
	if a.Status != attempt.StatusPendingUnverified || a.SubmittedAt == nil {
		return false
	}
	return now.Sub(*a.SubmittedAt) >= window
}

// ClientStatus maps an internal status to the coarse external one.
func ClientStatus(status string) string {
	switch status {
	case attempt.StatusCreatedIntent, attempt.StatusPendingUnverified:
		return ClientStatusPending
	case attempt.StatusCredited:
		return ClientStatusConfirmed
	default:
		return ClientStatusFailed
	}
}
