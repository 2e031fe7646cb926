package payment

import (
	"encoding/json"
	"strconv"
	"time"

	apperrors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
)

// CreateIntentRequest opens a payment attempt. The amount arrives as a JSON
// number but is only accepted as a whole number of minor units; fractions,
// NaN and the like never reach the engine.
type CreateIntentRequest struct {
	AmountMinorUnits json.Number `json:"amount_minor_units"`
	FromAddress      string      `json:"from_address"`
}

func (r *CreateIntentRequest) Validate() (int64, error) {
	raw := r.AmountMinorUnits.String()
	if raw == "" {
		return 0, apperrors.NewValidationFieldError("amount_minor_units", "amount_minor_units is required", apperrors.ErrCodeInvalidAmount)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationFieldError("amount_minor_units", "amount must be an integer in minor units", apperrors.ErrCodeInvalidAmount)
	}
	if amount <= 0 {
		return 0, apperrors.NewValidationFieldError("amount_minor_units", "amount must be positive", apperrors.ErrCodeInvalidAmount)
	}
	if !apperrors.IsHexAddress(r.FromAddress) {
		return 0, apperrors.NewValidationFieldError("from_address", "from_address must be a 0x-prefixed 20-byte hex address", apperrors.ErrCodeInvalidAddress)
	}
	return amount, nil
}

// SubmitTxHashRequest binds an observed transaction hash to an attempt.
type SubmitTxHashRequest struct {
	TxHash string `json:"tx_hash"`
}

func (r *SubmitTxHashRequest) Validate() error {
	if !apperrors.IsTxHash(r.TxHash) {
		return apperrors.NewValidationFieldError("tx_hash", "tx_hash must be a 0x-prefixed 32-byte hex hash", apperrors.ErrCodeInvalidTxHash)
	}
	return nil
}

// IntentResponse is the render of an attempt returned by create/submit.
type IntentResponse struct {
	AttemptID        string     `json:"attempt_id"`
	Status           string     `json:"status"`
	ReasonCode       *string    `json:"reason_code,omitempty"`
	AmountMinorUnits int64      `json:"amount_minor_units"`
	AmountRaw        string     `json:"amount_raw"`
	ChainID          int64      `json:"chain_id"`
	TokenAddress     string     `json:"token_address"`
	DepositAddress   string     `json:"deposit_address"`
	TxHash           *string    `json:"tx_hash,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

func intentResponseFrom(a *attempt.PaymentAttempt) *IntentResponse {
	return &IntentResponse{
		AttemptID:        a.ID,
		Status:           ClientStatus(a.Status),
		ReasonCode:       a.ErrorCode,
		AmountMinorUnits: a.AmountMinorUnits,
		AmountRaw:        a.AmountRaw,
		ChainID:          a.ChainID,
		TokenAddress:     a.TokenAddress,
		DepositAddress:   a.ToAddress,
		TxHash:           a.TxHash,
		ExpiresAt:        a.ExpiresAt,
	}
}

// StatusResult is the poll response: the coarse client status plus a stable
// reason code when the attempt ended badly.
type StatusResult struct {
	AttemptID        string  `json:"attempt_id"`
	Status           string  `json:"status"`
	ReasonCode       *string `json:"reason_code,omitempty"`
	AmountMinorUnits int64   `json:"amount_minor_units"`
	TxHash           *string `json:"tx_hash,omitempty"`
}

func statusResultFrom(a *attempt.PaymentAttempt) *StatusResult {
	return &StatusResult{
		AttemptID:        a.ID,
		Status:           ClientStatus(a.Status),
		ReasonCode:       a.ErrorCode,
		AmountMinorUnits: a.AmountMinorUnits,
		TxHash:           a.TxHash,
	}
}
