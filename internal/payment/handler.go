package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/auth"
	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
	"github.com/frahmantamala/crypto-settlement/internal/transport"
)

type ServiceAPI interface {
	CreateIntent(accountID string, amountMinorUnits int64, fromAddress string) (*attempt.PaymentAttempt, error)
	SubmitTxHash(accountID, attemptID, txHash string) (*attempt.PaymentAttempt, error)
	GetStatus(ctx context.Context, accountID, attemptID string) (*StatusResult, error)
}

type Handler struct {
	transport.BaseHandler
	PaymentService ServiceAPI
	Logger         *slog.Logger
}

func NewHandler(paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    transport.BaseHandler{Logger: logger},
		PaymentService: paymentService,
		Logger:         logger,
	}
}

// CreateIntent handles POST /api/v1/payments/intents
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		h.Logger.Error("CreateIntent: account not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateIntent: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	amountMinorUnits, err := req.Validate()
	if err != nil {
		h.Logger.Error("CreateIntent: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.PaymentService.CreateIntent(account.ID, amountMinorUnits, req.FromAddress)
	if err != nil {
		h.Logger.Error("CreateIntent: service error", "error", err, "account_id", account.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateIntent: intent created",
		"attempt_id", a.ID,
		"account_id", account.ID,
		"amount_minor_units", amountMinorUnits)

	h.WriteJSON(w, http.StatusCreated, intentResponseFrom(a))
}

// SubmitTxHash handles POST /api/v1/payments/intents/{id}/transaction
func (h *Handler) SubmitTxHash(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		h.Logger.Error("SubmitTxHash: account not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	attemptID := chi.URLParam(r, "id")

	var req SubmitTxHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("SubmitTxHash: failed to parse request body", "error", err, "attempt_id", attemptID)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := req.Validate(); err != nil {
		h.Logger.Error("SubmitTxHash: validation error", "error", err, "attempt_id", attemptID)
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.PaymentService.SubmitTxHash(account.ID, attemptID, req.TxHash)
	if err != nil {
		h.Logger.Error("SubmitTxHash: service error",
			"error", err,
			"attempt_id", attemptID,
			"account_id", account.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SubmitTxHash: hash submitted",
		"attempt_id", attemptID,
		"account_id", account.ID)

	h.WriteJSON(w, http.StatusOK, intentResponseFrom(a))
}

// GetStatus handles GET /api/v1/payments/intents/{id}
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		h.Logger.Error("GetStatus: account not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	attemptID := chi.URLParam(r, "id")

	result, err := h.PaymentService.GetStatus(r.Context(), account.ID, attemptID)
	if err != nil {
		h.Logger.Error("GetStatus: service error",
			"error", err,
			"attempt_id", attemptID,
			"account_id", account.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
