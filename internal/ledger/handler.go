package ledger

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/auth"
	"github.com/frahmantamala/crypto-settlement/internal/transport"
)

type ServiceAPI interface {
	BalanceFor(accountID string) (int64, error)
}

type Handler struct {
	transport.BaseHandler
	LedgerService ServiceAPI
	Logger        *slog.Logger
}

func NewHandler(ledgerService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:   transport.BaseHandler{Logger: logger},
		LedgerService: ledgerService,
		Logger:        logger,
	}
}

type BalanceResponse struct {
	AccountID         string `json:"account_id"`
	BalanceMinorUnits int64  `json:"balance_minor_units"`
}

// GetBalance handles GET /api/v1/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		h.Logger.Error("GetBalance: account not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	balance, err := h.LedgerService.BalanceFor(account.ID)
	if err != nil {
		h.Logger.Error("GetBalance: service error", "error", err, "account_id", account.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BalanceResponse{
		AccountID:         account.ID,
		BalanceMinorUnits: balance,
	})
}
