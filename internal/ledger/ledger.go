package ledger

import (
	"fmt"
	"log/slog"

	ledgermodel "github.com/frahmantamala/crypto-settlement/internal/core/datamodel/ledger"
)

// Repository interface for ledger credit persistence
type Repository interface {
	// Insert appends a credit row. It reports false without error when a
	// credit with the same idempotency key already exists.
	Insert(credit *ledgermodel.Credit) (bool, error)
	SumForAccount(accountID string) (int64, error)
}

// Service exposes the narrow credit interface the settlement engine and the
// read side consume. Credit is idempotent on the key: retrying a settlement
// that already committed its ledger write is a no-op.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) Credit(accountID string, amountMinorUnits int64, idempotencyKey, reason string) error {
	inserted, err := s.repo.Insert(&ledgermodel.Credit{
		AccountID:        accountID,
		AmountMinorUnits: amountMinorUnits,
		IdempotencyKey:   idempotencyKey,
		Reason:           reason,
	})
	if err != nil {
		s.logger.Error("failed to insert ledger credit",
			"error", err,
			"account_id", accountID,
			"idempotency_key", idempotencyKey)
		return fmt.Errorf("insert ledger credit: %w", err)
	}

	if !inserted {
		s.logger.Info("ledger credit already applied, skipping",
			"account_id", accountID,
			"idempotency_key", idempotencyKey)
		return nil
	}

	s.logger.Info("ledger credit applied",
		"account_id", accountID,
		"amount_minor_units", amountMinorUnits,
		"idempotency_key", idempotencyKey,
		"reason", reason)
	return nil
}

// BalanceFor sums all credits for an account.
func (s *Service) BalanceFor(accountID string) (int64, error) {
	balance, err := s.repo.SumForAccount(accountID)
	if err != nil {
		s.logger.Error("failed to read balance", "error", err, "account_id", accountID)
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}
