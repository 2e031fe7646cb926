package postgres

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
	ledgermodel "github.com/frahmantamala/crypto-settlement/internal/core/datamodel/ledger"
	paymentpkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) paymentpkg.Repository {
	return &AttemptRepository{
		db: db,
	}
}

func (r *AttemptRepository) Create(a *attempt.PaymentAttempt, ev *attempt.PaymentEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(a).Error; err != nil {
			return err
		}
		ev.Sequence = 1
		return tx.Create(ev).Error
	})
}

// GetByIDForAccount scopes the lookup to the owner in the query itself, so
// an attempt owned by another account is indistinguishable from a missing
// one. Both cases come back as (nil, nil); an error means the store itself
// failed.
func (r *AttemptRepository) GetByIDForAccount(id, accountID string) (*attempt.PaymentAttempt, error) {
	var a attempt.PaymentAttempt
	err := r.db.Where("id = ? AND account_id = ?", id, accountID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) GetByChainTxHash(chainID int64, txHash string) (*attempt.PaymentAttempt, error) {
	var a attempt.PaymentAttempt
	err := r.db.Where("chain_id = ? AND tx_hash = ?", chainID, txHash).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateWithEvent writes the attempt and appends one audit event in a single
// transaction. The update is conditioned on the status the caller read; if
// the row moved underneath, nothing is written and a stale-state conflict
// comes back.
func (r *AttemptRepository) UpdateWithEvent(a *attempt.PaymentAttempt, fromStatus string, ev *attempt.PaymentEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.updateGuarded(tx, a, fromStatus); err != nil {
			return err
		}
		return r.appendEvent(tx, ev)
	})
}

// Settle commits the credited transition, its audit event and the ledger
// credit as one unit. The credit insert is idempotent on idempotency_key so
// retrying after a crash cannot double-credit.
func (r *AttemptRepository) Settle(a *attempt.PaymentAttempt, fromStatus string, ev *attempt.PaymentEvent, credit *ledgermodel.Credit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.updateGuarded(tx, a, fromStatus); err != nil {
			return err
		}
		if err := r.appendEvent(tx, ev); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(credit).Error
	})
}

func (r *AttemptRepository) ListOpen(limit int) ([]*attempt.PaymentAttempt, error) {
	var attempts []*attempt.PaymentAttempt
	err := r.db.
		Where("status IN ?", []string{attempt.StatusCreatedIntent, attempt.StatusPendingUnverified}).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) updateGuarded(tx *gorm.DB, a *attempt.PaymentAttempt, fromStatus string) error {
	updates := map[string]interface{}{
		"status":                 a.Status,
		"tx_hash":                a.TxHash,
		"error_code":             a.ErrorCode,
		"expires_at":             a.ExpiresAt,
		"submitted_at":           a.SubmittedAt,
		"last_verify_attempt_at": a.LastVerifyAttemptAt,
		"verify_attempt_count":   a.VerifyAttemptCount,
		"updated_at":             time.Now().UTC(),
	}

	res := tx.Model(&attempt.PaymentAttempt{}).
		Where("id = ? AND status = ?", a.ID, fromStatus).
		Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return apperrors.ErrTxHashInUse
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NewConflictError("attempt state changed concurrently", apperrors.ErrCodeStaleAttemptState)
	}
	return nil
}

// appendEvent assigns the next per-attempt sequence inside the caller's
// transaction, keeping the audit log gap-free under concurrent writers.
func (r *AttemptRepository) appendEvent(tx *gorm.DB, ev *attempt.PaymentEvent) error {
	var maxSeq int
	err := tx.Model(&attempt.PaymentEvent{}).
		Where("attempt_id = ?", ev.AttemptID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return err
	}
	ev.Sequence = maxSeq + 1
	return tx.Create(ev).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
