package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ledgermodel "github.com/frahmantamala/crypto-settlement/internal/core/datamodel/ledger"
	ledgerpkg "github.com/frahmantamala/crypto-settlement/internal/ledger"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledgerpkg.Repository {
	return &LedgerRepository{
		db: db,
	}
}

// Insert appends a credit row, relying on the unique index on
// idempotency_key. A conflicting key is skipped, not an error.
func (r *LedgerRepository) Insert(credit *ledgermodel.Credit) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(credit)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *LedgerRepository) SumForAccount(accountID string) (int64, error) {
	var balance int64
	err := r.db.Model(&ledgermodel.Credit{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount_minor_units), 0)").
		Scan(&balance).Error
	return balance, err
}
