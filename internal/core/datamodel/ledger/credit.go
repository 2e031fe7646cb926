package ledger

import (
	"time"
)

// Credit is one immutable ledger row adding spendable balance to an account.
// IdempotencyKey carries the unique index that makes repeated settlement of
// the same attempt a no-op.
type Credit struct {
	ID               int64     `gorm:"primaryKey"`
	AccountID        string    `gorm:"column:account_id;not null;index"`
	AmountMinorUnits int64     `gorm:"column:amount_minor_units;not null"`
	IdempotencyKey   string    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Reason           string    `gorm:"column:reason;not null"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (Credit) TableName() string {
	return "ledger_credits"
}
