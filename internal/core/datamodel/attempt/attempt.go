package attempt

import (
	"time"
)

// Attempt status values. Credited, rejected and failed are final: once an
// attempt reaches one of them no further transition is valid.
const (
	StatusCreatedIntent     = "created_intent"
	StatusPendingUnverified = "pending_unverified"
	StatusCredited          = "credited"
	StatusRejected          = "rejected"
	StatusFailed            = "failed"
)

// PaymentAttempt is the aggregate root for a single on-chain payment.
// AmountRaw is always derived from AmountMinorUnits through the conversion
// functions, never written independently. TxHash is set exactly when the
// attempt has left created_intent; ExpiresAt is set exactly while it has not.
type PaymentAttempt struct {
	ID                  string     `gorm:"primaryKey;column:id"`
	AccountID           string     `gorm:"column:account_id;not null;index"`
	FromAddress         string     `gorm:"column:from_address;not null"`
	ChainID             int64      `gorm:"column:chain_id;not null"`
	TokenAddress        string     `gorm:"column:token_address;not null"`
	ToAddress           string     `gorm:"column:to_address;not null"`
	AmountRaw           string     `gorm:"column:amount_raw;not null"`
	AmountMinorUnits    int64      `gorm:"column:amount_minor_units;not null"`
	Status              string     `gorm:"column:status;not null;default:created_intent"`
	TxHash              *string    `gorm:"column:tx_hash"`
	ErrorCode           *string    `gorm:"column:error_code"`
	ExpiresAt           *time.Time `gorm:"column:expires_at"`
	SubmittedAt         *time.Time `gorm:"column:submitted_at"`
	LastVerifyAttemptAt *time.Time `gorm:"column:last_verify_attempt_at"`
	VerifyAttemptCount  int        `gorm:"column:verify_attempt_count;not null;default:0"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

// Audit event types appended alongside attempt mutations.
const (
	EventIntentCreated   = "intent_created"
	EventHashSubmitted   = "hash_submitted"
	EventVerifyAttempted = "verify_attempted"
	EventStatusChanged   = "status_changed"
)

// PaymentEvent is one append-only audit row. Rows are never updated or
// deleted; Sequence is assigned per attempt inside the same transaction
// as the mutation it records.
type PaymentEvent struct {
	ID         int64     `gorm:"primaryKey"`
	AttemptID  string    `gorm:"column:attempt_id;not null;index:idx_payment_events_attempt_seq,unique"`
	Sequence   int       `gorm:"column:sequence;not null;index:idx_payment_events_attempt_seq,unique"`
	EventType  string    `gorm:"column:event_type;not null"`
	FromStatus *string   `gorm:"column:from_status"`
	ToStatus   *string   `gorm:"column:to_status"`
	Detail     *string   `gorm:"column:detail"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
