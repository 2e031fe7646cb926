package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/chainverifier"
	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
	ledgermodel "github.com/frahmantamala/crypto-settlement/internal/core/datamodel/ledger"
	"github.com/frahmantamala/crypto-settlement/internal/core/events"
)

const creditReasonOnchainPayment = "onchain_payment"

// Repository interface for attempt persistence. Lookups are scoped to the
// owning account at the query layer: an attempt owned by someone else is
// reported exactly like a missing one.
type Repository interface {
	Create(a *attempt.PaymentAttempt, ev *attempt.PaymentEvent) error
	// GetByIDForAccount returns (nil, nil) when the attempt does not exist
	// or belongs to another account; a non-nil error is a storage failure.
	GetByIDForAccount(id, accountID string) (*attempt.PaymentAttempt, error)
	// GetByChainTxHash returns (nil, nil) when no attempt on the chain has
	// the hash bound.
	GetByChainTxHash(chainID int64, txHash string) (*attempt.PaymentAttempt, error)
	// UpdateWithEvent persists the attempt and appends one audit event in a
	// single transaction, guarded on the status the caller read (the write
	// fails with a stale-state error if the row moved underneath).
	UpdateWithEvent(a *attempt.PaymentAttempt, fromStatus string, ev *attempt.PaymentEvent) error
	// Settle is UpdateWithEvent plus the idempotent ledger credit insert,
	// all inside one transaction.
	Settle(a *attempt.PaymentAttempt, fromStatus string, ev *attempt.PaymentEvent, credit *ledgermodel.Credit) error
	ListOpen(limit int) ([]*attempt.PaymentAttempt, error)
}

// EventPublisher interface for terminal-state notifications.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Config carries the per-deployment tuning for the engine. All values come
// from configuration at construction.
type Config struct {
	MinAmountMinorUnits int64
	MaxAmountMinorUnits int64
	IntentTTL           time.Duration
	VerifyTimeout       time.Duration
	VerifyThrottle      time.Duration
	MinConfirmations    uint64
	ChainID             int64
	TokenAddress        string
	DepositAddress      string
}

// Service drives a payment attempt from intent creation through on-chain
// verification to settlement or terminal failure. Every operation takes the
// owning account id explicitly; nothing is read from ambient state.
type Service struct {
	repo      Repository
	verifier  chainverifier.Verifier
	eventBus  EventPublisher
	converter *Converter
	cfg       Config
	logger    *slog.Logger
}

func NewService(repo Repository, verifier chainverifier.Verifier, eventBus EventPublisher, converter *Converter, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		verifier:  verifier,
		eventBus:  eventBus,
		converter: converter,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateIntent opens a new attempt in created_intent with a short expiry.
// fromAddress is the connected wallet and becomes the only sender this
// attempt will ever accept.
func (s *Service) CreateIntent(accountID string, amountMinorUnits int64, fromAddress string) (*attempt.PaymentAttempt, error) {
	if err := s.validateAmount(amountMinorUnits); err != nil {
		s.logger.Error("intent amount validation failed",
			"error", err,
			"account_id", accountID,
			"amount_minor_units", amountMinorUnits)
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.IntentTTL)

	a := &attempt.PaymentAttempt{
		ID:               uuid.New().String(),
		AccountID:        accountID,
		FromAddress:      fromAddress,
		ChainID:          s.cfg.ChainID,
		TokenAddress:     s.cfg.TokenAddress,
		ToAddress:        s.cfg.DepositAddress,
		AmountRaw:        s.converter.RawFromMinorUnits(amountMinorUnits).String(),
		AmountMinorUnits: amountMinorUnits,
		Status:           attempt.StatusCreatedIntent,
		ExpiresAt:        &expiresAt,
	}

	ev := &attempt.PaymentEvent{
		AttemptID: a.ID,
		EventType: attempt.EventIntentCreated,
		ToStatus:  strPtr(attempt.StatusCreatedIntent),
	}

	if err := s.repo.Create(a, ev); err != nil {
		s.logger.Error("failed to create payment attempt", "error", err, "account_id", accountID)
		return nil, errors.NewInternalError("failed to create payment attempt", err)
	}

	s.logger.Info("payment intent created",
		"attempt_id", a.ID,
		"account_id", accountID,
		"amount_minor_units", amountMinorUnits,
		"from_address", fromAddress,
		"expires_at", expiresAt)

	return a, nil
}

// SubmitTxHash binds the caller-observed transaction hash to the attempt and
// moves it to pending_unverified. Re-submitting the identical hash is a
// no-op; a hash already bound to another attempt on this chain is a conflict.
func (s *Service) SubmitTxHash(accountID, attemptID, txHash string) (*attempt.PaymentAttempt, error) {
	a, err := s.loadOwned(attemptID, accountID)
	if err != nil {
		return nil, err
	}

	txHash = strings.ToLower(strings.TrimSpace(txHash))

	if IsTerminal(a.Status) {
		s.logger.Warn("hash submitted for final attempt",
			"attempt_id", attemptID,
			"status", a.Status)
		return nil, errors.ErrAttemptAlreadyFinal
	}

	now := time.Now().UTC()
	if IsIntentExpired(a, now) {
		if err := s.finalize(context.Background(), a, attempt.StatusFailed, ReasonIntentExpired); err != nil {
			return nil, err
		}
		return a, nil
	}

	if a.TxHash != nil {
		if strings.EqualFold(*a.TxHash, txHash) {
			// Idempotent retry: same hash, same attempt. No new event.
			return a, nil
		}
		s.logger.Warn("attempt already has a different hash bound",
			"attempt_id", attemptID,
			"bound_hash", *a.TxHash)
		return nil, errors.NewConflictError("a transaction hash is already bound to this attempt", errors.ErrCodeTxHashInUse)
	}

	existing, err := s.repo.GetByChainTxHash(s.cfg.ChainID, txHash)
	if err != nil {
		s.logger.Error("hash conflict lookup failed", "error", err, "attempt_id", attemptID)
		return nil, errors.NewInternalError("failed to check transaction hash", err)
	}
	if existing != nil && existing.ID != a.ID {
		s.logger.Warn("transaction hash already bound to another attempt",
			"attempt_id", attemptID,
			"conflicting_attempt_id", existing.ID,
			"tx_hash", txHash)
		return nil, errors.ErrTxHashInUse
	}

	fromStatus := a.Status
	a.TxHash = &txHash
	a.SubmittedAt = &now
	a.ExpiresAt = nil
	a.Status = attempt.StatusPendingUnverified

	ev := &attempt.PaymentEvent{
		AttemptID:  a.ID,
		EventType:  attempt.EventHashSubmitted,
		FromStatus: strPtr(fromStatus),
		ToStatus:   strPtr(attempt.StatusPendingUnverified),
		Detail:     strPtr(txHash),
	}

	// The partial unique index on (chain_id, tx_hash) is the final arbiter;
	// the lookup above only gives the friendlier error on the common path.
	if err := s.repo.UpdateWithEvent(a, fromStatus, ev); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to bind transaction hash", "error", err, "attempt_id", attemptID)
		return nil, errors.NewInternalError("failed to bind transaction hash", err)
	}

	s.logger.Info("transaction hash bound",
		"attempt_id", a.ID,
		"account_id", accountID,
		"tx_hash", txHash)

	return a, nil
}

// GetStatus reports the client-visible status, lazily advancing the attempt
// first: cheap deadline checks always run, the chain verifier only when the
// per-attempt throttle window has elapsed.
func (s *Service) GetStatus(ctx context.Context, accountID, attemptID string) (*StatusResult, error) {
	a, err := s.loadOwned(attemptID, accountID)
	if err != nil {
		return nil, err
	}

	if !IsTerminal(a.Status) {
		if err := s.advance(ctx, a); err != nil {
			// A failed advance never hides the durable state from the
			// caller; the attempt simply stays where it was.
			s.logger.Warn("attempt advance failed, serving stored state",
				"error", err,
				"attempt_id", a.ID,
				"status", a.Status)
		}
	}

	return statusResultFrom(a), nil
}

// SweepOpenAttempts runs the same lazy advancement over open attempts. A
// deployment may call this on a timer to shorten settlement latency; it is
// not needed for correctness.
func (s *Service) SweepOpenAttempts(ctx context.Context, limit int) (int, error) {
	open, err := s.repo.ListOpen(limit)
	if err != nil {
		return 0, fmt.Errorf("list open attempts: %w", err)
	}

	advanced := 0
	for _, a := range open {
		before := a.Status
		if err := s.advance(ctx, a); err != nil {
			s.logger.Warn("sweep advance failed", "error", err, "attempt_id", a.ID)
			continue
		}
		if a.Status != before {
			advanced++
		}
	}

	s.logger.Info("sweep finished", "open", len(open), "advanced", advanced)
	return advanced, nil
}

// advance applies at most one state transition to a non-terminal attempt:
// deadline checks first (no I/O), then a throttled verifier call.
func (s *Service) advance(ctx context.Context, a *attempt.PaymentAttempt) error {
	now := time.Now().UTC()

	if IsIntentExpired(a, now) {
		return s.finalize(ctx, a, attempt.StatusFailed, ReasonIntentExpired)
	}

	if IsVerificationTimedOut(a, now, s.cfg.VerifyTimeout) {
		return s.finalize(ctx, a, attempt.StatusFailed, ReasonReceiptNotFound)
	}

	if a.Status != attempt.StatusPendingUnverified || a.TxHash == nil {
		return nil
	}

	if a.LastVerifyAttemptAt != nil && now.Sub(*a.LastVerifyAttemptAt) < s.cfg.VerifyThrottle {
		return nil
	}

	outcome, verifyErr := s.verifier.VerifyTransfer(ctx, chainverifier.VerifyRequest{
		ChainID:      a.ChainID,
		TokenAddress: a.TokenAddress,
		ToAddress:    a.ToAddress,
		TxHash:       *a.TxHash,
	})

	a.LastVerifyAttemptAt = &now
	a.VerifyAttemptCount++

	if verifyErr != nil {
		// Verifier unavailability is not an outcome. Record the attempt and
		// leave the state alone.
		s.logger.Warn("chain verifier unavailable",
			"error", verifyErr,
			"attempt_id", a.ID,
			"tx_hash", *a.TxHash)
		return s.recordVerifyAttempt(a, "verifier_unavailable")
	}

	switch outcome.Status {
	case chainverifier.StatusNotFound:
		return s.recordVerifyAttempt(a, "receipt_not_found")
	case chainverifier.StatusReverted:
		return s.finalize(ctx, a, attempt.StatusFailed, ReasonTxReverted)
	case chainverifier.StatusVerified:
		return s.applyVerified(ctx, a, outcome)
	default:
		return fmt.Errorf("unknown verifier outcome %q", outcome.Status)
	}
}

// applyVerified compares the observed transfer against the attempt's
// expectations and either credits, rejects, fails, or keeps waiting.
func (s *Service) applyVerified(ctx context.Context, a *attempt.PaymentAttempt, outcome *chainverifier.Outcome) error {
	t := outcome.Transfer
	if t == nil || !strings.EqualFold(t.Token, a.TokenAddress) {
		return s.finalize(ctx, a, attempt.StatusRejected, ReasonWrongToken)
	}
	if !strings.EqualFold(t.To, a.ToAddress) {
		return s.finalize(ctx, a, attempt.StatusRejected, ReasonWrongRecipient)
	}
	if !strings.EqualFold(t.From, a.FromAddress) {
		return s.finalize(ctx, a, attempt.StatusRejected, ReasonSenderMismatch)
	}

	maxRaw := s.converter.RawFromMinorUnits(s.cfg.MaxAmountMinorUnits)
	if t.AmountRaw.Cmp(maxRaw) > 0 {
		return s.finalize(ctx, a, attempt.StatusFailed, ReasonAmountAboveMaximum)
	}

	expectedRaw := s.converter.RawFromMinorUnits(a.AmountMinorUnits)
	if t.AmountRaw.Cmp(expectedRaw) < 0 {
		return s.finalize(ctx, a, attempt.StatusRejected, ReasonAmountBelowExpected)
	}

	if outcome.Confirmations < s.cfg.MinConfirmations {
		// Mined but not yet final. Neither credit nor reject.
		return s.recordVerifyAttempt(a, fmt.Sprintf("confirmations=%d", outcome.Confirmations))
	}

	return s.settle(ctx, a, outcome)
}

// settle is the only path into credited. The state transition and the
// ledger credit commit in one transaction, keyed on the attempt id so a
// crash-and-retry cannot credit twice. If the credit cannot be confirmed
// committed the transition is not visible either.
func (s *Service) settle(ctx context.Context, a *attempt.PaymentAttempt, outcome *chainverifier.Outcome) error {
	fromStatus := a.Status
	a.Status = attempt.StatusCredited

	ev := &attempt.PaymentEvent{
		AttemptID:  a.ID,
		EventType:  attempt.EventStatusChanged,
		FromStatus: strPtr(fromStatus),
		ToStatus:   strPtr(attempt.StatusCredited),
		Detail:     strPtr(fmt.Sprintf("confirmations=%d", outcome.Confirmations)),
	}

	credit := &ledgermodel.Credit{
		AccountID:        a.AccountID,
		AmountMinorUnits: a.AmountMinorUnits,
		IdempotencyKey:   a.ID,
		Reason:           creditReasonOnchainPayment,
	}

	if err := s.repo.Settle(a, fromStatus, ev, credit); err != nil {
		a.Status = fromStatus
		s.logger.Error("settlement failed, attempt stays pending",
			"error", err,
			"attempt_id", a.ID,
			"account_id", a.AccountID)
		return errors.NewInternalError("settlement failed", err)
	}

	s.logger.Info("payment credited",
		"attempt_id", a.ID,
		"account_id", a.AccountID,
		"amount_minor_units", a.AmountMinorUnits,
		"confirmations", outcome.Confirmations)

	if s.eventBus != nil {
		txHash := ""
		if a.TxHash != nil {
			txHash = *a.TxHash
		}
		if err := s.eventBus.Publish(ctx, events.NewPaymentCreditedEvent(a.ID, a.AccountID, a.AmountMinorUnits, txHash)); err != nil {
			s.logger.Warn("failed to publish credited event", "error", err, "attempt_id", a.ID)
		}
	}

	return nil
}

// finalize moves the attempt into rejected or failed with a reason code.
func (s *Service) finalize(ctx context.Context, a *attempt.PaymentAttempt, toStatus, reasonCode string) error {
	if !IsValidTransition(a.Status, toStatus) {
		return fmt.Errorf("invalid transition %s -> %s for attempt %s", a.Status, toStatus, a.ID)
	}

	fromStatus := a.Status
	a.Status = toStatus
	a.ErrorCode = &reasonCode
	a.ExpiresAt = nil

	ev := &attempt.PaymentEvent{
		AttemptID:  a.ID,
		EventType:  attempt.EventStatusChanged,
		FromStatus: strPtr(fromStatus),
		ToStatus:   strPtr(toStatus),
		Detail:     strPtr(reasonCode),
	}

	if err := s.repo.UpdateWithEvent(a, fromStatus, ev); err != nil {
		a.Status = fromStatus
		s.logger.Error("failed to finalize attempt",
			"error", err,
			"attempt_id", a.ID,
			"to_status", toStatus,
			"reason", reasonCode)
		return errors.NewInternalError("failed to finalize attempt", err)
	}

	s.logger.Info("attempt finalized",
		"attempt_id", a.ID,
		"account_id", a.AccountID,
		"status", toStatus,
		"reason", reasonCode)

	if s.eventBus != nil {
		txHash := ""
		if a.TxHash != nil {
			txHash = *a.TxHash
		}
		var event events.Event
		if toStatus == attempt.StatusRejected {
			event = events.NewPaymentRejectedEvent(a.ID, a.AccountID, reasonCode, txHash)
		} else {
			event = events.NewPaymentFailedEvent(a.ID, a.AccountID, reasonCode)
		}
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish terminal event", "error", err, "attempt_id", a.ID)
		}
	}

	return nil
}

// recordVerifyAttempt persists the throttle watermark plus one audit event
// without changing the status.
func (s *Service) recordVerifyAttempt(a *attempt.PaymentAttempt, detail string) error {
	ev := &attempt.PaymentEvent{
		AttemptID: a.ID,
		EventType: attempt.EventVerifyAttempted,
		Detail:    strPtr(detail),
	}
	if err := s.repo.UpdateWithEvent(a, a.Status, ev); err != nil {
		s.logger.Error("failed to record verify attempt", "error", err, "attempt_id", a.ID)
		return errors.NewInternalError("failed to record verify attempt", err)
	}
	return nil
}

func (s *Service) loadOwned(attemptID, accountID string) (*attempt.PaymentAttempt, error) {
	a, err := s.repo.GetByIDForAccount(attemptID, accountID)
	if err != nil {
		// A store failure is not a missing attempt; surface it as such.
		s.logger.Error("attempt lookup failed",
			"error", err,
			"attempt_id", attemptID,
			"account_id", accountID)
		return nil, errors.NewInternalError("failed to load payment attempt", err)
	}
	if a == nil {
		s.logger.Warn("attempt not found for account",
			"attempt_id", attemptID,
			"account_id", accountID)
		return nil, errors.ErrAttemptNotFound
	}
	return a, nil
}

func (s *Service) validateAmount(amountMinorUnits int64) error {
	if amountMinorUnits <= 0 {
		return errors.NewValidationError("amount must be a positive integer in minor units", errors.ErrCodeInvalidAmount)
	}
	if amountMinorUnits < s.cfg.MinAmountMinorUnits {
		return errors.NewValidationError(
			fmt.Sprintf("amount must be at least %d minor units", s.cfg.MinAmountMinorUnits),
			errors.ErrCodeAmountTooLow)
	}
	if amountMinorUnits > s.cfg.MaxAmountMinorUnits {
		return errors.NewValidationError(
			fmt.Sprintf("amount must not exceed %d minor units", s.cfg.MaxAmountMinorUnits),
			errors.ErrCodeAmountTooHigh)
	}
	if !IsValidAmount(amountMinorUnits, s.cfg.MinAmountMinorUnits, s.cfg.MaxAmountMinorUnits) {
		return errors.NewValidationError("invalid amount", errors.ErrCodeInvalidAmount)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
