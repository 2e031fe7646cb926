package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/auth"
	"github.com/frahmantamala/crypto-settlement/internal/core/datamodel/attempt"
	paymentPkg "github.com/frahmantamala/crypto-settlement/internal/payment"
)

type mockPaymentService struct {
	createIntentErr error
	submitTxHashErr error
	getStatusErr    error
	attempt         *attempt.PaymentAttempt
	statusResult    *paymentPkg.StatusResult

	lastAccountID string
	lastAttemptID string
	lastTxHash    string
}

func (m *mockPaymentService) CreateIntent(accountID string, amountMinorUnits int64, fromAddress string) (*attempt.PaymentAttempt, error) {
	m.lastAccountID = accountID
	if m.createIntentErr != nil {
		return nil, m.createIntentErr
	}
	return m.attempt, nil
}

func (m *mockPaymentService) SubmitTxHash(accountID, attemptID, txHash string) (*attempt.PaymentAttempt, error) {
	m.lastAccountID = accountID
	m.lastAttemptID = attemptID
	m.lastTxHash = txHash
	if m.submitTxHashErr != nil {
		return nil, m.submitTxHashErr
	}
	return m.attempt, nil
}

func (m *mockPaymentService) GetStatus(_ context.Context, accountID, attemptID string) (*paymentPkg.StatusResult, error) {
	m.lastAccountID = accountID
	m.lastAttemptID = attemptID
	if m.getStatusErr != nil {
		return nil, m.getStatusErr
	}
	return m.statusResult, nil
}

var _ = Describe("Handler", func() {
	var (
		service  *mockPaymentService
		router   *chi.Mux
		recorder *httptest.ResponseRecorder
	)

	account := &auth.Account{ID: "acct-1"}

	authedRequest := func(method, target string, body []byte) *http.Request {
		req := httptest.NewRequest(method, target, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		return req.WithContext(auth.ContextWithAccount(req.Context(), account))
	}

	BeforeEach(func() {
		service = &mockPaymentService{}
		recorder = httptest.NewRecorder()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := paymentPkg.NewHandler(service, logger)

		router = chi.NewRouter()
		router.Post("/api/v1/payments/intents", handler.CreateIntent)
		router.Post("/api/v1/payments/intents/{id}/transaction", handler.SubmitTxHash)
		router.Get("/api/v1/payments/intents/{id}", handler.GetStatus)
	})

	Describe("CreateIntent", func() {
		validBody := []byte(`{"amount_minor_units": 5000, "from_address": "` + testSenderAddress + `"}`)

		BeforeEach(func() {
			service.attempt = &attempt.PaymentAttempt{
				ID:               "attempt-1",
				AccountID:        "acct-1",
				Status:           attempt.StatusCreatedIntent,
				AmountMinorUnits: 5000,
				AmountRaw:        "50000000",
				ChainID:          1,
				TokenAddress:     testTokenAddress,
				ToAddress:        testDepositAddress,
			}
		})

		It("returns 201 with the intent payload", func() {
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents", validBody))

			Expect(recorder.Code).To(Equal(http.StatusCreated))
			Expect(service.lastAccountID).To(Equal("acct-1"))

			var resp paymentPkg.IntentResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.AttemptID).To(Equal("attempt-1"))
			Expect(resp.Status).To(Equal(paymentPkg.ClientStatusPending))
			Expect(resp.DepositAddress).To(Equal(testDepositAddress))
		})

		It("returns 401 when no account is attached", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", bytes.NewBuffer(validBody))
			router.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 400 on a malformed body", func() {
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents", []byte(`{not json`)))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a fractional amount", func() {
			body := []byte(`{"amount_minor_units": 50.5, "from_address": "` + testSenderAddress + `"}`)
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents", body))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for a malformed sender address", func() {
			body := []byte(`{"amount_minor_units": 5000, "from_address": "not-an-address"}`)
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents", body))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps service validation errors to 400", func() {
			service.createIntentErr = apperrors.NewValidationError("amount must be at least 100 minor units", apperrors.ErrCodeAmountTooLow)

			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents", validBody))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("SubmitTxHash", func() {
		validBody := []byte(`{"tx_hash": "` + testTxHash + `"}`)

		BeforeEach(func() {
			txHash := testTxHash
			service.attempt = &attempt.PaymentAttempt{
				ID:               "attempt-1",
				AccountID:        "acct-1",
				Status:           attempt.StatusPendingUnverified,
				AmountMinorUnits: 5000,
				TxHash:           &txHash,
			}
		})

		It("returns 200 and routes the attempt id to the service", func() {
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents/attempt-1/transaction", validBody))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(service.lastAttemptID).To(Equal("attempt-1"))
			Expect(service.lastTxHash).To(Equal(testTxHash))

			var resp paymentPkg.IntentResponse
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(paymentPkg.ClientStatusPending))
		})

		It("returns 400 for a malformed hash", func() {
			body := []byte(`{"tx_hash": "0x1234"}`)
			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents/attempt-1/transaction", body))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when the attempt is not visible to the caller", func() {
			service.submitTxHashErr = apperrors.ErrAttemptNotFound

			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents/attempt-1/transaction", validBody))

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 409 when the hash is bound to another attempt", func() {
			service.submitTxHashErr = apperrors.ErrTxHashInUse

			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents/attempt-1/transaction", validBody))

			Expect(recorder.Code).To(Equal(http.StatusConflict))
		})

		It("returns 409 when the attempt already reached a final state", func() {
			service.submitTxHashErr = apperrors.ErrAttemptAlreadyFinal

			router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/api/v1/payments/intents/attempt-1/transaction", validBody))

			Expect(recorder.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("GetStatus", func() {
		It("returns 200 with the status result", func() {
			reason := paymentPkg.ReasonSenderMismatch
			service.statusResult = &paymentPkg.StatusResult{
				AttemptID:        "attempt-1",
				Status:           paymentPkg.ClientStatusFailed,
				ReasonCode:       &reason,
				AmountMinorUnits: 5000,
			}

			router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/api/v1/payments/intents/attempt-1", nil))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(service.lastAttemptID).To(Equal("attempt-1"))

			var resp paymentPkg.StatusResult
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(paymentPkg.ClientStatusFailed))
			Expect(*resp.ReasonCode).To(Equal(paymentPkg.ReasonSenderMismatch))
		})

		It("returns 404 for an unknown attempt", func() {
			service.getStatusErr = apperrors.ErrAttemptNotFound

			router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/api/v1/payments/intents/nope", nil))

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 401 when no account is attached", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/intents/attempt-1", nil)
			router.ServeHTTP(recorder, req)

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
