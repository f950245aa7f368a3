package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"database/sql"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/schoolhq/settlement-engine/internal/config"
	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/service"
	"github.com/schoolhq/settlement-engine/tests/mocks"
)

const testSecret = "sk_test_webhook_secret"

type webhookFixture struct {
	walletRepo     *mocks.MockWalletRepository
	settlementRepo *mocks.MockSettlementRepository
	allocationRepo *mocks.MockAllocationRepository
	academicRepo   *mocks.MockAcademicRepository
	handler        *WebhookHandler
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		walletRepo:     &mocks.MockWalletRepository{},
		settlementRepo: &mocks.MockSettlementRepository{},
		allocationRepo: &mocks.MockAllocationRepository{},
		academicRepo:   &mocks.MockAcademicRepository{},
	}

	studentRepo := &mocks.MockStudentRepository{}
	feeRepo := &mocks.MockFeeRepository{}
	obligations := service.NewObligationService(feeRepo, studentRepo)
	allocations := service.NewAllocationService(
		nil, mocks.FakeTransactor{},
		f.settlementRepo, f.allocationRepo, f.walletRepo, studentRepo, obligations, nil,
	)
	ledger := service.NewLedgerService(
		nil, mocks.FakeTransactor{},
		f.walletRepo, f.settlementRepo, f.allocationRepo, f.academicRepo,
		allocations, service.LogNotifier{}, nil,
	)

	cfg := &config.Config{}
	cfg.Gateway.SecretKey = testSecret
	cfg.Gateway.SignatureHeader = "x-paystack-signature"

	f.handler = NewWebhookHandler(ledger, cfg)
	return f
}

func sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(f *webhookFixture, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/paystack/webhooks", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	rec := httptest.NewRecorder()
	f.handler.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhook_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture()
	payload := []byte(`{"event":"charge.success","data":{"reference":"PSK-1","amount":600000}}`)

	rec := postWebhook(f, payload, "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.walletRepo.AssertNotCalled(t, "GetByCustomerCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_RejectsMissingSignature(t *testing.T) {
	f := newWebhookFixture()
	payload := []byte(`{"event":"charge.success","data":{}}`)

	rec := postWebhook(f, payload, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	f := newWebhookFixture()
	payload := []byte(`{"event":"transfer.success","data":{"reference":"PSK-1"}}`)

	rec := postWebhook(f, payload, sign(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.walletRepo.AssertNotCalled(t, "GetByCustomerCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_RecordsSettlement(t *testing.T) {
	f := newWebhookFixture()
	wallet := &domain.Wallet{
		ID:           uuid.New(),
		GuardianID:   uuid.New(),
		SchoolID:     uuid.New(),
		CustomerCode: "CUS_abc123",
		Balance:      decimal.Zero,
	}
	session := &domain.AcademicSession{ID: uuid.New(), SchoolID: wallet.SchoolID}

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "PSK-REF-200",
			"amount": 600000,
			"currency": "NGN",
			"status": "success",
			"customer": {"email": "parent@example.com", "customer_code": "CUS_abc123"},
			"authorization": {"channel": "dedicated_nuban", "receiver_bank_account_number": "0123456789"}
		}
	}`)

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_abc123").Return(wallet, nil)
	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-200").
		Return(nil, sql.ErrNoRows)
	f.academicRepo.On("GetCurrentSession", mock.Anything, mock.Anything, wallet.SchoolID).Return(session, nil)
	f.academicRepo.On("GetCurrentTerm", mock.Anything, mock.Anything, wallet.SchoolID).Return(nil, nil)
	f.settlementRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(s *domain.Settlement) bool {
		// 600000 kobo arrives as 6000 naira.
		return s.Reference == "PSK-REF-200" &&
			s.Amount.Equal(decimal.NewFromInt(6000)) &&
			s.SettlementType == domain.SettlementTypeAuto
	})).Return(nil)
	f.walletRepo.On("CreditBalance", mock.Anything, mock.Anything, wallet.ID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(6000))
	})).Return(nil)
	f.settlementRepo.On("GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Settlement{Amount: decimal.NewFromInt(6000), SessionID: &session.ID}, nil)
	f.allocationRepo.On("SumBySettlement", mock.Anything, mock.Anything, mock.Anything).
		Return(decimal.NewFromInt(6000), nil)
	f.settlementRepo.On("MarkAllocated", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := postWebhook(f, payload, sign(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.settlementRepo.AssertExpectations(t)
	f.walletRepo.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	wallet := &domain.Wallet{ID: uuid.New(), GuardianID: uuid.New(), CustomerCode: "CUS_abc123"}
	existing := &domain.Settlement{ID: uuid.New(), Reference: "PSK-REF-200"}

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "PSK-REF-200",
			"amount": 600000,
			"customer": {"customer_code": "CUS_abc123"},
			"authorization": {}
		}
	}`)

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_abc123").Return(wallet, nil)
	f.settlementRepo.On("GetByReference", mock.Anything, mock.Anything, "PSK-REF-200").Return(existing, nil)

	rec := postWebhook(f, payload, sign(payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.settlementRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.walletRepo.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_ZeroAmountAcknowledgedAsUnclaimed(t *testing.T) {
	f := newWebhookFixture()
	wallet := &domain.Wallet{ID: uuid.New(), GuardianID: uuid.New(), CustomerCode: "CUS_abc123"}

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "PSK-REF-400",
			"amount": 0,
			"currency": "NGN",
			"customer": {"email": "parent@example.com", "customer_code": "CUS_abc123"},
			"authorization": {}
		}
	}`)

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_abc123").Return(wallet, nil)
	f.settlementRepo.On("CreateUnclaimed", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.UnclaimedPayment) bool {
		return p.Reference == "PSK-REF-400" && p.Amount.IsZero()
	})).Return(nil)

	rec := postWebhook(f, payload, sign(payload))

	// A 5xx here would make the gateway retry a payload that can never
	// succeed; acknowledge it and keep it visible for reconciliation.
	assert.Equal(t, http.StatusOK, rec.Code)
	f.settlementRepo.AssertExpectations(t)
	f.settlementRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.walletRepo.AssertNotCalled(t, "CreditBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_UnresolvedWalletGoesToUnclaimed(t *testing.T) {
	f := newWebhookFixture()

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "PSK-REF-300",
			"amount": 150000,
			"currency": "NGN",
			"customer": {"email": "stranger@example.com", "customer_code": "CUS_unknown"},
			"authorization": {"receiver_bank_account_number": "9999999999"}
		}
	}`)

	f.walletRepo.On("GetByCustomerCode", mock.Anything, mock.Anything, "CUS_unknown").
		Return(nil, sql.ErrNoRows)
	f.walletRepo.On("GetByAccountNumber", mock.Anything, mock.Anything, "9999999999").
		Return(nil, sql.ErrNoRows)
	f.settlementRepo.On("CreateUnclaimed", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.UnclaimedPayment) bool {
		return p.Reference == "PSK-REF-300" && p.Amount.Equal(decimal.NewFromInt(1500))
	})).Return(nil)

	rec := postWebhook(f, payload, sign(payload))

	// Still a 200; retrying would not make the wallet appear.
	assert.Equal(t, http.StatusOK, rec.Code)
	f.settlementRepo.AssertExpectations(t)
}
