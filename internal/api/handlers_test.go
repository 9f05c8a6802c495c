package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kobowallet/paga-gateway/internal/app"
	"github.com/kobowallet/paga-gateway/internal/domain"
	"github.com/kobowallet/paga-gateway/internal/store"
	"github.com/kobowallet/paga-gateway/pkg/pagaclient"
)

type handlerRepoStub struct {
	store.Repository

	balance int64
	account *domain.WalletAccount
	records []*domain.TransactionRecord
}

func (s *handlerRepoStub) FindAccountByUserID(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	if s.account == nil || s.account.UserID != userID {
		return nil, store.ErrUserNotFound
	}
	return s.account, nil
}

func (s *handlerRepoStub) DebitBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	if s.balance < amount {
		return 0, store.ErrInsufficientFunds
	}
	s.balance -= amount
	return s.balance, nil
}

func (s *handlerRepoStub) CreditBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	s.balance += amount
	return s.balance, nil
}

func (s *handlerRepoStub) CreateTransactionRecord(ctx context.Context, record *domain.TransactionRecord) error {
	s.records = append(s.records, record)
	return nil
}

type handlerProviderStub struct {
	response *pagaclient.ProviderResponse
	err      error
}

func (p *handlerProviderStub) respond(ctx context.Context) (*pagaclient.ProviderResponse, error) {
	return p.response, p.err
}

func (p *handlerProviderStub) AirtimePurchase(ctx context.Context, params pagaclient.AirtimePurchaseParams) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) MerchantPayment(ctx context.Context, params pagaclient.MerchantPaymentParams) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetMobileOperators(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetDataBundleByOperator(ctx context.Context, referenceNumber, operatorPublicID string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetBanks(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetMerchants(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetMerchantServices(ctx context.Context, referenceNumber, merchantPublicID string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) GetMerchantAccountDetails(ctx context.Context, referenceNumber, merchantAccount, merchantReferenceNumber, productCode string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func (p *handlerProviderStub) TransactionStatus(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return p.respond(ctx)
}

func newHandlers(repo *handlerRepoStub, provider *handlerProviderStub) *PaymentHandlers {
	return NewPaymentHandlers(app.NewService(repo, provider, nil))
}

func authedRequest(t *testing.T, method, target, subject string, body interface{}) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(encoded))
	return req.WithContext(WithIdentitySubject(req.Context(), subject))
}

func TestAirtimePurchaseHandler_RejectsSubjectMismatch(t *testing.T) {
	repo := &handlerRepoStub{balance: 1000}
	provider := &handlerProviderStub{response: &pagaclient.ProviderResponse{Raw: map[string]interface{}{"responseCode": float64(0)}}}
	h := newHandlers(repo, provider)

	req := authedRequest(t, "POST", "/airtime-purchase", "someone-else", map[string]interface{}{
		"userId":                 "user-1",
		"amount":                 300,
		"destinationNumber":      "08012345678",
		"mobileOperatorPublicId": "op-mtn",
	})
	rec := httptest.NewRecorder()
	h.AirtimePurchaseHandler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "Unauthorized: Token does not match userId." {
		t.Fatalf("unexpected error message: %q", body["error"])
	}
	if repo.balance != 1000 || len(repo.records) != 0 {
		t.Fatal("expected no store activity for a rejected request")
	}
}

func TestAirtimePurchaseHandler_SuccessShape(t *testing.T) {
	repo := &handlerRepoStub{balance: 1000}
	provider := &handlerProviderStub{response: &pagaclient.ProviderResponse{
		ResponseCode: 0,
		CodePresent:  true,
		Raw:          map[string]interface{}{"responseCode": float64(0), "transactionId": "tx-9"},
	}}
	h := newHandlers(repo, provider)

	req := authedRequest(t, "POST", "/airtime-purchase", "user-1", map[string]interface{}{
		"userId":                 "user-1",
		"amount":                 300,
		"destinationNumber":      "08012345678",
		"mobileOperatorPublicId": "op-mtn",
	})
	rec := httptest.NewRecorder()
	h.AirtimePurchaseHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success        bool                   `json:"success"`
		Message        string                 `json:"message"`
		UpdatedBalance int64                  `json:"updatedBalance"`
		Transaction    map[string]interface{} `json:"transaction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.Message != "Airtime purchase successful." {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.UpdatedBalance != 700 {
		t.Fatalf("expected updated balance 700, got %d", body.UpdatedBalance)
	}
	if body.Transaction["transactionId"] != "tx-9" {
		t.Fatalf("provider payload not forwarded: %+v", body.Transaction)
	}
}

func TestAirtimePurchaseHandler_BusinessFailureStillReturns200(t *testing.T) {
	repo := &handlerRepoStub{balance: 50}
	provider := &handlerProviderStub{response: &pagaclient.ProviderResponse{Raw: map[string]interface{}{}}}
	h := newHandlers(repo, provider)

	req := authedRequest(t, "POST", "/airtime-purchase", "user-1", map[string]interface{}{
		"userId":                 "user-1",
		"amount":                 300,
		"destinationNumber":      "08012345678",
		"mobileOperatorPublicId": "op-mtn",
	})
	rec := httptest.NewRecorder()
	h.AirtimePurchaseHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if body["message"] != "Insufficient balance to complete the airtime purchase." {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestMerchantPaymentHandler_RejectsSubjectMismatch(t *testing.T) {
	repo := &handlerRepoStub{balance: 1000}
	provider := &handlerProviderStub{response: &pagaclient.ProviderResponse{Raw: map[string]interface{}{}}}
	h := newHandlers(repo, provider)

	req := authedRequest(t, "POST", "/merchantPayment", "intruder", map[string]interface{}{
		"userId":                  "user-1",
		"amount":                  500,
		"merchantAccount":         "1234567890",
		"merchantReferenceNumber": "meter-22",
	})
	rec := httptest.NewRecorder()
	h.MerchantPaymentHandler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDataBundlesHandler_RequiresOperator(t *testing.T) {
	h := newHandlers(&handlerRepoStub{}, &handlerProviderStub{response: &pagaclient.ProviderResponse{Raw: map[string]interface{}{}}})

	req := httptest.NewRequest("POST", "/getdatabundle", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.DataBundlesHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWalletHandler_ReturnsMirroredBalance(t *testing.T) {
	repo := &handlerRepoStub{account: &domain.WalletAccount{UserID: "user-1", DisplayName: "Ada", Balance: 700}}
	h := newHandlers(repo, &handlerProviderStub{})

	req := httptest.NewRequest("GET", "/wallet", nil)
	req = req.WithContext(WithIdentitySubject(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.WalletHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		UserID  string `json:"userID"`
		Balance int64  `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.UserID != "user-1" || body.Balance != 700 {
		t.Fatalf("unexpected wallet payload: %+v", body)
	}
}

func TestWalletHandler_UnknownSubject(t *testing.T) {
	h := newHandlers(&handlerRepoStub{}, &handlerProviderStub{})

	req := httptest.NewRequest("GET", "/wallet", nil)
	req = req.WithContext(WithIdentitySubject(req.Context(), "ghost"))
	rec := httptest.NewRecorder()
	h.WalletHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMobileOperatorsHandler_ForwardsProviderPayload(t *testing.T) {
	provider := &handlerProviderStub{response: &pagaclient.ProviderResponse{
		ResponseCode: 0,
		Raw: map[string]interface{}{
			"responseCode":   float64(0),
			"mobileOperator": []interface{}{map[string]interface{}{"name": "MTN"}},
		},
	}}
	h := newHandlers(&handlerRepoStub{}, provider)

	req := httptest.NewRequest("GET", "/mobile-operators", nil)
	rec := httptest.NewRecorder()
	h.MobileOperatorsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body["mobileOperator"]; !ok {
		t.Fatalf("provider payload not forwarded verbatim: %+v", body)
	}
}
