package pagaclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "principal-1", "credential-1", "hash-key-1")
}

func TestAirtimePurchase_SendsSignedRequest(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	var gotPayload map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"responseCode": 0, "message": "success", "transactionId": "tx-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.AirtimePurchase(context.Background(), AirtimePurchaseParams{
		ReferenceNumber:        "ref-1",
		Amount:                 500,
		DestinationPhoneNumber: "08012345678",
		MobileOperatorPublicID: "op-mtn",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if gotPath != "/paga-webservices/business-rest/secured/airtimePurchase" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotHeaders.Get("principal") != "principal-1" {
		t.Fatalf("unexpected principal header: %q", gotHeaders.Get("principal"))
	}
	if gotHeaders.Get("credentials") != "credential-1" {
		t.Fatalf("unexpected credentials header: %q", gotHeaders.Get("credentials"))
	}
	wantHash := Signature([]string{"ref-1", "500", "08012345678"}, "hash-key-1")
	if gotHeaders.Get("hash") != wantHash {
		t.Fatalf("unexpected hash header: %q", gotHeaders.Get("hash"))
	}
	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type: %q", gotHeaders.Get("Content-Type"))
	}

	if gotPayload["referenceNumber"] != "ref-1" || gotPayload["destinationPhoneNumber"] != "08012345678" {
		t.Fatalf("unexpected payload: %+v", gotPayload)
	}
	if gotPayload["currency"] != "NGN" {
		t.Fatalf("expected NGN currency, got %v", gotPayload["currency"])
	}
	if gotPayload["isSuppressRecipientMessages"] != false {
		t.Fatalf("expected isSuppressRecipientMessages=false, got %v", gotPayload["isSuppressRecipientMessages"])
	}

	if resp.ResponseCode != 0 || resp.Declined() {
		t.Fatalf("expected success response, got %+v", resp)
	}
	if resp.Raw["transactionId"] != "tx-1" {
		t.Fatalf("raw payload not preserved: %+v", resp.Raw)
	}
}

func TestMerchantPayment_HashCoversPaymentFields(t *testing.T) {
	var gotHash string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHash = r.Header.Get("hash")
		w.Write([]byte(`{"responseCode": 0}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.MerchantPayment(context.Background(), MerchantPaymentParams{
		ReferenceNumber:         "ref-2",
		Amount:                  2500,
		MerchantAccount:         "1234567890",
		MerchantReferenceNumber: "meter-22",
		Currency:                "NGN",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	want := Signature([]string{"ref-2", "2500", "1234567890", "meter-22"}, "hash-key-1")
	if gotHash != want {
		t.Fatalf("expected hash %s, got %s", want, gotHash)
	}
}

func TestLookups_SignWithTrailingEmptyFields(t *testing.T) {
	var gotHash string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHash = r.Header.Get("hash")
		w.Write([]byte(`{"responseCode": 0, "mobileOperator": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GetMobileOperators(context.Background(), "ref-3", "en"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	want := Signature([]string{"ref-3", "", ""}, "hash-key-1")
	if gotHash != want {
		t.Fatalf("expected hash %s, got %s", want, gotHash)
	}
}

func TestCall_Non2xxReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad credentials"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetBanks(context.Background(), "ref-4", "")
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", apiErr.StatusCode)
	}
	if apiErr.Body != "bad credentials" {
		t.Fatalf("expected body to be preserved, got %q", apiErr.Body)
	}
}

func TestCall_DeclinedResponseIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseCode": 7, "message": "insufficient funds"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.TransactionStatus(context.Background(), "ref-5", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !resp.Declined() {
		t.Fatal("expected declined response")
	}
	if resp.Message != "insufficient funds" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestCall_MissingResponseCodeIsDeclined(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no responseCode field", body: `{"message": "temporarily unavailable"}`},
		{name: "responseCode is a string", body: `{"responseCode": "0", "message": "odd payload"}`},
		{name: "responseCode is null", body: `{"responseCode": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			resp, err := client.TransactionStatus(context.Background(), "ref-7", "")
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if resp.CodePresent {
				t.Fatal("expected CodePresent=false for a body without a numeric responseCode")
			}
			if !resp.Declined() {
				t.Fatal("a response without an explicit responseCode 0 must not read as success")
			}
		})
	}
}

func TestCall_MissingHashKeyFailsBeforeHTTP(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(server.URL, "principal-1", "credential-1", "  ")
	_, err := client.GetMerchants(context.Background(), "ref-6", "")
	if !errors.Is(err, ErrMissingHashKey) {
		t.Fatalf("expected ErrMissingHashKey, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no HTTP calls, got %d", calls)
	}
}
