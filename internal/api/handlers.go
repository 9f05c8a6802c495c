/**
 * @description
 * This file contains the HTTP handlers for the gateway's payment endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * Business outcomes (invalid input, unknown user, insufficient balance,
 * provider decline) are written as 200 responses whose body carries the
 * outcome; HTTP error statuses are reserved for auth failures and
 * infrastructure errors.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/google/uuid: Server-side reference number generation.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/kobowallet/paga-gateway/internal/app"
	"github.com/kobowallet/paga-gateway/internal/domain"
	"github.com/kobowallet/paga-gateway/internal/store"
	"github.com/kobowallet/paga-gateway/pkg/pagaclient"
)

// PaymentHandlers holds the application service that handlers will use.
type PaymentHandlers struct {
	service *app.Service
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(service *app.Service) *PaymentHandlers {
	return &PaymentHandlers{service: service}
}

// newReferenceNumber generates the per-request identifier sent to Paga and
// stored on the ledger row.
func newReferenceNumber() string {
	return uuid.New().String()
}

// requireSubjectMatch enforces that the authenticated token belongs to the
// userId the request claims to act for.
func (h *PaymentHandlers) requireSubjectMatch(w http.ResponseWriter, r *http.Request, userID string) bool {
	subject, ok := GetIdentitySubject(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return false
	}
	if subject != userID {
		log.Printf("level=warn component=api outcome=reject reason=subject_mismatch subject=%s user_id=%s", subject, userID)
		h.writeError(w, http.StatusForbidden, "Unauthorized: Token does not match userId.")
		return false
	}
	return true
}

// MobileOperatorsHandler lists the mobile operators Paga supports.
func (h *PaymentHandlers) MobileOperatorsHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.LookupMobileOperators(r.Context(), newReferenceNumber(), "")
	if err != nil {
		log.Printf("level=error component=api endpoint=mobile_operators err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching mobile operators.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// BanksHandler lists the banks Paga supports.
func (h *PaymentHandlers) BanksHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.LookupBanks(r.Context(), newReferenceNumber(), "")
	if err != nil {
		log.Printf("level=error component=api endpoint=banks err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching banks.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// MerchantsHandler lists the registered merchants.
func (h *PaymentHandlers) MerchantsHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.LookupMerchants(r.Context(), newReferenceNumber(), "")
	if err != nil {
		log.Printf("level=error component=api endpoint=merchants err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching merchants.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// DataBundlesHandler lists the data bundles offered by one mobile operator.
func (h *PaymentHandlers) DataBundlesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OperatorPublicID string `json:"operatorPublicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.OperatorPublicID == "" {
		h.writeError(w, http.StatusBadRequest, "operatorPublicId is required.")
		return
	}

	resp, err := h.service.LookupDataBundles(r.Context(), newReferenceNumber(), req.OperatorPublicID)
	if err != nil {
		log.Printf("level=error component=api endpoint=data_bundles operator=%s err=%v", req.OperatorPublicID, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching data bundles.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// MerchantServicesHandler lists the services offered by one merchant.
func (h *PaymentHandlers) MerchantServicesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MerchantPublicID string `json:"merchantPublicId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.MerchantPublicID == "" {
		h.writeError(w, http.StatusBadRequest, "merchantPublicId is required.")
		return
	}

	resp, err := h.service.LookupMerchantServices(r.Context(), newReferenceNumber(), req.MerchantPublicID)
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_services merchant=%s err=%v", req.MerchantPublicID, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching merchant services.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// MerchantAccountDetailsHandler resolves a customer account with a merchant,
// typically to display the account holder before a bill payment.
func (h *PaymentHandlers) MerchantAccountDetailsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MerchantAccount         string `json:"merchantAccount"`
		MerchantReferenceNumber string `json:"merchantReferenceNumber"`
		ProductCode             string `json:"productCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.MerchantAccount == "" || req.MerchantReferenceNumber == "" {
		h.writeError(w, http.StatusBadRequest, "merchantAccount and merchantReferenceNumber are required.")
		return
	}

	resp, err := h.service.LookupMerchantAccountDetails(r.Context(), newReferenceNumber(), req.MerchantAccount, req.MerchantReferenceNumber, req.ProductCode)
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_account_details merchant_account=%s err=%v", req.MerchantAccount, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching merchant account details.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// TransactionStatusHandler re-queries Paga for the status of a previously
// submitted transaction.
func (h *PaymentHandlers) TransactionStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReferenceNumber string `json:"referenceNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ReferenceNumber == "" {
		h.writeError(w, http.StatusBadRequest, "referenceNumber is required.")
		return
	}

	resp, err := h.service.LookupTransactionStatus(r.Context(), req.ReferenceNumber, "")
	if err != nil {
		log.Printf("level=error component=api endpoint=transaction_status reference=%s err=%v", req.ReferenceNumber, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching the transaction status.")
		return
	}
	h.writeProviderResponse(w, resp)
}

// AirtimePurchaseHandler handles requests for airtime and data bundle purchases.
func (h *PaymentHandlers) AirtimePurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.AirtimePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=airtime_purchase outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if !h.requireSubjectMatch(w, r, req.UserID) {
		return
	}
	req.ReferenceNumber = newReferenceNumber()

	log.Printf("level=info component=api endpoint=airtime_purchase outcome=accepted user_id=%s amount=%d data_bundle=%t reference=%s", req.UserID, req.Amount, req.IsDataBundle, req.ReferenceNumber)

	result, err := h.service.PurchaseAirtime(r.Context(), req)
	if err != nil {
		log.Printf("level=error component=api endpoint=airtime_purchase outcome=failed user_id=%s reference=%s err=%v", req.UserID, req.ReferenceNumber, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while processing the airtime purchase.")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// MerchantPaymentHandler handles requests for merchant bill payments.
func (h *PaymentHandlers) MerchantPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.MerchantPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=merchant_payment outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if !h.requireSubjectMatch(w, r, req.UserID) {
		return
	}
	req.ReferenceNumber = newReferenceNumber()

	log.Printf("level=info component=api endpoint=merchant_payment outcome=accepted user_id=%s amount=%d merchant_account=%s reference=%s", req.UserID, req.Amount, req.MerchantAccount, req.ReferenceNumber)

	result, err := h.service.PayMerchant(r.Context(), req)
	if err != nil {
		log.Printf("level=error component=api endpoint=merchant_payment outcome=failed user_id=%s reference=%s err=%v", req.UserID, req.ReferenceNumber, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while processing the merchant payment.")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// WalletHandler returns the authenticated user's mirrored wallet, including
// the cached balance debits are gated on.
func (h *PaymentHandlers) WalletHandler(w http.ResponseWriter, r *http.Request) {
	subject, ok := GetIdentitySubject(r.Context())
	if !ok {
		http.Error(w, "Could not get user ID from context", http.StatusInternalServerError)
		return
	}

	account, err := h.service.GetWalletAccount(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("User with ID %s not found.", subject))
			return
		}
		log.Printf("level=error component=api endpoint=wallet user_id=%s err=%v", subject, err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching the wallet.")
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// writeProviderResponse forwards a provider lookup response to the client
// verbatim.
func (h *PaymentHandlers) writeProviderResponse(w http.ResponseWriter, resp *pagaclient.ProviderResponse) {
	h.writeJSON(w, http.StatusOK, resp)
}

// writeJSON is a helper for writing JSON responses.
func (h *PaymentHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *PaymentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
