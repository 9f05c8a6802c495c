/**
 * @description
 * This package provides a client for the Paga business REST API. It
 * encapsulates request signing, header construction, and response decoding
 * for every provider operation the gateway forwards: catalog lookups,
 * airtime/data purchases, merchant payments, and transaction status checks.
 *
 * Every call attaches the three headers Paga requires (`principal`,
 * `credentials`, `hash`) plus a JSON content type. The `hash` header is the
 * SHA-512 signature over an operation-specific field sequence; see
 * signature.go. Responses are returned verbatim — the client never
 * interprets the business-level `responseCode` beyond exposing it.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package pagaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const securedBasePath = "/paga-webservices/business-rest/secured"

// ErrMissingHashKey is returned when a call is attempted without the shared
// HMAC key configured. The caller should treat this as a deployment problem,
// not a request problem.
var ErrMissingHashKey = errors.New("paga hmac key is not configured")

// Client is a client for the Paga business API.
type Client struct {
	BaseURL    string
	Principal  string
	Credential string
	HashKey    string
	HTTPClient *http.Client
}

// NewClient creates a new Paga API client.
func NewClient(baseURL, principal, credential, hashKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Principal:  principal,
		Credential: credential,
		HashKey:    hashKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents a transport-level failure from the Paga API: any
// non-2xx status. The upstream status and raw body are preserved so the
// caller can log or surface them.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paga api error: status %d: %s", e.StatusCode, e.Body)
}

// ProviderResponse is the decoded body of a 2xx Paga response. Paga signals
// business-level outcomes through `responseCode`, where 0 means success; the
// rest of the payload is operation-specific and kept opaque in Raw.
// CodePresent records whether the body actually carried a numeric
// `responseCode`; a body without one must never be read as success.
type ProviderResponse struct {
	ResponseCode int64
	CodePresent  bool
	Message      string
	Raw          map[string]interface{}
}

// Declined reports whether Paga rejected the operation at the business level.
// Only an explicit `responseCode` of 0 counts as success; an absent or
// malformed code is treated as a decline. This is the only place the success
// literal is interpreted.
func (r *ProviderResponse) Declined() bool {
	return !r.CodePresent || r.ResponseCode != 0
}

// MarshalJSON re-emits the provider payload verbatim so API responses carry
// exactly what Paga returned.
func (r ProviderResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Raw)
}

func decodeProviderResponse(body []byte) (*ProviderResponse, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	resp := &ProviderResponse{Raw: raw}
	if code, ok := raw["responseCode"].(float64); ok {
		resp.ResponseCode = int64(code)
		resp.CodePresent = true
	}
	if msg, ok := raw["message"].(string); ok {
		resp.Message = msg
	}
	return resp, nil
}

// call executes one signed POST against a secured Paga endpoint and returns
// the decoded body. hashFields must follow the operation's documented order.
func (c *Client) call(ctx context.Context, endpoint string, payload interface{}, hashFields []string) (*ProviderResponse, error) {
	if strings.TrimSpace(c.HashKey) == "" {
		return nil, ErrMissingHashKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+securedBasePath+"/"+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("principal", c.Principal)
	req.Header.Set("credentials", c.Credential)
	req.Header.Set("hash", Signature(hashFields, c.HashKey))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	return decodeProviderResponse(bodyBytes)
}

// GetMobileOperators fetches the mobile operator catalog.
func (c *Client) GetMobileOperators(ctx context.Context, referenceNumber, locale string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber string `json:"referenceNumber"`
		Locale          string `json:"locale"`
	}{referenceNumber, locale}
	return c.call(ctx, "getMobileOperators", payload, []string{referenceNumber, "", ""})
}

// GetDataBundleByOperator fetches the data bundle catalog for one operator.
func (c *Client) GetDataBundleByOperator(ctx context.Context, referenceNumber, operatorPublicID string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber  string `json:"referenceNumber"`
		OperatorPublicID string `json:"operatorPublicId"`
	}{referenceNumber, operatorPublicID}
	return c.call(ctx, "getDataBundleByOperator", payload, []string{referenceNumber, operatorPublicID})
}

// GetBanks fetches the bank list.
func (c *Client) GetBanks(ctx context.Context, referenceNumber, locale string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber string `json:"referenceNumber"`
		Locale          string `json:"locale"`
	}{referenceNumber, locale}
	return c.call(ctx, "getBanks", payload, []string{referenceNumber, "", ""})
}

// GetMerchants fetches the merchant list.
func (c *Client) GetMerchants(ctx context.Context, referenceNumber, locale string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber string `json:"referenceNumber"`
		Locale          string `json:"locale"`
	}{referenceNumber, locale}
	return c.call(ctx, "getMerchants", payload, []string{referenceNumber, "", ""})
}

// GetMerchantServices fetches the service list for one merchant.
func (c *Client) GetMerchantServices(ctx context.Context, referenceNumber, merchantPublicID string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber  string `json:"referenceNumber"`
		MerchantPublicID string `json:"merchantPublicId"`
		Locale           string `json:"locale"`
	}{referenceNumber, merchantPublicID, "en"}
	return c.call(ctx, "getMerchantServices", payload, []string{referenceNumber, merchantPublicID})
}

// GetMerchantAccountDetails resolves a customer account held with a merchant.
// productCode may be empty; it still participates in the signature as the
// empty string per Paga's signing contract.
func (c *Client) GetMerchantAccountDetails(ctx context.Context, referenceNumber, merchantAccount, merchantReferenceNumber, productCode string) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber         string `json:"referenceNumber"`
		MerchantAccount         string `json:"merchantAccount"`
		MerchantReferenceNumber string `json:"merchantReferenceNumber"`
		ProductCode             string `json:"merchantServiceProductCode,omitempty"`
	}{referenceNumber, merchantAccount, merchantReferenceNumber, productCode}
	return c.call(ctx, "getMerchantAccountDetails", payload, []string{referenceNumber, merchantAccount, merchantReferenceNumber, productCode})
}

// AirtimePurchaseParams carries the inputs for an airtime or data purchase.
type AirtimePurchaseParams struct {
	ReferenceNumber         string
	Amount                  int64
	DestinationPhoneNumber  string
	MobileOperatorPublicID  string
	IsDataBundle            bool
	MobileOperatorServiceID int64
}

// AirtimePurchase debits airtime or a data bundle to a phone number.
func (c *Client) AirtimePurchase(ctx context.Context, p AirtimePurchaseParams) (*ProviderResponse, error) {
	payload := struct {
		ReferenceNumber             string `json:"referenceNumber"`
		MobileOperatorPublicID      string `json:"mobileOperatorPublicId"`
		Amount                      int64  `json:"amount"`
		Currency                    string `json:"currency"`
		DestinationPhoneNumber      string `json:"destinationPhoneNumber"`
		IsSuppressRecipientMessages bool   `json:"isSuppressRecipientMessages"`
		IsDataBundle                bool   `json:"isDataBundle"`
		MobileOperatorServiceID     int64  `json:"mobileOperatorServiceId,omitempty"`
	}{
		ReferenceNumber:         p.ReferenceNumber,
		MobileOperatorPublicID:  p.MobileOperatorPublicID,
		Amount:                  p.Amount,
		Currency:                "NGN",
		DestinationPhoneNumber:  p.DestinationPhoneNumber,
		IsDataBundle:            p.IsDataBundle,
		MobileOperatorServiceID: p.MobileOperatorServiceID,
	}
	hashFields := []string{p.ReferenceNumber, strconv.FormatInt(p.Amount, 10), p.DestinationPhoneNumber}
	return c.call(ctx, "airtimePurchase", payload, hashFields)
}

// MerchantPaymentParams carries the inputs for a merchant bill payment.
type MerchantPaymentParams struct {
	ReferenceNumber         string
	Amount                  int64
	MerchantAccount         string
	MerchantReferenceNumber string
	Currency                string
	MerchantService         string
	Locale                  string
}

// MerchantPayment pays a merchant on behalf of the caller's account with
// that merchant.
func (c *Client) MerchantPayment(ctx context.Context, p MerchantPaymentParams) (*ProviderResponse, error) {
	payload := struct {
		MerchantReferenceNumber string `json:"merchantReferenceNumber"`
		Amount                  int64  `json:"amount"`
		MerchantAccount         string `json:"merchantAccount"`
		ReferenceNumber         string `json:"referenceNumber"`
		Currency                string `json:"currency"`
		MerchantService         string `json:"merchantService,omitempty"`
		Locale                  string `json:"locale,omitempty"`
	}{
		MerchantReferenceNumber: p.MerchantReferenceNumber,
		Amount:                  p.Amount,
		MerchantAccount:         p.MerchantAccount,
		ReferenceNumber:         p.ReferenceNumber,
		Currency:                p.Currency,
		MerchantService:         p.MerchantService,
		Locale:                  p.Locale,
	}
	hashFields := []string{p.ReferenceNumber, strconv.FormatInt(p.Amount, 10), p.MerchantAccount, p.MerchantReferenceNumber}
	return c.call(ctx, "merchantPayment", payload, hashFields)
}

// TransactionStatus looks up the status of a previously submitted operation.
func (c *Client) TransactionStatus(ctx context.Context, referenceNumber, locale string) (*ProviderResponse, error) {
	if locale == "" {
		locale = "en"
	}
	payload := struct {
		ReferenceNumber string `json:"referenceNumber"`
		Locale          string `json:"locale"`
	}{referenceNumber, locale}
	return c.call(ctx, "transactionStatus", payload, []string{referenceNumber})
}
