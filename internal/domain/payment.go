/**
 * @description
 * This file defines the core domain models for the paga-gateway service:
 * the mirrored wallet account, the append-only transaction record, and the
 * request/result shapes the payment workflow operates on.
 *
 * @notes
 * - Balances and amounts are `int64` in the smallest currency unit (kobo),
 *   which avoids floating-point inaccuracies with financial data. The
 *   string-encoded Amount on TransactionRecord is the persisted shape the
 *   mobile clients read; it is derived from the int64 value at write time.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/kobowallet/paga-gateway/pkg/pagaclient"
)

// Transaction record statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Ledger categories. These names are part of the external contract: mobile
// clients query them directly, so they must not be renamed.
const (
	CollectionSportyBet   = "sportyBetTransactions"
	CollectionElectricity = "buyElectricity"
	CollectionCable       = "cableTransactions"
	CollectionGeneric     = "genericTransactions"
	CollectionDataBundle  = "buyDataNotifications"
	CollectionAirtime     = "buyAirtimeNotifications"
	CollectionFailed      = "failedTransactions"
)

// AirtimeCollection selects the ledger category for an airtime or data
// purchase. Both successful and failed attempts land in the same category.
func AirtimeCollection(isDataBundle bool) string {
	if isDataBundle {
		return CollectionDataBundle
	}
	return CollectionAirtime
}

// MerchantCollection selects the ledger category for a successful merchant
// payment from the caller-supplied bill type, with a generic fallback for
// unrecognized tags. Failed merchant payments always go to CollectionFailed.
func MerchantCollection(billType string) string {
	switch billType {
	case "sportybet":
		return CollectionSportyBet
	case "electricity":
		return CollectionElectricity
	case "cable":
		return CollectionCable
	default:
		return CollectionGeneric
	}
}

// WalletAccount is the locally mirrored view of a user: identity-provider
// subject, profile basics, and the cached balance debit operations are
// gated on. Rows are created at signup and never deleted by this service.
type WalletAccount struct {
	ID          uuid.UUID `json:"-"`
	UserID      string    `json:"userID"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Balance     int64     `json:"balance"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TransactionRecord is one immutable row in a ledger category: one record
// per debit attempt, success or failure. Response holds the raw provider
// payload for the attempt.
type TransactionRecord struct {
	ID                      uuid.UUID              `json:"id"`
	Category                string                 `json:"-"`
	UserID                  string                 `json:"userId"`
	TransactionID           string                 `json:"transactionId"`
	Amount                  string                 `json:"amount"`
	Status                  string                 `json:"status"`
	PhoneNumber             string                 `json:"phoneNumber,omitempty"`
	MerchantAccount         string                 `json:"merchantAccount,omitempty"`
	MerchantReferenceNumber string                 `json:"merchantReferenceNumber,omitempty"`
	MerchantService         string                 `json:"merchantService,omitempty"`
	Response                map[string]interface{} `json:"response,omitempty"`
	CreatedAt               time.Time              `json:"timestamp"`
}

// AirtimePurchaseRequest is the DTO for an airtime or data purchase.
type AirtimePurchaseRequest struct {
	ReferenceNumber         string `json:"-"`
	UserID                  string `json:"userId"`
	Amount                  int64  `json:"amount"` // in kobo
	DestinationNumber       string `json:"destinationNumber"`
	MobileOperatorPublicID  string `json:"mobileOperatorPublicId"`
	IsDataBundle            bool   `json:"isDataBundle"`
	MobileOperatorServiceID int64  `json:"mobileOperatorServiceId,omitempty"`
}

// MerchantPaymentRequest is the DTO for a merchant bill payment.
type MerchantPaymentRequest struct {
	ReferenceNumber         string `json:"-"`
	UserID                  string `json:"userId"`
	Amount                  int64  `json:"amount"` // in kobo
	MerchantAccount         string `json:"merchantAccount"`
	MerchantReferenceNumber string `json:"merchantReferenceNumber"`
	Currency                string `json:"currency"`
	MerchantService         string `json:"merchantService,omitempty"`
	Locale                  string `json:"locale,omitempty"`
	BillType                string `json:"billType,omitempty"`
}

// PaymentResult is the terminal outcome of one debit workflow. Expected
// business outcomes (invalid input, unknown user, insufficient balance,
// provider decline) are expressed here rather than as errors; only
// transport, configuration, and store failures surface as Go errors.
type PaymentResult struct {
	Success        bool                         `json:"success"`
	Message        string                       `json:"message"`
	UpdatedBalance *int64                       `json:"updatedBalance,omitempty"`
	Transaction    *pagaclient.ProviderResponse `json:"transaction,omitempty"`
	Response       *pagaclient.ProviderResponse `json:"response,omitempty"`
}
