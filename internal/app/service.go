/**
 * @description
 * This file contains the core business logic for the paga-gateway. The
 * `Service` struct orchestrates the two debit workflows (airtime/data
 * purchase and merchant payment) and the read-only provider passthroughs,
 * coordinating between the database repository, the Paga API client, and
 * the message broker.
 *
 * Both debit workflows follow the same shape:
 *   validate -> reserve funds -> call provider -> settle or refund -> record.
 * Funds are reserved with an atomic conditional decrement BEFORE the
 * provider call; a decline or transport failure credits the reservation
 * back. Reserving first means two concurrent debits cannot both pass the
 * balance check against a stale read, and the provider is never invoked for
 * an account that cannot cover the amount.
 *
 * Expected business outcomes (invalid input, unknown user, insufficient
 * balance, provider decline) come back as PaymentResult values. Only
 * transport, configuration, and store failures return errors.
 *
 * @dependencies
 * - context, fmt, log, strconv, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/pagaclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/kobowallet/paga-gateway/internal/domain"
	"github.com/kobowallet/paga-gateway/internal/metrics"
	"github.com/kobowallet/paga-gateway/internal/store"
	"github.com/kobowallet/paga-gateway/pkg/pagaclient"
	"github.com/kobowallet/paga-gateway/pkg/rabbitmq"
)

// ProviderClient is the subset of the Paga API the workflows depend on.
// *pagaclient.Client satisfies it.
type ProviderClient interface {
	GetMobileOperators(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error)
	GetDataBundleByOperator(ctx context.Context, referenceNumber, operatorPublicID string) (*pagaclient.ProviderResponse, error)
	GetBanks(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error)
	GetMerchants(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error)
	GetMerchantServices(ctx context.Context, referenceNumber, merchantPublicID string) (*pagaclient.ProviderResponse, error)
	GetMerchantAccountDetails(ctx context.Context, referenceNumber, merchantAccount, merchantReferenceNumber, productCode string) (*pagaclient.ProviderResponse, error)
	AirtimePurchase(ctx context.Context, p pagaclient.AirtimePurchaseParams) (*pagaclient.ProviderResponse, error)
	MerchantPayment(ctx context.Context, p pagaclient.MerchantPaymentParams) (*pagaclient.ProviderResponse, error)
	TransactionStatus(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error)
}

// Service provides the core business logic for payment forwarding.
type Service struct {
	repo          store.Repository
	provider      ProviderClient
	eventProducer rabbitmq.Publisher
}

// NewService creates a new payment service instance.
func NewService(repo store.Repository, provider ProviderClient, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		provider:      provider,
		eventProducer: producer,
	}
}

func invalidRequest() *domain.PaymentResult {
	return &domain.PaymentResult{Success: false, Message: "Invalid input: All fields are required."}
}

func userNotFound(userID string) *domain.PaymentResult {
	return &domain.PaymentResult{Success: false, Message: fmt.Sprintf("User with ID %s not found.", userID)}
}

// PurchaseAirtime handles the airtime/data debit workflow.
func (s *Service) PurchaseAirtime(ctx context.Context, req domain.AirtimePurchaseRequest) (*domain.PaymentResult, error) {
	kind := "airtime"
	if req.IsDataBundle {
		kind = "data"
	}

	if anyBlank(req.ReferenceNumber, req.DestinationNumber, req.MobileOperatorPublicID, req.UserID) || req.Amount <= 0 {
		log.Printf("level=warn component=app workflow=%s outcome=reject reason=invalid_request reference=%s", kind, req.ReferenceNumber)
		return invalidRequest(), nil
	}

	// Reserve funds. ErrUserNotFound / ErrInsufficientFunds are expected
	// outcomes; anything else is a store failure.
	balance, err := s.repo.DebitBalance(ctx, req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return userNotFound(req.UserID), nil
		}
		if errors.Is(err, store.ErrInsufficientFunds) {
			return &domain.PaymentResult{Success: false, Message: "Insufficient balance to complete the airtime purchase."}, nil
		}
		return nil, fmt.Errorf("failed to reserve funds: %w", err)
	}

	resp, err := s.provider.AirtimePurchase(ctx, pagaclient.AirtimePurchaseParams{
		ReferenceNumber:         req.ReferenceNumber,
		Amount:                  req.Amount,
		DestinationPhoneNumber:  req.DestinationNumber,
		MobileOperatorPublicID:  req.MobileOperatorPublicID,
		IsDataBundle:            req.IsDataBundle,
		MobileOperatorServiceID: req.MobileOperatorServiceID,
	})
	if err != nil {
		s.refund(ctx, req.UserID, req.Amount, req.ReferenceNumber)
		metrics.ProviderCallsTotal.WithLabelValues("airtimePurchase", "error").Inc()
		return nil, fmt.Errorf("paga airtime purchase failed: %w", err)
	}
	metrics.ProviderCallsTotal.WithLabelValues("airtimePurchase", "ok").Inc()

	record := &domain.TransactionRecord{
		Category:      domain.AirtimeCollection(req.IsDataBundle),
		UserID:        req.UserID,
		TransactionID: req.ReferenceNumber,
		Amount:        strconv.FormatInt(req.Amount, 10),
		PhoneNumber:   req.DestinationNumber,
		Response:      resp.Raw,
	}

	if resp.Declined() {
		log.Printf("level=warn component=app workflow=%s outcome=declined reference=%s response_code=%d", kind, req.ReferenceNumber, resp.ResponseCode)
		s.refund(ctx, req.UserID, req.Amount, req.ReferenceNumber)
		record.Status = domain.StatusFailed
		s.appendRecord(ctx, record)
		s.publishOutcome(ctx, req.UserID, kind, domain.StatusFailed, req.Amount, req.ReferenceNumber)

		message := "Airtime purchase failed."
		if req.IsDataBundle {
			message = "Data bundle purchase failed."
		}
		return &domain.PaymentResult{Success: false, Message: message, Response: resp}, nil
	}

	record.Status = domain.StatusSuccess
	s.appendRecord(ctx, record)
	s.publishOutcome(ctx, req.UserID, kind, domain.StatusSuccess, req.Amount, req.ReferenceNumber)

	log.Printf("level=info component=app workflow=%s outcome=success reference=%s user_id=%s amount=%d updated_balance=%d", kind, req.ReferenceNumber, req.UserID, req.Amount, balance)
	message := "Airtime purchase successful."
	if req.IsDataBundle {
		message = "Data bundle purchase successful."
	}
	return &domain.PaymentResult{
		Success:        true,
		Message:        message,
		UpdatedBalance: &balance,
		Transaction:    resp,
	}, nil
}

// PayMerchant handles the merchant bill payment debit workflow.
func (s *Service) PayMerchant(ctx context.Context, req domain.MerchantPaymentRequest) (*domain.PaymentResult, error) {
	if anyBlank(req.ReferenceNumber, req.MerchantAccount, req.MerchantReferenceNumber, req.UserID) || req.Amount <= 0 {
		log.Printf("level=warn component=app workflow=merchant outcome=reject reason=invalid_request reference=%s", req.ReferenceNumber)
		return invalidRequest(), nil
	}

	balance, err := s.repo.DebitBalance(ctx, req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return userNotFound(req.UserID), nil
		}
		if errors.Is(err, store.ErrInsufficientFunds) {
			return &domain.PaymentResult{Success: false, Message: "Insufficient balance to complete the payment."}, nil
		}
		return nil, fmt.Errorf("failed to reserve funds: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}
	resp, err := s.provider.MerchantPayment(ctx, pagaclient.MerchantPaymentParams{
		ReferenceNumber:         req.ReferenceNumber,
		Amount:                  req.Amount,
		MerchantAccount:         req.MerchantAccount,
		MerchantReferenceNumber: req.MerchantReferenceNumber,
		Currency:                currency,
		MerchantService:         req.MerchantService,
		Locale:                  req.Locale,
	})
	if err != nil {
		s.refund(ctx, req.UserID, req.Amount, req.ReferenceNumber)
		metrics.ProviderCallsTotal.WithLabelValues("merchantPayment", "error").Inc()
		return nil, fmt.Errorf("paga merchant payment failed: %w", err)
	}
	metrics.ProviderCallsTotal.WithLabelValues("merchantPayment", "ok").Inc()

	record := &domain.TransactionRecord{
		UserID:                  req.UserID,
		TransactionID:           req.ReferenceNumber,
		Amount:                  strconv.FormatInt(req.Amount, 10),
		MerchantAccount:         req.MerchantAccount,
		MerchantReferenceNumber: req.MerchantReferenceNumber,
		MerchantService:         req.MerchantService,
		Response:                resp.Raw,
	}

	if resp.Declined() {
		log.Printf("level=warn component=app workflow=merchant outcome=declined reference=%s response_code=%d", req.ReferenceNumber, resp.ResponseCode)
		s.refund(ctx, req.UserID, req.Amount, req.ReferenceNumber)
		// Merchant failures land in the shared failedTransactions collection,
		// unlike airtime failures which stay in their category collection.
		record.Category = domain.CollectionFailed
		record.Status = domain.StatusFailed
		s.appendRecord(ctx, record)
		s.publishOutcome(ctx, req.UserID, "merchant", domain.StatusFailed, req.Amount, req.ReferenceNumber)

		return &domain.PaymentResult{Success: false, Message: "Merchant payment failed.", Response: resp}, nil
	}

	record.Category = domain.MerchantCollection(req.BillType)
	record.Status = domain.StatusSuccess
	s.appendRecord(ctx, record)
	s.publishOutcome(ctx, req.UserID, "merchant", domain.StatusSuccess, req.Amount, req.ReferenceNumber)

	log.Printf("level=info component=app workflow=merchant outcome=success reference=%s user_id=%s amount=%d updated_balance=%d", req.ReferenceNumber, req.UserID, req.Amount, balance)
	return &domain.PaymentResult{
		Success:        true,
		Message:        "Merchant payment successful.",
		UpdatedBalance: &balance,
		Transaction:    resp,
	}, nil
}

// refund returns reserved funds after a provider decline or failure. A
// failed refund leaves the local balance lower than the provider's view and
// must be reconciled by hand, so it is logged at critical level.
func (s *Service) refund(ctx context.Context, userID string, amount int64, referenceNumber string) {
	if _, err := s.repo.CreditBalance(ctx, userID, amount); err != nil {
		log.Printf("level=error component=app msg=\"CRITICAL: failed to refund reserved funds\" user_id=%s amount=%d reference=%s err=%v", userID, amount, referenceNumber, err)
	}
}

// appendRecord writes the ledger row for one debit attempt. The debit has
// already settled (or been refunded) at this point, so a write failure is
// logged rather than turned into a client-facing error that could trigger a
// double-spending retry.
func (s *Service) appendRecord(ctx context.Context, record *domain.TransactionRecord) {
	if err := s.repo.CreateTransactionRecord(ctx, record); err != nil {
		log.Printf("level=error component=app msg=\"CRITICAL: failed to append transaction record\" category=%s reference=%s user_id=%s err=%v", record.Category, record.TransactionID, record.UserID, err)
	}
}

func (s *Service) publishOutcome(ctx context.Context, userID, kind, status string, amount int64, referenceNumber string) {
	metrics.PaymentsTotal.WithLabelValues(kind, status).Inc()
	if s.eventProducer == nil {
		return
	}
	event := rabbitmq.PaymentEvent{
		UserID:          userID,
		Kind:            kind,
		Status:          status,
		Amount:          amount,
		ReferenceNumber: referenceNumber,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.eventProducer.PublishPaymentEvent(ctx, event); err != nil {
		log.Printf("level=warn component=app msg=\"payment event publish failed\" user_id=%s kind=%s status=%s err=%v", userID, kind, status, err)
	}
}

// RegisterUser mirrors a freshly created identity into the wallet store.
func (s *Service) RegisterUser(ctx context.Context, account *domain.WalletAccount) error {
	return s.repo.CreateUserAccount(ctx, account)
}

// GetWalletAccount returns the mirrored wallet for an identity subject.
func (s *Service) GetWalletAccount(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	return s.repo.FindAccountByUserID(ctx, userID)
}

// Read-only provider passthroughs. These return the provider's response
// verbatim and perform no balance checks or record writes.

func (s *Service) LookupMobileOperators(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetMobileOperators(ctx, referenceNumber, locale)
}

func (s *Service) LookupDataBundles(ctx context.Context, referenceNumber, operatorPublicID string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetDataBundleByOperator(ctx, referenceNumber, operatorPublicID)
}

func (s *Service) LookupBanks(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetBanks(ctx, referenceNumber, locale)
}

func (s *Service) LookupMerchants(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetMerchants(ctx, referenceNumber, locale)
}

func (s *Service) LookupMerchantServices(ctx context.Context, referenceNumber, merchantPublicID string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetMerchantServices(ctx, referenceNumber, merchantPublicID)
}

func (s *Service) LookupMerchantAccountDetails(ctx context.Context, referenceNumber, merchantAccount, merchantReferenceNumber, productCode string) (*pagaclient.ProviderResponse, error) {
	return s.provider.GetMerchantAccountDetails(ctx, referenceNumber, merchantAccount, merchantReferenceNumber, productCode)
}

func (s *Service) LookupTransactionStatus(ctx context.Context, referenceNumber, locale string) (*pagaclient.ProviderResponse, error) {
	return s.provider.TransactionStatus(ctx, referenceNumber, locale)
}

func anyBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
