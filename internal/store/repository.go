/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access the paga-gateway needs: the wallet account mirror and
 * the append-only transaction ledger. Defining an interface decouples the
 * workflow logic from the PostgreSQL implementation and keeps it testable
 * with in-memory stubs.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/kobowallet/paga-gateway/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Wallet account methods. UserID is the external identity subject.
	CreateUserAccount(ctx context.Context, account *domain.WalletAccount) error
	FindAccountByUserID(ctx context.Context, userID string) (*domain.WalletAccount, error)

	// DebitBalance atomically checks and decrements the cached balance,
	// returning the updated balance. It serializes concurrent debits against
	// the same account; callers reserve funds with it before any provider
	// call and compensate with CreditBalance if the provider does not settle.
	DebitBalance(ctx context.Context, userID string, amount int64) (int64, error)
	CreditBalance(ctx context.Context, userID string, amount int64) (int64, error)

	// CreateTransactionRecord appends one immutable row to the record's
	// ledger category. Records are never updated or deleted.
	CreateTransactionRecord(ctx context.Context, record *domain.TransactionRecord) error
}
