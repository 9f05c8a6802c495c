/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface: the `wallet_accounts` mirror keyed by external identity ID and
 * the append-only `transaction_records` ledger.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kobowallet/paga-gateway/internal/domain"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateUserAccount inserts the wallet mirror row for a newly signed-up user.
func (r *PostgresRepository) CreateUserAccount(ctx context.Context, account *domain.WalletAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	query := `INSERT INTO wallet_accounts (id, user_id, display_name, email, balance)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := r.db.QueryRow(ctx, query, account.ID, account.UserID, account.DisplayName, account.Email, account.Balance).
		Scan(&account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation on user_id
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create wallet account: %w", err)
	}
	return nil
}

// FindAccountByUserID retrieves the wallet account for an external identity ID.
func (r *PostgresRepository) FindAccountByUserID(ctx context.Context, userID string) (*domain.WalletAccount, error) {
	var account domain.WalletAccount
	query := `SELECT id, user_id, display_name, email, COALESCE(balance, 0), created_at
	          FROM wallet_accounts WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&account.ID, &account.UserID, &account.DisplayName, &account.Email, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &account, nil
}

// DebitBalance decrements the cached balance if and only if it covers the
// amount, inside one transaction. The row lock makes concurrent debits
// against the same account serialize instead of both passing a stale check.
func (r *PostgresRepository) DebitBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, "SELECT COALESCE(balance, 0) FROM wallet_accounts WHERE user_id = $1 FOR UPDATE", userID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	if balance < amount {
		return 0, ErrInsufficientFunds
	}

	newBalance := balance - amount
	if _, err := tx.Exec(ctx, "UPDATE wallet_accounts SET balance = $1 WHERE user_id = $2", newBalance, userID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditBalance increments the cached balance. Used to return reserved funds
// when the provider declines or the call fails.
func (r *PostgresRepository) CreditBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	var newBalance int64
	query := `UPDATE wallet_accounts SET balance = COALESCE(balance, 0) + $1 WHERE user_id = $2 RETURNING balance`
	err := r.db.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return newBalance, nil
}

// CreateTransactionRecord appends one row to the ledger. There is no update
// or delete path for transaction_records anywhere in this service.
func (r *PostgresRepository) CreateTransactionRecord(ctx context.Context, record *domain.TransactionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var responseJSON []byte
	if record.Response != nil {
		encoded, err := json.Marshal(record.Response)
		if err != nil {
			return fmt.Errorf("failed to encode provider response: %w", err)
		}
		responseJSON = encoded
	}

	query := `INSERT INTO transaction_records
	          (id, category, user_id, transaction_id, amount, status, phone_number,
	           merchant_account, merchant_reference_number, merchant_service, response, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.Category,
		record.UserID,
		record.TransactionID,
		record.Amount,
		record.Status,
		nullIfEmpty(record.PhoneNumber),
		nullIfEmpty(record.MerchantAccount),
		nullIfEmpty(record.MerchantReferenceNumber),
		nullIfEmpty(record.MerchantService),
		responseJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction record: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
