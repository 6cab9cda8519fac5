package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals a lookup miss. Callers decide whether that is fatal or
// triggers provisioning.
var ErrNotFound = errors.New("record not found")

// Repository persists accounts, wallets and bank accounts. Provisioning
// methods create the owning account and its wallet or bank account in one
// transaction.
type Repository interface {
	ProvisionWallet(ctx context.Context, account Account, w Wallet) error
	ProvisionBankAccount(ctx context.Context, account Account, b BankAccount) error
	Wallet(ctx context.Context, id uuid.UUID) (Wallet, error)
	Wallets(ctx context.Context, ids ...uuid.UUID) ([]Wallet, error)
	BankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error)
	HasWalletForUser(ctx context.Context, userID uuid.UUID) (bool, error)
	AccountIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PostgresRepository stores entities in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ProvisionWallet inserts the owning account and the wallet in one transaction.
func (r *PostgresRepository) ProvisionWallet(ctx context.Context, account Account, w Wallet) error {
	return r.provision(ctx, account, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO wallets (id, account_id, balance, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			w.ID, w.AccountID, w.Balance, w.CreatedAt.UTC(), w.UpdatedAt.UTC(),
		)
		return err
	})
}

// ProvisionBankAccount inserts the owning account and the bank account in one
// transaction, honoring the caller-supplied bank account id.
func (r *PostgresRepository) ProvisionBankAccount(ctx context.Context, account Account, b BankAccount) error {
	return r.provision(ctx, account, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO bank_accounts (id, account_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			b.ID, b.AccountID, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
		)
		return err
	})
}

func (r *PostgresRepository) provision(ctx context.Context, account Account, insert func(pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (id, user_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		account.ID, account.UserID, account.CreatedAt.UTC(), account.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("insert owned record: %w", err)
	}
	return tx.Commit(ctx)
}

// Wallet fetches a wallet joined with its owning account.
func (r *PostgresRepository) Wallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	row := r.db.QueryRow(ctx, walletQuery+` WHERE w.id = $1`, id)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	return w, err
}

// Wallets fetches several wallets in one query. Absent ids are simply
// missing from the result; the caller detects the shortfall.
func (r *PostgresRepository) Wallets(ctx context.Context, ids ...uuid.UUID) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, walletQuery+` WHERE w.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// BankAccount fetches a bank account joined with its owning account.
func (r *PostgresRepository) BankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	row := r.db.QueryRow(ctx,
		`SELECT b.id, b.account_id, a.user_id, b.created_at, b.updated_at
           FROM bank_accounts b JOIN accounts a ON a.id = b.account_id
          WHERE b.id = $1`, id)
	var b BankAccount
	var createdAt, updatedAt time.Time
	if err := row.Scan(&b.ID, &b.AccountID, &b.UserID, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrNotFound
		}
		return BankAccount{}, fmt.Errorf("get bank account: %w", err)
	}
	b.CreatedAt = createdAt.UTC()
	b.UpdatedAt = updatedAt.UTC()
	return b, nil
}

// HasWalletForUser reports whether any wallet exists under an account owned
// by the user.
func (r *PostgresRepository) HasWalletForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM wallets w JOIN accounts a ON a.id = w.account_id WHERE a.user_id = $1
        )`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("wallet exists: %w", err)
	}
	return exists, nil
}

// AccountIDsForUser returns every account id linked to the user, wallets and
// bank accounts alike.
func (r *PostgresRepository) AccountIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM accounts WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const walletQuery = `SELECT w.id, w.account_id, a.user_id, w.balance, w.created_at, w.updated_at
   FROM wallets w JOIN accounts a ON a.id = w.account_id`

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var createdAt, updatedAt time.Time
	if err := row.Scan(&w.ID, &w.AccountID, &w.UserID, &w.Balance, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, err
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}
