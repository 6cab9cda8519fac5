package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/ledger"
)

var (
	// ErrWalletExists indicates the user already owns a wallet.
	ErrWalletExists = errors.New("wallet already exists")
	// ErrWalletNotFound indicates the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrBankAccountNotFound indicates the referenced bank account does not
	// exist or belongs to another user.
	ErrBankAccountNotFound = errors.New("bank account not found")
)

// Service provisions wallets and bank accounts and answers wallet reads.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(repo Repository, ledger ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Create provisions a wallet for the user. A user owns at most one wallet;
// a second request conflicts and leaves the existing wallet untouched.
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	exists, err := s.repo.HasWalletForUser(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}
	if exists {
		return Wallet{}, ErrWalletExists
	}

	now := time.Now().UTC()
	account := Account{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	w := Wallet{
		ID:        uuid.New(),
		AccountID: account.ID,
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.ProvisionWallet(ctx, account, w); err != nil {
		return Wallet{}, fmt.Errorf("provision wallet: %w", err)
	}
	return w, nil
}

// CreateBankAccount registers a funding source for the user under a fresh
// owning account. Bank accounts are never deduplicated; a user may
// accumulate many.
func (s *Service) CreateBankAccount(ctx context.Context, userID, bankAccountID uuid.UUID) (BankAccount, error) {
	now := time.Now().UTC()
	account := Account{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	b := BankAccount{
		ID:        bankAccountID,
		AccountID: account.ID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.ProvisionBankAccount(ctx, account, b); err != nil {
		return BankAccount{}, fmt.Errorf("provision bank account: %w", err)
	}
	return b, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Wallet, error) {
	w, err := s.repo.Wallet(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Wallet{}, ErrWalletNotFound
	}
	return w, err
}

// GetMany retrieves several wallets in one repository call. Absent ids are
// missing from the result.
func (s *Service) GetMany(ctx context.Context, ids ...uuid.UUID) ([]Wallet, error) {
	return s.repo.Wallets(ctx, ids...)
}

// BankAccount retrieves a bank account by id.
func (s *Service) BankAccount(ctx context.Context, id uuid.UUID) (BankAccount, error) {
	b, err := s.repo.BankAccount(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return BankAccount{}, ErrBankAccountNotFound
	}
	return b, err
}

// History returns every ledger entry recorded against any account the
// wallet's owner has held, ordered by creation time then id.
func (s *Service) History(ctx context.Context, walletID uuid.UUID) ([]ledger.Entry, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	accountIDs, err := s.repo.AccountIDsForUser(ctx, w.UserID)
	if err != nil {
		return nil, err
	}
	return s.ledger.EntriesForAccounts(ctx, accountIDs)
}
