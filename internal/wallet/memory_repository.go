package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryRepository is an in-memory Repository for tests. It also implements
// ledger.BalanceWriter so the in-memory ledger can rewrite balance caches.
type MemoryRepository struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]Account
	accountOrder []uuid.UUID
	wallets      map[uuid.UUID]Wallet
	bankAccounts map[uuid.UUID]BankAccount
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:     make(map[uuid.UUID]Account),
		wallets:      make(map[uuid.UUID]Wallet),
		bankAccounts: make(map[uuid.UUID]BankAccount),
	}
}

// ProvisionWallet stores the account and wallet together.
func (r *MemoryRepository) ProvisionWallet(_ context.Context, account Account, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[w.ID]; exists {
		return errors.New("wallet exists")
	}
	r.storeAccountLocked(account)
	r.wallets[w.ID] = w
	return nil
}

// ProvisionBankAccount stores the account and bank account together.
func (r *MemoryRepository) ProvisionBankAccount(_ context.Context, account Account, b BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bankAccounts[b.ID]; exists {
		return errors.New("bank account exists")
	}
	r.storeAccountLocked(account)
	r.bankAccounts[b.ID] = b
	return nil
}

// Wallet fetches a wallet by id.
func (r *MemoryRepository) Wallet(_ context.Context, id uuid.UUID) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

// Wallets fetches the wallets that exist among the given ids.
func (r *MemoryRepository) Wallets(_ context.Context, ids ...uuid.UUID) ([]Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var wallets []Wallet
	for _, id := range ids {
		if w, ok := r.wallets[id]; ok {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// BankAccount fetches a bank account by id.
func (r *MemoryRepository) BankAccount(_ context.Context, id uuid.UUID) (BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bankAccounts[id]
	if !ok {
		return BankAccount{}, ErrNotFound
	}
	return b, nil
}

// HasWalletForUser reports whether the user already owns a wallet.
func (r *MemoryRepository) HasWalletForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// AccountIDsForUser returns the user's account ids in creation order.
func (r *MemoryRepository) AccountIDsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []uuid.UUID
	for _, id := range r.accountOrder {
		if r.accounts[id].UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// UpdateBalance rewrites a wallet's cached balance.
func (r *MemoryRepository) UpdateBalance(_ context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return ErrNotFound
	}
	w.Balance = balance
	r.wallets[walletID] = w
	return nil
}

func (r *MemoryRepository) storeAccountLocked(account Account) {
	if _, exists := r.accounts[account.ID]; !exists {
		r.accountOrder = append(r.accountOrder, account.ID)
	}
	r.accounts[account.ID] = account
}
