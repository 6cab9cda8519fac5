package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/ledger"
)

// Account is the identity anchor linking a wallet or bank account to an
// external user. User records live in another service; only their id is
// stored here.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Wallet is the internal spendable account. Balance caches the ledger's
// committed-entry sum and is rewritten on every settle attempt.
type Wallet struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	UserID    uuid.UUID
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BankAccount is an external funding source. It carries no balance and no
// floor: it represents money entering or leaving the system.
type BankAccount struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant returns the floor-checked settlement identity of the wallet.
func (w Wallet) Participant() ledger.Participant {
	return ledger.Participant{AccountID: w.AccountID, WalletID: w.ID, Floored: true}
}

// Participant returns the unchecked settlement identity of the bank account.
func (b BankAccount) Participant() ledger.Participant {
	return ledger.Participant{AccountID: b.AccountID}
}
