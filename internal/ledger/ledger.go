package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds occurs when settling a movement would leave a
// floor-checked participant with a negative balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the append-only entry log with bulk status transitions and
// derived balances. Status transitions are idempotent by id set and carry no
// optimistic-concurrency guard; callers serialize competing transitions on
// the same ids themselves.
type Ledger interface {
	// Record inserts all legs atomically, each in StatusNew.
	Record(ctx context.Context, legs ...Entry) error

	// Settle commits the given entries and recomputes and persists the
	// balance cache of every wallet participant, holding row locks on the
	// participant accounts in ascending account-id order. If a recomputed
	// balance violates a participant's floor the whole transition rolls
	// back and ErrInsufficientFunds is returned: statuses stay as they
	// were and no balance is left at the transiently negative value.
	Settle(ctx context.Context, ids []uuid.UUID, participants ...Participant) error

	// Reject marks the given entries rejected and recomputes and persists
	// the wallet participants' balances so they reflect the pre-transfer
	// state, in one atomic transition.
	Reject(ctx context.Context, ids []uuid.UUID, participants ...Participant) error

	// MarkError flips the given entries to StatusError. Balances are left
	// untouched.
	MarkError(ctx context.Context, ids ...uuid.UUID) error

	// CommittedSum derives an account's balance as the sum of its
	// committed entry amounts, zero when none exist.
	CommittedSum(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)

	// EntriesForAccounts returns every entry recorded against the given
	// accounts, ordered by creation time then id.
	EntriesForAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]Entry, error)

	// ReconcileStale resolves entries stuck in StatusNew for longer than
	// olderThan, flipping them to StatusError and refreshing the balance
	// cache of affected wallets. It returns the number of entries
	// resolved. Entries go stale when the process dies between the
	// recording and settling transactions of a transfer.
	ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error)
}
