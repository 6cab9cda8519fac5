package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceWriter receives wallet balance cache rewrites from the in-memory
// ledger. The wallet memory repository implements it for tests; the Postgres
// ledger writes balances inside its own transactions instead.
type BalanceWriter interface {
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]*Entry
	order    []uuid.UUID
	balances BalanceWriter
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. Balance cache writes are forwarded to the given writer.
func NewInMemory(balances BalanceWriter) Ledger {
	return &inMemoryLedger{
		entries:  make(map[uuid.UUID]*Entry),
		balances: balances,
	}
}

func (l *inMemoryLedger) Record(_ context.Context, legs ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, leg := range legs {
		e := leg
		e.Status = StatusNew
		l.entries[e.ID] = &e
		l.order = append(l.order, e.ID)
	}
	return nil
}

func (l *inMemoryLedger) Settle(ctx context.Context, ids []uuid.UUID, participants ...Participant) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := make(map[uuid.UUID]Status, len(ids))
	for _, id := range ids {
		if e, ok := l.entries[id]; ok {
			previous[id] = e.Status
			e.Status = StatusCommitted
		}
	}

	for _, p := range participants {
		if p.Floored && l.committedSumLocked(p.AccountID).IsNegative() {
			// Mirror the transactional rollback: statuses revert and
			// no balance is written.
			for id, status := range previous {
				l.entries[id].Status = status
			}
			return ErrInsufficientFunds
		}
	}

	return l.writeBalancesLocked(ctx, participants)
}

func (l *inMemoryLedger) Reject(ctx context.Context, ids []uuid.UUID, participants ...Participant) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		if e, ok := l.entries[id]; ok {
			e.Status = StatusRejected
		}
	}
	return l.writeBalancesLocked(ctx, participants)
}

func (l *inMemoryLedger) MarkError(_ context.Context, ids ...uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		if e, ok := l.entries[id]; ok {
			e.Status = StatusError
		}
	}
	return nil
}

func (l *inMemoryLedger) CommittedSum(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.committedSumLocked(accountID), nil
}

func (l *inMemoryLedger) EntriesForAccounts(_ context.Context, accountIDs []uuid.UUID) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = struct{}{}
	}

	var entries []Entry
	for _, id := range l.order {
		e := l.entries[id]
		if _, ok := wanted[e.AccountID]; ok {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (l *inMemoryLedger) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	resolved := 0
	for _, e := range l.entries {
		if e.Status == StatusNew && e.CreatedAt.Before(cutoff) {
			e.Status = StatusError
			resolved++
		}
	}
	return resolved, nil
}

func (l *inMemoryLedger) committedSumLocked(accountID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.entries {
		if e.AccountID == accountID && e.Status == StatusCommitted {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

func (l *inMemoryLedger) writeBalancesLocked(ctx context.Context, participants []Participant) error {
	if l.balances == nil {
		return nil
	}
	for _, p := range participants {
		if p.WalletID == uuid.Nil {
			continue
		}
		if err := l.balances.UpdateBalance(ctx, p.WalletID, l.committedSumLocked(p.AccountID)); err != nil {
			return err
		}
	}
	return nil
}
