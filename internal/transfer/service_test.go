package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/ledger"
	"github.com/fu2re/jati/internal/logging"
	"github.com/fu2re/jati/internal/wallet"
)

func newTestStack() (*Service, *wallet.Service, ledger.Ledger) {
	repo := wallet.NewMemoryRepository()
	led := ledger.NewInMemory(repo)
	walletSvc := wallet.NewService(repo, led)
	return NewService(walletSvc, led, nil, logging.Discard()), walletSvc, led
}

func countByStatus(t *testing.T, led ledger.Ledger, accountID uuid.UUID, status ledger.Status) int {
	t.Helper()
	entries, err := led.EntriesForAccounts(context.Background(), []uuid.UUID{accountID})
	if err != nil {
		t.Fatalf("entries for account: %v", err)
	}
	n := 0
	for _, e := range entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

func TestDepositIntoFreshWallet(t *testing.T) {
	svc, wallets, led := newTestStack()
	ctx := context.Background()

	w, err := wallets.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	bankAccountID := uuid.New()

	if err := svc.Deposit(ctx, w.ID, bankAccountID, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	w, err = wallets.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected balance 1000, got %s", w.Balance)
	}

	bank, err := wallets.BankAccount(ctx, bankAccountID)
	if err != nil {
		t.Fatalf("deposit must auto-provision the bank account: %v", err)
	}
	if bank.UserID != w.UserID {
		t.Fatalf("bank account bound to wrong user")
	}

	if n := countByStatus(t, led, w.AccountID, ledger.StatusCommitted); n != 1 {
		t.Fatalf("expected 1 committed wallet entry, got %d", n)
	}
	if n := countByStatus(t, led, bank.AccountID, ledger.StatusCommitted); n != 1 {
		t.Fatalf("expected 1 committed bank entry, got %d", n)
	}
}

func TestDepositReusesBankAccount(t *testing.T) {
	svc, wallets, _ := newTestStack()
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())
	bankAccountID := uuid.New()

	if err := svc.Deposit(ctx, w.ID, bankAccountID, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	first, _ := wallets.BankAccount(ctx, bankAccountID)

	if err := svc.Deposit(ctx, w.ID, bankAccountID, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	second, _ := wallets.BankAccount(ctx, bankAccountID)

	if first.AccountID != second.AccountID {
		t.Fatalf("repeat deposits must reuse the funding source")
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected balance 1500, got %s", w.Balance)
	}
}

func TestDepositCrossUserBankAccount(t *testing.T) {
	svc, wallets, _ := newTestStack()
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())
	other, err := wallets.CreateBankAccount(ctx, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("create bank account: %v", err)
	}

	err = svc.Deposit(ctx, w.ID, other.ID, decimal.NewFromInt(1000))
	if !errors.Is(err, wallet.ErrBankAccountNotFound) {
		t.Fatalf("expected ErrBankAccountNotFound, got %v", err)
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.IsZero() {
		t.Fatalf("balance must stay zero, got %s", w.Balance)
	}
}

func TestDepositMissingWallet(t *testing.T) {
	svc, _, _ := newTestStack()

	err := svc.Deposit(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(1000))
	if !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestSendConservesTotal(t *testing.T) {
	svc, wallets, led := newTestStack()
	ctx := context.Background()

	rich, _ := wallets.Create(ctx, uuid.New())
	poor, _ := wallets.Create(ctx, uuid.New())
	if err := svc.Deposit(ctx, rich.ID, uuid.New(), decimal.NewFromInt(100000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	if err := svc.Send(ctx, rich.ID, poor.ID, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("send: %v", err)
	}

	rich, _ = wallets.Get(ctx, rich.ID)
	poor, _ = wallets.Get(ctx, poor.ID)
	if !rich.Balance.Equal(decimal.NewFromInt(99000)) {
		t.Fatalf("expected source balance 99000, got %s", rich.Balance)
	}
	if !poor.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected target balance 1000, got %s", poor.Balance)
	}
	if !rich.Balance.Add(poor.Balance).Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("total not conserved")
	}

	// One committed wallet leg from the seed deposit, two from the send;
	// the deposit's bank-side leg lives on the funding account.
	committed := countByStatus(t, led, rich.AccountID, ledger.StatusCommitted) +
		countByStatus(t, led, poor.AccountID, ledger.StatusCommitted)
	if committed != 3 {
		t.Fatalf("expected 3 committed wallet entries, got %d", committed)
	}

	entries, _ := led.EntriesForAccounts(ctx, []uuid.UUID{rich.AccountID})
	last := entries[len(entries)-1]
	if last.Kind != ledger.KindTransfer || !last.Amount.Equal(decimal.NewFromInt(-1000)) {
		t.Fatalf("unexpected source leg: %+v", last)
	}
}

func TestSendInsufficientFunds(t *testing.T) {
	svc, wallets, led := newTestStack()
	ctx := context.Background()

	poor, _ := wallets.Create(ctx, uuid.New())
	rich, _ := wallets.Create(ctx, uuid.New())
	if err := svc.Deposit(ctx, rich.ID, uuid.New(), decimal.NewFromInt(100000)); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	err := svc.Send(ctx, poor.ID, rich.ID, decimal.NewFromInt(1000))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	poor, _ = wallets.Get(ctx, poor.ID)
	rich, _ = wallets.Get(ctx, rich.ID)
	if !poor.Balance.IsZero() {
		t.Fatalf("source balance must stay zero, got %s", poor.Balance)
	}
	if !rich.Balance.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("target balance must be unchanged, got %s", rich.Balance)
	}

	// Both new legs end rejected; the rejection is still queryable.
	if n := countByStatus(t, led, poor.AccountID, ledger.StatusRejected); n != 1 {
		t.Fatalf("expected 1 rejected source leg, got %d", n)
	}
	if n := countByStatus(t, led, rich.AccountID, ledger.StatusRejected); n != 1 {
		t.Fatalf("expected 1 rejected target leg, got %d", n)
	}
	if n := countByStatus(t, led, rich.AccountID, ledger.StatusCommitted); n != 1 {
		t.Fatalf("seed deposit must stay committed, got %d", n)
	}
}

func TestSendMissingWallet(t *testing.T) {
	svc, wallets, _ := newTestStack()
	ctx := context.Background()

	w, _ := wallets.Create(ctx, uuid.New())

	err := svc.Send(ctx, w.ID, uuid.New(), decimal.NewFromInt(1000))
	if !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}

	w, _ = wallets.Get(ctx, w.ID)
	if !w.Balance.IsZero() {
		t.Fatalf("balance must stay zero, got %s", w.Balance)
	}
}
