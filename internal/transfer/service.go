package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fu2re/jati/internal/ledger"
	"github.com/fu2re/jati/internal/notification"
	"github.com/fu2re/jati/internal/wallet"
)

// Service orchestrates money movements between wallets and bank accounts.
// It holds no state beyond its collaborators; every multi-row mutation runs
// inside the ledger's store-level transactions.
type Service struct {
	wallets  *wallet.Service
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transfer service.
func NewService(wallets *wallet.Service, ledger ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{wallets: wallets, ledger: ledger, notifier: notifier, logger: logger}
}

// Deposit moves funds from a bank account into a wallet. An unseen bank
// account id registers a fresh funding source under the wallet owner's user;
// a bank account owned by another user is treated as nonexistent.
func (s *Service) Deposit(ctx context.Context, walletID, bankAccountID uuid.UUID, amount decimal.Decimal) error {
	w, err := s.wallets.Get(ctx, walletID)
	if err != nil {
		return err
	}

	bankAccount, err := s.wallets.BankAccount(ctx, bankAccountID)
	if errors.Is(err, wallet.ErrBankAccountNotFound) {
		bankAccount, err = s.wallets.CreateBankAccount(ctx, w.UserID, bankAccountID)
	}
	if err != nil {
		return err
	}
	if bankAccount.UserID != w.UserID {
		return wallet.ErrBankAccountNotFound
	}

	return s.execute(ctx, bankAccount.Participant(), w.Participant(), amount, ledger.KindDeposit, ledger.KindDeposit)
}

// Send moves funds between two wallets. Self-transfers are rejected at the
// API boundary before this operation runs.
func (s *Service) Send(ctx context.Context, walletID, targetWalletID uuid.UUID, amount decimal.Decimal) error {
	wallets, err := s.wallets.GetMany(ctx, walletID, targetWalletID)
	if err != nil {
		return err
	}
	if len(wallets) != 2 {
		return wallet.ErrWalletNotFound
	}

	// Source/target assignment must not depend on the store's return order.
	source, target := wallets[0], wallets[1]
	if source.ID != walletID {
		source, target = target, source
	}

	if err := s.execute(ctx, source.Participant(), target.Participant(), amount, ledger.KindTransfer, ledger.KindSend); err != nil {
		return err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletCredit,
			Destination: target.UserID.String(),
			Body:        fmt.Sprintf("You received %s from wallet %s", amount, walletID),
		})
	}
	return nil
}

// execute runs the two-phase movement: one atomic write records both legs in
// StatusNew, a second settles them. The phases are deliberately separate
// transactions, so a pair of legs can transiently be observed as new; the
// startup reconciliation sweep resolves legs orphaned by a crash in between.
func (s *Service) execute(ctx context.Context, source, target ledger.Participant, amount decimal.Decimal, sourceKind, targetKind ledger.Kind) error {
	now := time.Now().UTC()
	legs := []ledger.Entry{
		{ID: uuid.New(), AccountID: source.AccountID, Amount: amount.Neg(), Kind: sourceKind, Status: ledger.StatusNew, CreatedAt: now},
		{ID: uuid.New(), AccountID: target.AccountID, Amount: amount, Kind: targetKind, Status: ledger.StatusNew, CreatedAt: now},
	}
	ids := []uuid.UUID{legs[0].ID, legs[1].ID}

	if err := s.ledger.Record(ctx, legs...); err != nil {
		return fmt.Errorf("record legs: %w", err)
	}

	err := s.ledger.Settle(ctx, ids, source, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		if rejectErr := s.ledger.Reject(ctx, ids, source, target); rejectErr != nil {
			s.log().Error("reject after floor violation failed", "entry_ids", ids, "error", rejectErr)
		}
		return ledger.ErrInsufficientFunds
	default:
		if markErr := s.ledger.MarkError(ctx, ids...); markErr != nil {
			s.log().Error("mark errored legs failed", "entry_ids", ids, "error", markErr)
		}
		return fmt.Errorf("settle legs: %w", err)
	}
}

// ReconcileStale resolves ledger entries stuck in the initial status longer
// than olderThan. Run once at startup.
func (s *Service) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.ledger.ReconcileStale(ctx, olderThan)
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
