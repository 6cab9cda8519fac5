package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists entries in PostgreSQL. Every multi-row mutation
// runs inside a single database transaction.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed ledger.
func NewPostgres(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Record inserts all legs in one statement, each in StatusNew.
func (l *PostgresLedger) Record(ctx context.Context, legs ...Entry) error {
	if len(legs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO entries (id, account_id, amount, kind, status, created_at) VALUES `)
	args := make([]any, 0, len(legs)*6)
	for i, leg := range legs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, leg.ID, leg.AccountID, leg.Amount, string(leg.Kind), string(StatusNew), leg.CreatedAt.UTC())
	}

	if _, err := l.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("record entries: %w", err)
	}
	return nil
}

// Settle commits the entries and rewrites the wallet balance caches, rolling
// everything back when a floor-checked participant would settle negative.
func (l *PostgresLedger) Settle(ctx context.Context, ids []uuid.UUID, participants ...Participant) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ordered := lockOrder(participants)
	if err := lockAccounts(ctx, tx, ordered); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = ANY($2)`, string(StatusCommitted), ids); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}

	for _, p := range ordered {
		balance, err := committedSumTx(ctx, tx, p.AccountID)
		if err != nil {
			return err
		}
		// Floor check precedes the balance write so a rejected movement
		// never persists a negative cache, even transiently.
		if p.Floored && balance.IsNegative() {
			return ErrInsufficientFunds
		}
		if err := writeBalance(ctx, tx, p, balance); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Reject marks the entries rejected and rewrites the wallet balance caches at
// their pre-transfer values.
func (l *PostgresLedger) Reject(ctx context.Context, ids []uuid.UUID, participants ...Participant) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ordered := lockOrder(participants)
	if err := lockAccounts(ctx, tx, ordered); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = ANY($2)`, string(StatusRejected), ids); err != nil {
		return fmt.Errorf("reject entries: %w", err)
	}

	for _, p := range ordered {
		balance, err := committedSumTx(ctx, tx, p.AccountID)
		if err != nil {
			return err
		}
		if err := writeBalance(ctx, tx, p, balance); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// MarkError flips the entries to StatusError.
func (l *PostgresLedger) MarkError(ctx context.Context, ids ...uuid.UUID) error {
	if _, err := l.db.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = ANY($2)`, string(StatusError), ids); err != nil {
		return fmt.Errorf("mark entries errored: %w", err)
	}
	return nil
}

// CommittedSum derives the account balance from its committed entries.
func (l *PostgresLedger) CommittedSum(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := l.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1 AND status = $2`,
		accountID, string(StatusCommitted),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("committed sum: %w", err)
	}
	return sum, nil
}

// EntriesForAccounts returns the entries of the given accounts ordered by
// creation time then id.
func (l *PostgresLedger) EntriesForAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]Entry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT id, account_id, amount, kind, status, created_at
           FROM entries WHERE account_id = ANY($1)
          ORDER BY created_at, id`,
		accountIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind, status string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &kind, &status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = Kind(kind)
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReconcileStale resolves entries left in StatusNew by a crash between the
// record and settle phases of a transfer.
func (l *PostgresLedger) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := tx.Query(ctx,
		`SELECT id, account_id FROM entries WHERE status = $1 AND created_at < $2 FOR UPDATE`,
		string(StatusNew), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("find stale entries: %w", err)
	}

	var ids []uuid.UUID
	accountSet := map[uuid.UUID]struct{}{}
	for rows.Next() {
		var id, accountID uuid.UUID
		if err := rows.Scan(&id, &accountID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stale entry: %w", err)
		}
		ids = append(ids, id)
		accountSet[accountID] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1 WHERE id = ANY($2)`, string(StatusError), ids); err != nil {
		return 0, fmt.Errorf("error stale entries: %w", err)
	}

	// New entries never contributed to a committed sum, so this rewrite is
	// a refresh of the cache, not a balance change.
	for accountID := range accountSet {
		balance, err := committedSumTx(ctx, tx, accountID)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE wallets SET balance = $1, updated_at = now() WHERE account_id = $2`,
			balance, accountID,
		); err != nil {
			return 0, fmt.Errorf("refresh wallet balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// lockOrder sorts participants by ascending account id so concurrent
// settlements touching the same accounts acquire row locks in a canonical
// order, independent of source/target role.
func lockOrder(participants []Participant) []Participant {
	ordered := make([]Participant, len(participants))
	copy(ordered, participants)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].AccountID[:], ordered[j].AccountID[:]) < 0
	})
	return ordered
}

func lockAccounts(ctx context.Context, tx pgx.Tx, ordered []Participant) error {
	for _, p := range ordered {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, p.AccountID).Scan(&id); err != nil {
			return fmt.Errorf("lock account %s: %w", p.AccountID, err)
		}
	}
	return nil
}

func committedSumTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1 AND status = $2`,
		accountID, string(StatusCommitted),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("committed sum: %w", err)
	}
	return sum, nil
}

func writeBalance(ctx context.Context, tx pgx.Tx, p Participant, balance decimal.Decimal) error {
	if p.WalletID == uuid.Nil {
		return nil
	}
	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`,
		balance, p.WalletID,
	); err != nil {
		return fmt.Errorf("write wallet balance: %w", err)
	}
	return nil
}
