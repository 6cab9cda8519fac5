package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a ledger entry. Entries are inserted as
// StatusNew and move exactly once to one of the terminal states.
type Status string

const (
	StatusNew       Status = "new"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	StatusError     Status = "error"
)

// Kind records the semantic role of an entry within the movement that
// produced it.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindSend     Kind = "send"
	KindTransfer Kind = "transfer"
)

// Entry is one side of a money movement. Immutable after insertion except
// for Status.
type Entry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Kind      Kind
	Status    Status
	CreatedAt time.Time
}

// Participant identifies one side of a settlement. Wallet participants carry
// a cached balance that is rewritten on settle/reject and enforce a
// non-negative floor; bank account participants have neither.
type Participant struct {
	AccountID uuid.UUID
	WalletID  uuid.UUID
	Floored   bool
}
