package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
)

// Transaction is an append-only ledger entry. Rows are written before
// the balance mutation is attempted and flagged with Success afterwards,
// so failed debits stay auditable.
type Transaction struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	BusinessID  uuid.UUID       `db:"business_id" json:"business_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Kind        TransactionKind `db:"kind" json:"kind"`
	Success     bool            `db:"success" json:"success"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
