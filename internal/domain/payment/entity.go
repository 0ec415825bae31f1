package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusInit    Status = "init"
	StatusFailed  Status = "failed"
	StatusSuccess Status = "success"
)

// Order is a balance top-up attempt through the Paybox gateway. The
// amount is unknown until the result callback arrives; the gateway
// payment id is unique and guards against callback replays.
type Order struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	BusinessID      uuid.UUID           `db:"business_id" json:"business_id"`
	Amount          decimal.NullDecimal `db:"amount" json:"amount"`
	Status          Status              `db:"status" json:"status"`
	Description     string              `db:"description" json:"description"`
	RedirectURL     *string             `db:"redirect_url" json:"redirect_url"`
	PayboxPaymentID *string             `db:"paybox_payment_id" json:"paybox_payment_id,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}
