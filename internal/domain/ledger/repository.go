package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository owns the balance column of businesses and the transactions
// table. Every balance mutation goes through a SELECT ... FOR UPDATE on
// the business row, so concurrent credit/debit for one business are
// serialized.
type Repository interface {
	GetBalance(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error)
	Credit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Debit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	SetBalance(ctx context.Context, businessID uuid.UUID, balance decimal.Decimal) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, t *Transaction) error
	SetTransactionSuccess(ctx context.Context, id uuid.UUID, success bool) error
	ListTransactions(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Transaction, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBalance(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, `SELECT balance FROM businesses WHERE id = $1`, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrBusinessNotFound
	}
	return balance, err
}

func (r *repository) lockBalance(ctx context.Context, tx *sqlx.Tx, businessID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `SELECT balance FROM businesses WHERE id = $1 FOR UPDATE`, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrBusinessNotFound
	}
	return balance, err
}

func (r *repository) updateBalance(ctx context.Context, tx *sqlx.Tx, businessID uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE businesses SET balance = $1, updated_at = now() WHERE id = $2`, balance, businessID)
	return err
}

// apply performs the locked read-modify-write and re-reads the balance
// to confirm what was persisted.
func (r *repository) apply(ctx context.Context, businessID uuid.UUID, mutate func(current decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback()

	current, err := r.lockBalance(ctx, tx, businessID)
	if err != nil {
		return decimal.Zero, err
	}

	next, err := mutate(current)
	if err != nil {
		return decimal.Zero, err
	}

	if err := r.updateBalance(ctx, tx, businessID, next); err != nil {
		return decimal.Zero, err
	}

	var persisted decimal.Decimal
	if err := tx.GetContext(ctx, &persisted, `SELECT balance FROM businesses WHERE id = $1`, businessID); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}
	return persisted, nil
}

func (r *repository) Credit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.apply(ctx, businessID, func(current decimal.Decimal) (decimal.Decimal, error) {
		return current.Add(amount), nil
	})
}

func (r *repository) Debit(ctx context.Context, businessID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return r.apply(ctx, businessID, func(current decimal.Decimal) (decimal.Decimal, error) {
		if amount.GreaterThan(current) {
			return decimal.Zero, ErrInsufficientFunds
		}
		return current.Sub(amount), nil
	})
}

func (r *repository) SetBalance(ctx context.Context, businessID uuid.UUID, balance decimal.Decimal) (decimal.Decimal, error) {
	var previous decimal.Decimal
	_, err := r.apply(ctx, businessID, func(current decimal.Decimal) (decimal.Decimal, error) {
		previous = current
		return balance, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return previous, nil
}

func (r *repository) CreateTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, business_id, amount, kind, success, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, t.ID, t.BusinessID, t.Amount, string(t.Kind), t.Success, t.Description)
	return err
}

func (r *repository) SetTransactionSuccess(ctx context.Context, id uuid.UUID, success bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET success = $1 WHERE id = $2`, success, id)
	return err
}

func (r *repository) ListTransactions(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Transaction, error) {
	transactions := []*Transaction{}
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, business_id, amount, kind, success, description, created_at
		FROM transactions
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	return transactions, err
}
