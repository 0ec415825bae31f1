package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	// RecordPayment inserts the gateway payment id, failing with
	// ErrDuplicatePayment when the callback is a replay.
	RecordPayment(ctx context.Context, paymentID string) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO paybox_orders (id, business_id, status, description, created_at, updated_at)
		VALUES (:id, :business_id, :status, :description, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, o)
	return err
}

func (r *repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, `SELECT * FROM paybox_orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) UpdateOrder(ctx context.Context, o *Order) error {
	query := `
		UPDATE paybox_orders
		SET amount = :amount,
			status = :status,
			description = :description,
			redirect_url = :redirect_url,
			paybox_payment_id = :paybox_payment_id,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, o)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM paybox_orders WHERE id = $1`, id)
	return err
}

func (r *repository) RecordPayment(ctx context.Context, paymentID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO paybox_payments (id) VALUES ($1)`, paymentID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return err
	}
	return nil
}
