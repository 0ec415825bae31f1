package tariff

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	List(ctx context.Context) ([]*Tariff, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error)
	GetOrCreateByTitle(ctx context.Context, title string, price decimal.Decimal, carBrands, commonParts int) (*Tariff, error)
}

// BusinessStore is the slice of the business repository the tariff
// engine needs: current assignment, reassignment, entitlement
// truncation and the two sweep queries.
type BusinessStore interface {
	GetAssignment(ctx context.Context, businessID uuid.UUID) (tariffID *uuid.UUID, userID uuid.UUID, err error)
	AssignTariff(ctx context.Context, businessID, tariffID uuid.UUID, endDay *time.Time) error
	TruncateEntitlements(ctx context.Context, businessID uuid.UUID, carBrands, commonParts int) error
	ListWithEndDay(ctx context.Context, day time.Time) ([]*DueBusiness, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]*Tariff, error) {
	tariffs := []*Tariff{}
	err := r.db.SelectContext(ctx, &tariffs, `
		SELECT id, title, price, old_price, description, logo_url,
		       car_brands_count, common_parts_count, display_order, created_at
		FROM tariffs
		ORDER BY display_order, created_at
	`)
	return tariffs, err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	var t Tariff
	err := r.db.GetContext(ctx, &t, `
		SELECT id, title, price, old_price, description, logo_url,
		       car_brands_count, common_parts_count, display_order, created_at
		FROM tariffs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTariffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) GetOrCreateByTitle(ctx context.Context, title string, price decimal.Decimal, carBrands, commonParts int) (*Tariff, error) {
	var t Tariff
	err := r.db.GetContext(ctx, &t, `
		INSERT INTO tariffs (id, title, price, car_brands_count, common_parts_count, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (title) DO UPDATE SET title = EXCLUDED.title
		RETURNING id, title, price, old_price, description, logo_url,
		          car_brands_count, common_parts_count, display_order, created_at
	`, uuid.New(), title, price, carBrands, commonParts)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
