package business

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avtoline/avtoline-api/internal/domain/tariff"
)

// Repository persists businesses and their entitlement selections. The
// selection tables carry a position column so "keep the first N"
// truncation has a stable order. It also serves the tariff engine's
// BusinessStore contract.
type Repository interface {
	Create(ctx context.Context, b *Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*Business, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Business, error)
	GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Update(ctx context.Context, b *Business) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetUserBusinessFlag(ctx context.Context, userID uuid.UUID, isBusiness bool) error
	SetFilterMode(ctx context.Context, id uuid.UUID, mode FilterMode) error
	SetCarBrands(ctx context.Context, id uuid.UUID, brandIDs []int64) error
	GetCarBrandIDs(ctx context.Context, id uuid.UUID) ([]int64, error)
	SetCommonParts(ctx context.Context, id uuid.UUID, partIDs []int64) error
	GetCommonPartIDs(ctx context.Context, id uuid.UUID) ([]int64, error)

	// tariff.BusinessStore
	GetAssignment(ctx context.Context, businessID uuid.UUID) (*uuid.UUID, uuid.UUID, error)
	AssignTariff(ctx context.Context, businessID, tariffID uuid.UUID, endDay *time.Time) error
	TruncateEntitlements(ctx context.Context, businessID uuid.UUID, carBrands, commonParts int) error
	ListWithEndDay(ctx context.Context, day time.Time) ([]*tariff.DueBusiness, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const businessColumns = `
	id, user_id, title, address, image_url, telegram, instagram, tiktok, whatsapp,
	first_phone_number, second_phone_number, third_phone_number,
	tariff_id, tariff_end_day, balance, types_of_purchase_requests,
	is_active, created_at, updated_at
`

func (r *repository) Create(ctx context.Context, b *Business) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO businesses (
			id, user_id, title, address, image_url, telegram, instagram, tiktok, whatsapp,
			first_phone_number, second_phone_number, third_phone_number,
			balance, types_of_purchase_requests, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
	`, b.ID, b.UserID, b.Title, b.Address, b.ImageURL, b.Telegram, b.Instagram, b.TikTok, b.WhatsApp,
		b.FirstPhoneNumber, b.SecondPhoneNumber, b.ThirdPhoneNumber,
		b.Balance, string(b.RequestsFilter), b.IsActive)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Business, error) {
	var b Business
	err := r.db.GetContext(ctx, &b, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Business, error) {
	var b Business
	err := r.db.GetContext(ctx, &b, `SELECT `+businessColumns+` FROM businesses WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetBusinessIDByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, `SELECT id FROM businesses WHERE user_id = $1 AND is_active = true`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, b *Business) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE businesses SET
			title = $1, address = $2, image_url = $3, telegram = $4, instagram = $5,
			tiktok = $6, whatsapp = $7, first_phone_number = $8,
			second_phone_number = $9, third_phone_number = $10, updated_at = now()
		WHERE id = $11
	`, b.Title, b.Address, b.ImageURL, b.Telegram, b.Instagram, b.TikTok, b.WhatsApp,
		b.FirstPhoneNumber, b.SecondPhoneNumber, b.ThirdPhoneNumber, b.ID)
	return err
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE businesses SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	return err
}

func (r *repository) SetUserBusinessFlag(ctx context.Context, userID uuid.UUID, isBusiness bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_business = $1, updated_at = now() WHERE id = $2`, isBusiness, userID)
	return err
}

func (r *repository) SetFilterMode(ctx context.Context, id uuid.UUID, mode FilterMode) error {
	_, err := r.db.ExecContext(ctx, `UPDATE businesses SET types_of_purchase_requests = $1, updated_at = now() WHERE id = $2`, string(mode), id)
	return err
}

func (r *repository) replaceSelection(ctx context.Context, table, column string, businessID uuid.UUID, ids []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE business_id = $1`, businessID); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO `+table+` (business_id, `+column+`, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, businessID, id, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *repository) selectionIDs(ctx context.Context, table, column string, businessID uuid.UUID) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT `+column+` FROM `+table+` WHERE business_id = $1 ORDER BY position
	`, businessID)
	return ids, err
}

func (r *repository) SetCarBrands(ctx context.Context, id uuid.UUID, brandIDs []int64) error {
	return r.replaceSelection(ctx, "business_car_brands", "car_brand_id", id, brandIDs)
}

func (r *repository) GetCarBrandIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	return r.selectionIDs(ctx, "business_car_brands", "car_brand_id", id)
}

func (r *repository) SetCommonParts(ctx context.Context, id uuid.UUID, partIDs []int64) error {
	return r.replaceSelection(ctx, "business_common_parts", "part_id", id, partIDs)
}

func (r *repository) GetCommonPartIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	return r.selectionIDs(ctx, "business_common_parts", "part_id", id)
}

func (r *repository) GetAssignment(ctx context.Context, businessID uuid.UUID) (*uuid.UUID, uuid.UUID, error) {
	var row struct {
		TariffID *uuid.UUID `db:"tariff_id"`
		UserID   uuid.UUID  `db:"user_id"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT tariff_id, user_id FROM businesses WHERE id = $1`, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, uuid.Nil, ErrNotFound
	}
	if err != nil {
		return nil, uuid.Nil, err
	}
	return row.TariffID, row.UserID, nil
}

func (r *repository) AssignTariff(ctx context.Context, businessID, tariffID uuid.UUID, endDay *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE businesses SET tariff_id = $1, tariff_end_day = $2, updated_at = now() WHERE id = $3
	`, tariffID, endDay, businessID)
	return err
}

// TruncateEntitlements drops selection rows beyond the new caps,
// keeping the first N in stored position order
func (r *repository) TruncateEntitlements(ctx context.Context, businessID uuid.UUID, carBrands, commonParts int) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM business_car_brands
		WHERE business_id = $1 AND car_brand_id NOT IN (
			SELECT car_brand_id FROM business_car_brands
			WHERE business_id = $1 ORDER BY position LIMIT $2
		)
	`, businessID, carBrands); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM business_common_parts
		WHERE business_id = $1 AND part_id NOT IN (
			SELECT part_id FROM business_common_parts
			WHERE business_id = $1 ORDER BY position LIMIT $2
		)
	`, businessID, commonParts)
	return err
}

func (r *repository) ListWithEndDay(ctx context.Context, day time.Time) ([]*tariff.DueBusiness, error) {
	due := []*tariff.DueBusiness{}
	err := r.db.SelectContext(ctx, &due, `
		SELECT id, user_id, tariff_id FROM businesses
		WHERE tariff_end_day = $1::date AND tariff_id IS NOT NULL
	`, day.Format("2006-01-02"))
	return due, err
}
