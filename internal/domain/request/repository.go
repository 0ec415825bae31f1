package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/avtoline/avtoline-api/internal/domain/business"
)

// BusinessFilter narrows the business feed to entitlement-matched
// requests
type BusinessFilter struct {
	BusinessID   uuid.UUID
	Mode         business.FilterMode
	Staff        bool
	CreatedAfter time.Time
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, r *PurchaseRequest) error
	Update(ctx context.Context, r *PurchaseRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*PurchaseRequest, error)
	ListForBusiness(ctx context.Context, f BusinessFilter) ([]*PurchaseRequest, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateAllByUser(ctx context.Context, userID uuid.UUID) error
	DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	AddImages(ctx context.Context, requestID uuid.UUID, urls []string) error
	DeleteImages(ctx context.Context, requestID uuid.UUID, imageIDs []uuid.UUID) error
	ListImages(ctx context.Context, requestID uuid.UUID) ([]Image, error)

	MarkViewed(ctx context.Context, requestID, userID uuid.UUID) error
	ViewedCount(ctx context.Context, requestID uuid.UUID) (int, error)
	IsViewedBy(ctx context.Context, requestID, userID uuid.UUID) (bool, error)

	ListTypes(ctx context.Context) ([]*RequestType, error)
	GetTypeByID(ctx context.Context, id uuid.UUID) (*RequestType, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const requestColumns = `
	pr.id, pr.user_id, pr.type_id, pr.description, pr.region_id, pr.part_id,
	pr.is_active, pr.model_id, pr.year, pr.engine, pr.engine_displacement,
	pr.mileage, pr.vin_code, pr.transmission, pr.drive_id, pr.body_id,
	pr.car_image_url, pr.created_at, pr.updated_at,
	m.title AS model_title, m.brand_id AS brand_id, b.title AS brand_title,
	p.title AS part_title, rg.title AS region_title, t.cost AS type_cost`

const requestJoins = `
	FROM purchase_requests pr
	LEFT JOIN car_models m ON m.id = pr.model_id
	LEFT JOIN car_brands b ON b.id = m.brand_id
	LEFT JOIN parts p ON p.id = pr.part_id
	LEFT JOIN regions rg ON rg.id = pr.region_id
	LEFT JOIN purchase_request_types t ON t.id = pr.type_id`

func (r *repository) Create(ctx context.Context, req *PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (
			id, user_id, type_id, description, region_id, part_id, is_active,
			model_id, year, engine, engine_displacement, mileage, vin_code,
			transmission, drive_id, body_id, car_image_url, created_at, updated_at
		) VALUES (
			:id, :user_id, :type_id, :description, :region_id, :part_id, :is_active,
			:model_id, :year, :engine, :engine_displacement, :mileage, :vin_code,
			:transmission, :drive_id, :body_id, :car_image_url, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("insert purchase request: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, req *PurchaseRequest) error {
	query := `
		UPDATE purchase_requests SET
			description = :description, region_id = :region_id, part_id = :part_id,
			model_id = :model_id, year = :year, engine = :engine,
			engine_displacement = :engine_displacement, mileage = :mileage,
			vin_code = :vin_code, transmission = :transmission,
			drive_id = :drive_id, body_id = :body_id, car_image_url = :car_image_url,
			updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update purchase request: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error) {
	var req PurchaseRequest
	query := `SELECT ` + requestColumns + requestJoins + ` WHERE pr.id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get purchase request: %w", err)
	}
	return &req, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*PurchaseRequest, error) {
	requests := []*PurchaseRequest{}
	query := `SELECT ` + requestColumns + requestJoins + ` WHERE pr.user_id = $1`
	if activeOnly {
		query += ` AND pr.is_active = true`
	}
	query += ` ORDER BY pr.created_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	return requests, nil
}

func (r *repository) ListForBusiness(ctx context.Context, f BusinessFilter) ([]*PurchaseRequest, error) {
	conds := []string{"pr.is_active = true", "pr.created_at > :created_after"}
	if f.Staff {
		// Staff feed shows the paid requests regular businesses never see
		conds = append(conds, "t.cost > 0")
	} else {
		conds = append(conds, "(pr.type_id IS NULL OR t.cost <= 0)")
		brandCond := "m.brand_id IN (SELECT car_brand_id FROM business_car_brands WHERE business_id = :business_id)"
		partCond := "pr.part_id IN (SELECT part_id FROM business_common_parts WHERE business_id = :business_id)"
		switch f.Mode {
		case business.FilterByCommonParts:
			conds = append(conds, partCond)
		case business.FilterByCarBrands:
			conds = append(conds, brandCond)
		default:
			conds = append(conds, "("+partCond+" OR "+brandCond+")")
		}
	}

	query := `SELECT ` + requestColumns + requestJoins + `
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY pr.created_at DESC
		LIMIT :limit OFFSET :offset`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"business_id":   f.BusinessID,
		"created_after": f.CreatedAfter,
		"limit":         f.Limit,
		"offset":        f.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list purchase requests for business: %w", err)
	}
	defer rows.Close()

	requests := []*PurchaseRequest{}
	for rows.Next() {
		var req PurchaseRequest
		if err := rows.StructScan(&req); err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE purchase_requests SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate purchase request: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeactivateAllByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE purchase_requests SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND is_active = true`, userID)
	if err != nil {
		return fmt.Errorf("deactivate user purchase requests: %w", err)
	}
	return nil
}

func (r *repository) DeactivateOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE purchase_requests SET is_active = false, updated_at = NOW() WHERE is_active = true AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired purchase requests: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *repository) AddImages(ctx context.Context, requestID uuid.UUID, urls []string) error {
	for _, url := range urls {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO purchase_request_images (id, purchase_request_id, url) VALUES ($1, $2, $3)`,
			uuid.New(), requestID, url)
		if err != nil {
			return fmt.Errorf("insert request image: %w", err)
		}
	}
	return nil
}

func (r *repository) DeleteImages(ctx context.Context, requestID uuid.UUID, imageIDs []uuid.UUID) error {
	if len(imageIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`DELETE FROM purchase_request_images WHERE purchase_request_id = ? AND id IN (?)`,
		requestID, imageIDs)
	if err != nil {
		return fmt.Errorf("build delete images query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete request images: %w", err)
	}
	return nil
}

func (r *repository) ListImages(ctx context.Context, requestID uuid.UUID) ([]Image, error) {
	images := []Image{}
	query := `SELECT id, purchase_request_id, url FROM purchase_request_images WHERE purchase_request_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &images, query, requestID); err != nil {
		return nil, fmt.Errorf("list request images: %w", err)
	}
	return images, nil
}

func (r *repository) MarkViewed(ctx context.Context, requestID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO purchase_request_views (purchase_request_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		requestID, userID)
	if err != nil {
		return fmt.Errorf("mark purchase request viewed: %w", err)
	}
	return nil
}

func (r *repository) ViewedCount(ctx context.Context, requestID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM purchase_request_views WHERE purchase_request_id = $1`, requestID)
	if err != nil {
		return 0, fmt.Errorf("count purchase request views: %w", err)
	}
	return count, nil
}

func (r *repository) IsViewedBy(ctx context.Context, requestID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM purchase_request_views WHERE purchase_request_id = $1 AND user_id = $2)`,
		requestID, userID)
	if err != nil {
		return false, fmt.Errorf("check purchase request view: %w", err)
	}
	return exists, nil
}

func (r *repository) ListTypes(ctx context.Context) ([]*RequestType, error) {
	types := []*RequestType{}
	query := `SELECT id, name, text, cost, icon_url, display_order FROM purchase_request_types ORDER BY display_order`
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list request types: %w", err)
	}
	return types, nil
}

func (r *repository) GetTypeByID(ctx context.Context, id uuid.UUID) (*RequestType, error) {
	var t RequestType
	query := `SELECT id, name, text, cost, icon_url, display_order FROM purchase_request_types WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("get request type: %w", err)
	}
	return &t, nil
}
