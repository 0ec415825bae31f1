package offer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	// Submit inserts the offer, its images and the paired chat room in
	// one transaction. Returns ErrDuplicateOffer when the business
	// already responded to the request.
	Submit(ctx context.Context, o *Offer, imageURLs []string, requestOwnerID uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	Update(ctx context.Context, o *Offer) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Offer, error)
	HasOffer(ctx context.Context, requestID, businessID uuid.UUID) (bool, error)

	AddImages(ctx context.Context, offerID uuid.UUID, urls []string) error
	DeleteImages(ctx context.Context, offerID uuid.UUID, imageIDs []uuid.UUID) error
	ListImages(ctx context.Context, offerID uuid.UUID) ([]Image, error)

	AcceptedListForUser(ctx context.Context, userID uuid.UUID) ([]*Offer, error)
	ResetRoomAccepted(ctx context.Context, offerID uuid.UUID) error
	ResetAllRoomsForUser(ctx context.Context, userID uuid.UUID) error
	DeleteAcceptedForBusiness(ctx context.Context, businessID uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const offerColumns = `
	o.id, o.purchase_request_id, o.business_id, o.price, o.condition_of_part,
	o.availability, o.difference, o.comment, o.country_id, o.created_at, o.updated_at,
	bs.title AS business_title, c.title AS country_title,
	cr.id AS chat_room_id, cr.user_id AS room_user_id,
	COALESCE(cr.is_accepted, false) AS is_accepted`

const offerJoins = `
	FROM offers o
	JOIN businesses bs ON bs.id = o.business_id
	LEFT JOIN part_manufacturer_countries c ON c.id = o.country_id
	LEFT JOIN chat_rooms cr ON cr.offer_id = o.id`

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) Submit(ctx context.Context, o *Offer, imageURLs []string, requestOwnerID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE purchase_request_id = $1 AND business_id = $2)`,
		o.RequestID, o.BusinessID)
	if err != nil {
		return fmt.Errorf("check existing offer: %w", err)
	}
	if exists {
		return ErrDuplicateOffer
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO offers (
			id, purchase_request_id, business_id, price, condition_of_part,
			availability, difference, comment, country_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.RequestID, o.BusinessID, o.Price, o.Condition,
		o.Availability, o.Difference, o.Comment, o.CountryID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		// Unique index backstop for the race the EXISTS check leaves open
		if isUniqueViolation(err) {
			return ErrDuplicateOffer
		}
		return fmt.Errorf("insert offer: %w", err)
	}

	for _, url := range imageURLs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO offer_images (id, offer_id, url) VALUES ($1, $2, $3)`,
			uuid.New(), o.ID, url)
		if err != nil {
			return fmt.Errorf("insert offer image: %w", err)
		}
	}

	roomID := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_rooms (id, offer_id, purchase_request_id, user_id, business_id, is_accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)`,
		roomID, o.ID, o.RequestID, requestOwnerID, o.BusinessID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit offer: %w", err)
	}
	o.ChatRoomID = &roomID
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var o Offer
	query := `SELECT ` + offerColumns + offerJoins + ` WHERE o.id = $1`
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return &o, nil
}

func (r *repository) Update(ctx context.Context, o *Offer) error {
	o.UpdatedAt = time.Now()
	query := `
		UPDATE offers SET
			price = :price, condition_of_part = :condition_of_part,
			availability = :availability, difference = :difference,
			comment = :comment, country_id = :country_id, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, o)
	if err != nil {
		return fmt.Errorf("update offer: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRequest orders offers the way the owner sees them: businesses
// on higher tariffs first, then newest first
func (r *repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Offer, error) {
	offers := []*Offer{}
	query := `SELECT ` + offerColumns + offerJoins + `
		LEFT JOIN tariffs tf ON tf.id = bs.tariff_id
		WHERE o.purchase_request_id = $1
		ORDER BY COALESCE(tf.display_order, 2147483647), o.created_at DESC`
	if err := r.db.SelectContext(ctx, &offers, query, requestID); err != nil {
		return nil, fmt.Errorf("list offers by request: %w", err)
	}
	return offers, nil
}

func (r *repository) HasOffer(ctx context.Context, requestID, businessID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE purchase_request_id = $1 AND business_id = $2)`,
		requestID, businessID)
	if err != nil {
		return false, fmt.Errorf("check existing offer: %w", err)
	}
	return exists, nil
}

func (r *repository) AddImages(ctx context.Context, offerID uuid.UUID, urls []string) error {
	for _, url := range urls {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO offer_images (id, offer_id, url) VALUES ($1, $2, $3)`,
			uuid.New(), offerID, url)
		if err != nil {
			return fmt.Errorf("insert offer image: %w", err)
		}
	}
	return nil
}

func (r *repository) DeleteImages(ctx context.Context, offerID uuid.UUID, imageIDs []uuid.UUID) error {
	if len(imageIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`DELETE FROM offer_images WHERE offer_id = ? AND id IN (?)`, offerID, imageIDs)
	if err != nil {
		return fmt.Errorf("build delete images query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("delete offer images: %w", err)
	}
	return nil
}

func (r *repository) ListImages(ctx context.Context, offerID uuid.UUID) ([]Image, error) {
	images := []Image{}
	query := `SELECT id, offer_id, url FROM offer_images WHERE offer_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &images, query, offerID); err != nil {
		return nil, fmt.Errorf("list offer images: %w", err)
	}
	return images, nil
}

func (r *repository) AcceptedListForUser(ctx context.Context, userID uuid.UUID) ([]*Offer, error) {
	offers := []*Offer{}
	query := `SELECT ` + offerColumns + offerJoins + `
		WHERE cr.user_id = $1 AND cr.is_accepted = true
		ORDER BY o.created_at DESC`
	if err := r.db.SelectContext(ctx, &offers, query, userID); err != nil {
		return nil, fmt.Errorf("list accepted offers: %w", err)
	}
	return offers, nil
}

func (r *repository) ResetRoomAccepted(ctx context.Context, offerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE chat_rooms SET is_accepted = false WHERE offer_id = $1`, offerID)
	if err != nil {
		return fmt.Errorf("reset chat room accepted: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ResetAllRoomsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chat_rooms SET is_accepted = false WHERE user_id = $1 AND is_accepted = true`, userID)
	if err != nil {
		return fmt.Errorf("reset accepted chat rooms: %w", err)
	}
	return nil
}

func (r *repository) DeleteAcceptedForBusiness(ctx context.Context, businessID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM offers o
		USING chat_rooms cr
		WHERE cr.offer_id = o.id AND o.business_id = $1 AND cr.is_accepted = true`,
		businessID)
	if err != nil {
		return fmt.Errorf("delete accepted offers: %w", err)
	}
	return nil
}
