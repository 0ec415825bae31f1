package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, n *Notification, recipients []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error)
	IsRecipient(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const notificationColumns = `id, title, message, url, tariff_id, offer_id, for_topic, for_business, created_at`

func (r *repository) Create(ctx context.Context, n *Notification, recipients []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notifications (id, title, message, url, tariff_id, offer_id, for_topic, for_business, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, query,
		n.ID, n.Title, n.Message, n.URL, n.TariffID, n.OfferID, n.ForTopic, n.ForBusiness, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	for _, userID := range recipients {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notification_users (notification_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			n.ID, userID)
		if err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	notifications := []*Notification{}
	query := `
		SELECT n.id, n.title, n.message, n.url, n.tariff_id, n.offer_id, n.for_topic, n.for_business, n.created_at
		FROM notifications n
		JOIN notification_users nu ON nu.notification_id = n.id
		WHERE nu.user_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *repository) IsRecipient(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM notification_users WHERE notification_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, id, userID); err != nil {
		return false, fmt.Errorf("check recipient: %w", err)
	}
	return exists, nil
}
