package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// InsertMessage persists the message and, when flipAccepted is set,
	// marks the room accepted in the same transaction so the flip is
	// visible to any reader that sees the message.
	InsertMessage(ctx context.Context, msg *Message, flipAccepted bool) error
	ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]Message, error)
	ListRoomsForBusiness(ctx context.Context, businessID uuid.UUID) ([]*BusinessRoom, error)
}

// BusinessRoom is a room on the business side of the accepted-requests
// screen, carrying enough of the purchase request to render a list row.
type BusinessRoom struct {
	Room
	ModelTitle     *string    `db:"model_title" json:"model_title"`
	BrandTitle     *string    `db:"brand_title" json:"brand_title"`
	Year           *int       `db:"year" json:"year"`
	PartTitle      *string    `db:"part_title" json:"part_title"`
	LastActivityAt *time.Time `db:"last_activity_at" json:"last_activity_at"`
}

const roomColumns = `
	cr.id, cr.offer_id, cr.purchase_request_id, cr.user_id, cr.business_id,
	cr.is_accepted, cr.created_at,
	bs.user_id AS business_user_id, bs.title AS business_title,
	o.price AS offer_price`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM chat_rooms cr
		JOIN businesses bs ON bs.id = cr.business_id
		JOIN offers o ON o.id = cr.offer_id
		WHERE cr.id = $1
	`
	var room Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *repository) InsertMessage(ctx context.Context, msg *Message, flipAccepted bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if flipAccepted {
		_, err = tx.ExecContext(ctx,
			`UPDATE chat_rooms SET is_accepted = true WHERE id = $1 AND is_accepted = false`,
			msg.RoomID)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, chat_room_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.RoomID, msg.SenderID, msg.Text, msg.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *repository) ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]Message, error) {
	query := `
		SELECT id, chat_room_id, sender_id, text, created_at
		FROM messages
		WHERE chat_room_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	messages := make([]Message, 0)
	err := r.db.SelectContext(ctx, &messages, query, roomID, limit, offset)
	return messages, err
}

func (r *repository) ListRoomsForBusiness(ctx context.Context, businessID uuid.UUID) ([]*BusinessRoom, error) {
	query := `
		SELECT ` + roomColumns + `,
			m.title AS model_title,
			b.title AS brand_title,
			pr.year,
			p.title AS part_title,
			GREATEST(o.created_at, MAX(msg.created_at)) AS last_activity_at
		FROM chat_rooms cr
		JOIN businesses bs ON bs.id = cr.business_id
		JOIN offers o ON o.id = cr.offer_id
		JOIN purchase_requests pr ON pr.id = cr.purchase_request_id
		LEFT JOIN car_models m ON m.id = pr.model_id
		LEFT JOIN car_brands b ON b.id = m.brand_id
		LEFT JOIN parts p ON p.id = pr.part_id
		LEFT JOIN messages msg ON msg.chat_room_id = cr.id
		WHERE cr.business_id = $1
		GROUP BY cr.id, cr.offer_id, cr.purchase_request_id, cr.user_id,
			cr.business_id, cr.is_accepted, cr.created_at,
			bs.user_id, bs.title, o.price, o.created_at,
			m.title, b.title, pr.year, p.title
		ORDER BY last_activity_at DESC
	`
	var rooms []*BusinessRoom
	err := r.db.SelectContext(ctx, &rooms, query, businessID)
	return rooms, err
}
