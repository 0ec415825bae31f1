package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Room is the messaging channel opened for a single offer. It links the
// requesting user with the responding business; is_accepted flips to
// true on the first message the requesting user sends into the room.
type Room struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OfferID    uuid.UUID `db:"offer_id" json:"offer_id"`
	RequestID  uuid.UUID `db:"purchase_request_id" json:"purchase_request_id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	IsAccepted bool      `db:"is_accepted" json:"is_accepted"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	// Joined for transcript and room-list rendering.
	BusinessUserID uuid.UUID       `db:"business_user_id" json:"-"`
	BusinessTitle  string          `db:"business_title" json:"business_title"`
	OfferPrice     decimal.Decimal `db:"offer_price" json:"offer_price"`
}

type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RoomID    uuid.UUID `db:"chat_room_id" json:"chat_room_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Text      string    `db:"text" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OtherParty returns the user on the opposite side of the room from
// the given sender.
func (r *Room) OtherParty(senderID uuid.UUID) uuid.UUID {
	if senderID == r.UserID {
		return r.BusinessUserID
	}
	return r.UserID
}

// IsMember reports whether the user belongs to either side of the room.
func (r *Room) IsMember(userID uuid.UUID) bool {
	return userID == r.UserID || userID == r.BusinessUserID
}
