package offer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition of the offered part
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
)

// ConditionTitles maps conditions to display titles
var ConditionTitles = map[Condition]string{
	ConditionNew:  "Новый",
	ConditionUsed: "Б/У",
}

// Availability of the offered part
type Availability string

const (
	AvailabilityInStock Availability = "in_stock"
	AvailabilityToOrder Availability = "to_order"
)

// AvailabilityTitles maps availabilities to display titles
var AvailabilityTitles = map[Availability]string{
	AvailabilityInStock: "В наличии",
	AvailabilityToOrder: "Под заказ",
}

// Difference of the offered part from the original
type Difference string

const (
	DifferenceOriginal Difference = "original"
	DifferenceAnalogue Difference = "analogue"
)

// DifferenceTitles maps differences to display titles
var DifferenceTitles = map[Difference]string{
	DifferenceOriginal: "Оригинал",
	DifferenceAnalogue: "Аналог",
}

// Offer is a business's response to a purchase request. At most one
// per (request, business) pair; its chat room is created with it and
// lives exactly as long.
type Offer struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	RequestID    uuid.UUID        `db:"purchase_request_id" json:"purchase_request_id"`
	BusinessID   uuid.UUID        `db:"business_id" json:"business_id"`
	Price        decimal.Decimal  `db:"price" json:"price"`
	Condition    *Condition       `db:"condition_of_part" json:"condition_of_part,omitempty"`
	Availability *Availability    `db:"availability" json:"availability,omitempty"`
	Difference   *Difference      `db:"difference" json:"difference,omitempty"`
	Comment      *string          `db:"comment" json:"comment,omitempty"`
	CountryID    *int64           `db:"country_id" json:"country_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`

	// Joined read-only columns
	BusinessTitle *string    `db:"business_title" json:"business_title,omitempty"`
	CountryTitle  *string    `db:"country_title" json:"country_title,omitempty"`
	ChatRoomID    *uuid.UUID `db:"chat_room_id" json:"chat_room_id,omitempty"`
	RoomUserID    *uuid.UUID `db:"room_user_id" json:"-"`
	IsAccepted    bool       `db:"is_accepted" json:"is_accepted"`
}

// Image is a photo attached to an offer
type Image struct {
	ID      uuid.UUID `db:"id" json:"id"`
	OfferID uuid.UUID `db:"offer_id" json:"-"`
	URL     string    `db:"url" json:"url"`
}
