package notification

import (
	"time"

	"github.com/google/uuid"
)

// NewsTopic is the FCM topic admin broadcasts go to
const NewsTopic = "news"

// Stock notification texts
const (
	NewOfferMessage       = "На вашу заявку откликнулся магазин с выгодным предложением"
	OfferAcceptedMessage  = "Пользователь ответил на ваше предложение"
	UnreadMessagesTitle   = "У вас есть непрочитанные сообщения"
	UnreadMessagesMessage = "Проверьте свои чаты. У вас есть непрочитанные сообщения"
)

// Notification is addressed to many users; optional tariff/offer links
// let clients render rich cards. Delivery is best-effort: the row
// persists whether or not the push goes out.
type Notification struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       *string    `db:"title" json:"title,omitempty"`
	Message     string     `db:"message" json:"message"`
	URL         *string    `db:"url" json:"url,omitempty"`
	TariffID    *uuid.UUID `db:"tariff_id" json:"tariff_id,omitempty"`
	OfferID     *uuid.UUID `db:"offer_id" json:"offer_id,omitempty"`
	ForTopic    bool       `db:"for_topic" json:"for_topic"`
	ForBusiness bool       `db:"for_business" json:"for_business"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Item is a notification decorated with the reading user's unread flag
type Item struct {
	*Notification
	IsNewNotification bool `json:"is_new_notification"`
}
