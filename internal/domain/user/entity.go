package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a phone-authenticated account. Business owners carry
// is_business; staff accounts see paid request feeds and can broadcast
// notifications.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsBusiness   bool      `db:"is_business" json:"is_business"`
	IsStaff      bool      `db:"is_staff" json:"is_staff"`
	FCMToken     *string   `db:"fcm_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
