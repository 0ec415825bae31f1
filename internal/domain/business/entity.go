package business

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FilterMode selects which purchase requests a business sees in its
// feed
type FilterMode string

const (
	FilterByCommonParts FilterMode = "by_common_parts"
	FilterByCarBrands   FilterMode = "by_car_brands"
	FilterAllRequests   FilterMode = "all_requests"
)

func (m FilterMode) Valid() bool {
	switch m {
	case FilterByCommonParts, FilterByCarBrands, FilterAllRequests:
		return true
	}
	return false
}

// FilterModeTitles maps filter modes to their display titles
var FilterModeTitles = map[FilterMode]string{
	FilterByCommonParts: "По общим деталям",
	FilterByCarBrands:   "По марке автомобилей",
	FilterAllRequests:   "Все заявки",
}

// Business is a shop account owned by one user. Never hard-deleted:
// deactivation flips is_active only, and re-registering reactivates the
// same row.
type Business struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	UserID            uuid.UUID       `db:"user_id" json:"user_id"`
	Title             string          `db:"title" json:"title"`
	Address           string          `db:"address" json:"address"`
	ImageURL          *string         `db:"image_url" json:"image_url,omitempty"`
	Telegram          *string         `db:"telegram" json:"telegram,omitempty"`
	Instagram         *string         `db:"instagram" json:"instagram,omitempty"`
	TikTok            *string         `db:"tiktok" json:"tiktok,omitempty"`
	WhatsApp          *string         `db:"whatsapp" json:"whatsapp,omitempty"`
	FirstPhoneNumber  string          `db:"first_phone_number" json:"first_phone_number"`
	SecondPhoneNumber *string         `db:"second_phone_number" json:"second_phone_number,omitempty"`
	ThirdPhoneNumber  *string         `db:"third_phone_number" json:"third_phone_number,omitempty"`
	TariffID          *uuid.UUID      `db:"tariff_id" json:"tariff_id,omitempty"`
	TariffEndDay      *time.Time      `db:"tariff_end_day" json:"tariff_end_day,omitempty"`
	Balance           decimal.Decimal `db:"balance" json:"balance"`
	RequestsFilter    FilterMode      `db:"types_of_purchase_requests" json:"types_of_purchase_requests"`
	IsActive          bool            `db:"is_active" json:"is_active"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// IsTariffSelected reports whether the business has picked a tariff
func (b *Business) IsTariffSelected() bool {
	return b.TariffID != nil
}
