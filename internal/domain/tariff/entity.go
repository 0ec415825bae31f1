package tariff

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tariff is a subscription tier bounding how many car brands and common
// parts a business may target. Referenced by historical transactions,
// so rows are protected from deletion once used.
type Tariff struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	Title            string           `db:"title" json:"title"`
	Price            decimal.Decimal  `db:"price" json:"price"`
	OldPrice         *decimal.Decimal `db:"old_price" json:"old_price,omitempty"`
	Description      string           `db:"description" json:"description"`
	LogoURL          *string          `db:"logo_url" json:"logo_url,omitempty"`
	CarBrandsCount   int              `db:"car_brands_count" json:"car_brands_count"`
	CommonPartsCount int              `db:"common_parts_count" json:"common_parts_count"`
	DisplayOrder     int              `db:"display_order" json:"display_order"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// IsFree reports whether the tariff costs nothing and therefore never
// expires
func (t *Tariff) IsFree() bool {
	return t.Price.IsZero()
}

// DueBusiness is a business picked up by one of the daily sweeps
type DueBusiness struct {
	ID       uuid.UUID `db:"id"`
	UserID   uuid.UUID `db:"user_id"`
	TariffID uuid.UUID `db:"tariff_id"`
}
