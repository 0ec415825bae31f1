package offer

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitRequest creates an offer against an open purchase request
type SubmitRequest struct {
	RequestID    uuid.UUID       `json:"purchase_request_id" validate:"required"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	Condition    *string         `json:"condition_of_part" validate:"omitempty,oneof=new used"`
	Availability *string         `json:"availability" validate:"omitempty,oneof=in_stock to_order"`
	Difference   *string         `json:"difference" validate:"omitempty,oneof=original analogue"`
	Comment      *string         `json:"comment"`
	CountryID    *int64          `json:"country_id"`
}

// UpdateRequest patches an owned offer; DeletedImages removes
// attachments by id in the same call
type UpdateRequest struct {
	Price         *decimal.Decimal `json:"price"`
	Condition     *string          `json:"condition_of_part" validate:"omitempty,oneof=new used"`
	Availability  *string          `json:"availability" validate:"omitempty,oneof=in_stock to_order"`
	Difference    *string          `json:"difference" validate:"omitempty,oneof=original analogue"`
	Comment       *string          `json:"comment"`
	CountryID     *int64           `json:"country_id"`
	DeletedImages []uuid.UUID      `json:"deleted_images"`
}
