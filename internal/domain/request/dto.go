package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequest is the regular creation flow: the car and the part
// are mandatory, everything else optional
type CreateRequest struct {
	ModelID            int64            `json:"model_id" validate:"required"`
	Year               int              `json:"year" validate:"required,min=1900,max=2100"`
	PartID             int64            `json:"part_id" validate:"required"`
	TypeID             *uuid.UUID       `json:"type_id"`
	Description        *string          `json:"description"`
	RegionID           *int64           `json:"region_id"`
	Engine             *string          `json:"engine" validate:"omitempty,oneof=gasoline gas gasoline/gas diesel hybrid electric"`
	EngineDisplacement *decimal.Decimal `json:"engine_displacement"`
	Mileage            *int64           `json:"mileage" validate:"omitempty,min=0"`
	VINCode            *string          `json:"vin_code" validate:"omitempty,max=17"`
	Transmission       *string          `json:"transmission" validate:"omitempty,oneof=manual automatic variator robot"`
	DriveID            *int64           `json:"drive_id"`
	BodyID             *int64           `json:"body_id"`
}

// CreateVIPRequest is the paid flow: free-form text, no car fields
type CreateVIPRequest struct {
	TypeID      uuid.UUID `json:"type_id" validate:"required"`
	Description string    `json:"description" validate:"required"`
}

// UpdateRequest patches an owner's request. Nil fields stay untouched;
// DeletedImages removes attachments by id in the same call.
type UpdateRequest struct {
	Description        *string          `json:"description"`
	RegionID           *int64           `json:"region_id"`
	PartID             *int64           `json:"part_id"`
	ModelID            *int64           `json:"model_id"`
	Year               *int             `json:"year" validate:"omitempty,min=1900,max=2100"`
	Engine             *string          `json:"engine" validate:"omitempty,oneof=gasoline gas gasoline/gas diesel hybrid electric"`
	EngineDisplacement *decimal.Decimal `json:"engine_displacement"`
	Mileage            *int64           `json:"mileage" validate:"omitempty,min=0"`
	VINCode            *string          `json:"vin_code" validate:"omitempty,max=17"`
	Transmission       *string          `json:"transmission" validate:"omitempty,oneof=manual automatic variator robot"`
	DriveID            *int64           `json:"drive_id"`
	BodyID             *int64           `json:"body_id"`
	DeletedImages      []uuid.UUID      `json:"deleted_images"`
}
