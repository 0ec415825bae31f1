package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine fuel kinds
type Engine string

const (
	EngineGasoline    Engine = "gasoline"
	EngineGas         Engine = "gas"
	EngineGasolineGas Engine = "gasoline/gas"
	EngineDiesel      Engine = "diesel"
	EngineHybrid      Engine = "hybrid"
	EngineElectric    Engine = "electric"
)

// EngineTitles maps engine kinds to display titles
var EngineTitles = map[Engine]string{
	EngineGasoline:    "Бензин",
	EngineGas:         "Газ",
	EngineGasolineGas: "Бензин/газ",
	EngineDiesel:      "Дизель",
	EngineHybrid:      "Гибрид",
	EngineElectric:    "Электро",
}

// Transmission gearbox kinds
type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
	TransmissionVariator  Transmission = "variator"
	TransmissionRobot     Transmission = "robot"
)

// TransmissionTitles maps gearbox kinds to display titles
var TransmissionTitles = map[Transmission]string{
	TransmissionManual:    "Механика",
	TransmissionAutomatic: "Автомат",
	TransmissionVariator:  "Вариатор",
	TransmissionRobot:     "Робот",
}

// RequestType classifies purchase requests. A nonzero cost marks the
// paid ("VIP") flow: free-form requests visible to staff only.
type RequestType struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Text         string          `db:"text" json:"text"`
	Cost         decimal.Decimal `db:"cost" json:"cost"`
	IconURL      *string         `db:"icon_url" json:"icon_url,omitempty"`
	DisplayOrder int             `db:"display_order" json:"display_order"`
}

func (t *RequestType) IsPaid() bool {
	return t.Cost.GreaterThan(decimal.Zero)
}

// Vehicle describes the car a part is searched for. All fields are
// optional: a VIP request carries none of them.
type Vehicle struct {
	ModelID            *int64           `db:"model_id" json:"model_id,omitempty"`
	Year               *int             `db:"year" json:"year,omitempty"`
	Engine             *Engine          `db:"engine" json:"engine,omitempty"`
	EngineDisplacement *decimal.Decimal `db:"engine_displacement" json:"engine_displacement,omitempty"`
	Mileage            *int64           `db:"mileage" json:"mileage,omitempty"`
	VINCode            *string          `db:"vin_code" json:"vin_code,omitempty"`
	Transmission       *Transmission    `db:"transmission" json:"transmission,omitempty"`
	DriveID            *int64           `db:"drive_id" json:"drive_id,omitempty"`
	BodyID             *int64           `db:"body_id" json:"body_id,omitempty"`
	CarImageURL        *string          `db:"car_image_url" json:"car_image_url,omitempty"`
}

// PurchaseRequest is a user's part-search posting. Active for a
// bounded window, then closed by its owner or swept inactive.
type PurchaseRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	TypeID      *uuid.UUID `db:"type_id" json:"type_id,omitempty"`
	Description *string    `db:"description" json:"description,omitempty"`
	RegionID    *int64     `db:"region_id" json:"region_id,omitempty"`
	PartID      *int64     `db:"part_id" json:"part_id,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	Vehicle
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined read-only columns
	ModelTitle  *string          `db:"model_title" json:"model_title,omitempty"`
	BrandID     *int64           `db:"brand_id" json:"brand_id,omitempty"`
	BrandTitle  *string          `db:"brand_title" json:"brand_title,omitempty"`
	PartTitle   *string          `db:"part_title" json:"part_title,omitempty"`
	RegionTitle *string          `db:"region_title" json:"region_title,omitempty"`
	TypeCost    *decimal.Decimal `db:"type_cost" json:"-"`
}

// Title renders the short car description shown in lists and pushes
func (r *PurchaseRequest) Title() string {
	if r.ModelTitle == nil && r.Year == nil {
		return "Нет данных"
	}
	model := ""
	if r.ModelTitle != nil {
		model = *r.ModelTitle
	}
	year := ""
	if r.Year != nil {
		year = fmt.Sprintf("%d", *r.Year)
	}
	title := fmt.Sprintf("%s %s", model, year)
	if r.EngineDisplacement != nil {
		title += " " + r.EngineDisplacement.String()
	}
	return title
}

// IsPaid reports whether the request belongs to a paid type
func (r *PurchaseRequest) IsPaid() bool {
	return r.TypeCost != nil && r.TypeCost.GreaterThan(decimal.Zero)
}

// Image is a photo attached to a purchase request
type Image struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RequestID uuid.UUID `db:"purchase_request_id" json:"-"`
	URL       string    `db:"url" json:"url"`
}
