package business

// CreateBusinessRequest is the registration payload
type CreateBusinessRequest struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Address           string  `json:"address" validate:"required,max=100"`
	Telegram          *string `json:"telegram,omitempty" validate:"omitempty,max=100"`
	Instagram         *string `json:"instagram,omitempty" validate:"omitempty,max=100"`
	TikTok            *string `json:"tiktok,omitempty" validate:"omitempty,max=100"`
	WhatsApp          *string `json:"whatsapp,omitempty" validate:"omitempty,max=20"`
	FirstPhoneNumber  string  `json:"first_phone_number" validate:"required,kg_phone"`
	SecondPhoneNumber *string `json:"second_phone_number,omitempty" validate:"omitempty,kg_phone"`
	ThirdPhoneNumber  *string `json:"third_phone_number,omitempty" validate:"omitempty,kg_phone"`
}

// UpdateBusinessRequest is the profile update payload; nil fields are
// left untouched
type UpdateBusinessRequest struct {
	Title             *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Address           *string `json:"address,omitempty" validate:"omitempty,max=100"`
	Telegram          *string `json:"telegram,omitempty" validate:"omitempty,max=100"`
	Instagram         *string `json:"instagram,omitempty" validate:"omitempty,max=100"`
	TikTok            *string `json:"tiktok,omitempty" validate:"omitempty,max=100"`
	WhatsApp          *string `json:"whatsapp,omitempty" validate:"omitempty,max=20"`
	FirstPhoneNumber  *string `json:"first_phone_number,omitempty" validate:"omitempty,kg_phone"`
	SecondPhoneNumber *string `json:"second_phone_number,omitempty" validate:"omitempty,kg_phone"`
	ThirdPhoneNumber  *string `json:"third_phone_number,omitempty" validate:"omitempty,kg_phone"`
}

// SetCarBrandsRequest replaces the entitlement selection of car brands
type SetCarBrandsRequest struct {
	CarBrands []int64 `json:"car_brands"`
}

// SetCommonPartsRequest replaces the entitlement selection of common
// parts
type SetCommonPartsRequest struct {
	CommonParts []int64 `json:"common_parts"`
}

// SetFilterModeRequest changes the purchase request feed mode
type SetFilterModeRequest struct {
	TypesOfPurchaseRequests string `json:"types_of_purchase_requests" validate:"required"`
}
